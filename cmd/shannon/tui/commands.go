package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"shannon/internal/generation"
)

// decodeCmd is the first suspension point: the file is read off the UI loop.
func (m Model) decodeCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		req, err := ctrl.Decode(ctx)
		if err != nil {
			return failedMsg{err: err}
		}
		return decodedMsg{req: req}
	}
}

// sendCmd is the second suspension point: the generation request.
func (m Model) sendCmd(req generation.Request) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		sentences, err := ctrl.Send(ctx, req)
		if err != nil {
			return failedMsg{err: err}
		}
		return generatedMsg{sentences: sentences}
	}
}

func tickToasts() tea.Cmd {
	return tea.Tick(toastTick, func(t time.Time) tea.Msg {
		return toastTickMsg(t)
	})
}

// waitForFileChange blocks on the watcher feed. It returns nil once the
// watcher is closed, which ends the loop.
func (m Model) waitForFileChange() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	ch := m.watcher.Changes()
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return fileChangeMsg(c)
	}
}
