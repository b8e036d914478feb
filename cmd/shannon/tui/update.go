package tui

import (
	"errors"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"shannon/internal/form"
	"shannon/internal/ingest"
	"shannon/internal/logging"
	"shannon/internal/notify"
	"shannon/internal/submission"
)

// Update routes messages. Keys are handled per controller state; the two
// suspension points come back as decodedMsg and generatedMsg/failedMsg.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case decodedMsg:
		return m, m.sendCmd(msg.req)

	case generatedMsg:
		logging.Get(logging.CategoryTUI).Debug("received %d sentences", len(msg.sentences))
		m.results.SetContent(m.presenter.Render(msg.sentences))
		m.results.GotoTop()
		return m, nil

	case failedMsg:
		// The controller has already applied the failure policy.
		logging.Get(logging.CategoryTUI).Debug("submission failed: %v", msg.err)
		return m, nil

	case toastTickMsg:
		m.toasts.Prune()
		return m, tickToasts()

	case fileChangeMsg:
		m.handleFileChange(ingest.Change(msg))
		return m, m.waitForFileChange()

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	if m.picking {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		cmds = append(cmds, cmd)
	}
	if m.focus == focusDrop {
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) busy() bool {
	s := m.ctrl.State()
	return s == submission.Submitted || s == submission.Loading
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	w, h := max(msg.Width, 0), max(msg.Height, 0)

	m.help.Width = w
	m.pathInput.Width = max(w-12, 10)
	m.picker.SetHeight(max(h-10, 3))
	m.presenter.SetWidth(max(w-4, 0))
	m.results.Width = w
	m.results.Height = max(h-6, 3)
	m.helpView.Width = w
	m.helpView.Height = max(h-4, 3)

	if m.ctrl.State() == submission.Generated {
		m.results.SetContent(m.presenter.Render(m.ctrl.Sentences()))
	}
	if m.showHelp {
		m = m.refreshHelp()
	}
	return m
}

func (m Model) refreshHelp() Model {
	out, err := renderHelp(m.width, m.styles.Theme.IsDark)
	if err != nil {
		out = helpMarkdown
	}
	m.helpView.SetContent(out)
	return m
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQ) {
		m.Shutdown()
		return m, tea.Quit
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Back):
			m.showHelp = false
			return m, nil
		}
		var cmd tea.Cmd
		m.helpView, cmd = m.helpView.Update(msg)
		return m, cmd
	}

	typing := m.ctrl.State() == submission.Idle && m.focus == focusDrop && !m.picking
	if key.Matches(msg, m.keys.Help) && (!typing || msg.Type == tea.KeyF1) {
		m.showHelp = true
		m.helpView.GotoTop()
		return m.refreshHelp(), nil
	}

	switch m.ctrl.State() {
	case submission.Idle:
		return m.handleFormKey(msg)
	case submission.Generated:
		return m.handleResultsKey(msg)
	case submission.Failed:
		return m.handleFailedKey(msg)
	default:
		// Submitted and Loading accept no input.
		return m, nil
	}
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picking {
		return m.handlePickerKey(msg)
	}

	// A drag-and-drop arrives as a bracketed paste of one or more paths.
	if msg.Paste {
		m.pathInput.Reset()
		m.ingestor.AcceptPaths(ingest.ParseDropped(string(msg.Runes)))
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Browse):
		m.picking = true
		return m, m.picker.Init()
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyShiftTab:
		delta := 1
		if msg.Type == tea.KeyShiftTab {
			delta = -1
		}
		return m.moveFocus(delta)
	}

	if m.focus == focusDrop {
		if msg.Type == tea.KeyEnter {
			return m.acceptTyped()
		}
		if msg.Type == tea.KeyDown {
			return m.moveFocus(1)
		}
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
		m.Shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		return m.moveFocus(1)
	case key.Matches(msg, m.keys.Prev):
		return m.moveFocus(-1)
	case key.Matches(msg, m.keys.Decrease):
		m.step(-1)
	case key.Matches(msg, m.keys.Increase):
		m.step(1)
	case key.Matches(msg, m.keys.Accept):
		if m.focus == focusSubmit {
			return m.submit()
		}
		return m.moveFocus(1)
	}
	return m, nil
}

func (m Model) step(delta int) {
	switch m.focus {
	case focusStrength:
		m.form.StepStrength(delta)
	case focusSentences:
		m.form.StepSentenceCount(delta)
	}
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	m.focus = (m.focus + focusField(delta) + focusCount) % focusCount
	if m.focus == focusDrop {
		return m, m.pathInput.Focus()
	}
	m.pathInput.Blur()
	return m, nil
}

func (m Model) acceptTyped() (tea.Model, tea.Cmd) {
	paths := ingest.ParseDropped(m.pathInput.Value())
	m.pathInput.Reset()
	if len(paths) == 0 {
		return m, nil
	}
	if res := m.ingestor.AcceptPaths(paths); res.Accepted != nil {
		return m.moveFocus(1)
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.picking = false
		return m, nil
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.picking = false
		m.ingestor.AcceptPaths([]string{path})
		return m, cmd
	}
	// Non-.txt files are visible but disabled; choosing one reports the rejection.
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.ingestor.AcceptPaths([]string{path})
		return m, cmd
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	sub, err := m.form.Submit()
	if err != nil {
		if !errors.Is(err, form.ErrMissingFile) {
			logging.Get(logging.CategoryTUI).Warn("submit: %v", err)
		}
		return m, nil
	}
	if err := m.ctrl.Begin(sub); err != nil {
		logging.Get(logging.CategoryTUI).Error("begin: %v", err)
		m.form.Reset()
		return m, nil
	}
	if m.watcher != nil {
		_ = m.watcher.Follow("")
	}
	m.pathInput.Blur()
	return m, tea.Batch(m.spinner.Tick, m.decodeCmd())
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.New):
		m.presenter.GenerateNew()
		return m.backToForm()
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m Model) handleFailedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Retry):
		if err := m.ctrl.Retry(); err != nil {
			logging.Get(logging.CategoryTUI).Warn("retry: %v", err)
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, m.decodeCmd())
	case key.Matches(msg, m.keys.New), key.Matches(msg, m.keys.Back):
		m.presenter.GenerateNew()
		return m.backToForm()
	case key.Matches(msg, m.keys.Quit):
		m.Shutdown()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) backToForm() (tea.Model, tea.Cmd) {
	m.results.SetContent("")
	m.focus = focusDrop
	m.pathInput.Reset()
	return m, m.pathInput.Focus()
}

func (m Model) handleFileChange(c ingest.Change) {
	file, ok := m.form.File()
	if !ok || m.form.Inert() || file.Path == "" {
		return
	}
	if abs, err := filepath.Abs(file.Path); err != nil || abs != c.Path {
		return
	}
	switch c.Kind {
	case ingest.ChangeRemoved:
		m.form.ClearFile()
		if m.watcher != nil {
			_ = m.watcher.Follow("")
		}
		m.toasts.Notify(notify.KindError, "File removed: "+file.Name, "Please upload a .txt file")
	case ingest.ChangeModified:
		m.toasts.Notify(notify.KindInfo, "File changed: "+file.Name, "The latest content will be used")
	}
}
