package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"shannon/cmd/shannon/ui"
	"shannon/internal/form"
	"shannon/internal/notify"
	"shannon/internal/submission"
)

func (m Model) View() string {
	var sections []string
	sections = append(sections, m.styles.Header.Render("shannon · n-gram sentence generator"))
	if t := m.renderToasts(); t != "" {
		sections = append(sections, t)
	}

	switch {
	case m.showHelp:
		sections = append(sections, m.helpView.View())
	case m.picking:
		sections = append(sections, m.styles.Content.Render(
			m.styles.Title.Render("Choose a .txt file")+"\n"+m.picker.View()))
	default:
		sections = append(sections, m.styles.Content.Render(m.body()))
	}

	sections = append(sections, m.styles.Footer.Render(m.help.ShortHelpView(m.footerKeys())))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) body() string {
	switch m.ctrl.State() {
	case submission.Idle:
		return m.formView()
	case submission.Submitted:
		return m.loadingView("Reading file…")
	case submission.Loading:
		return m.loadingView("Generating sentences…")
	case submission.Generated:
		return m.results.View()
	case submission.Failed:
		return m.failedView()
	}
	return ""
}

func (m Model) formView() string {
	s := m.styles
	cfg := m.form.Config()

	var zone strings.Builder
	if f, ok := m.form.File(); ok {
		zone.WriteString(s.Success.Render("✓ "+f.Name) + s.Muted.Render(fmt.Sprintf("  %d bytes", f.SizeBytes)))
	} else {
		zone.WriteString(s.Muted.Render("Drag and drop a .txt file here, or press ctrl+o to browse"))
	}
	zone.WriteString("\n")
	zone.WriteString(m.pathInput.View())
	zoneStyle := s.DropZone
	if m.focus == focusDrop {
		zoneStyle = s.DropZoneFocus
	}
	if w := m.width - 8; w > 20 {
		zoneStyle = zoneStyle.Width(w)
	}

	strength := m.sliderRow("Model Strength", focusStrength,
		cfg.Strength, form.MinStrength, form.MaxStrength,
		fmt.Sprintf("%d · %s", cfg.Strength, form.StrengthLabel(cfg.Strength)))
	count := m.sliderRow("Number of Sentences", focusSentences,
		cfg.SentenceCount, form.MinSentenceCount, form.MaxSentenceCount,
		fmt.Sprintf("%d", cfg.SentenceCount))

	button := s.Button
	if m.focus == focusSubmit {
		button = s.ButtonFocused
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render("Upload a text file"),
		zoneStyle.Render(zone.String()),
		"",
		strength,
		count,
		button.Render("Generate"),
	)
}

func (m Model) sliderRow(label string, field focusField, v, lo, hi int, value string) string {
	s := m.styles
	labelStyle := s.Label
	if m.focus == field {
		labelStyle = s.FocusedLabel
	}
	bar := s.SliderFilled.Render(strings.Repeat("■", v-lo+1)) +
		s.SliderEmpty.Render(strings.Repeat("□", hi-v))
	return fmt.Sprintf("%s  ◀ %s ▶  %s",
		labelStyle.Width(20).Render(label), bar, s.Body.Render(value))
}

func (m Model) loadingView(status string) string {
	var b strings.Builder
	b.WriteString(m.spinner.View() + " " + m.styles.Bold.Render(status))
	if sub, ok := m.ctrl.Submission(); ok {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render(sub.File.Name + " · " + sub.Config.String()))
	}
	return b.String()
}

func (m Model) failedView() string {
	var b strings.Builder
	b.WriteString(m.styles.Error.Render("Error generating sentences"))
	if f := m.ctrl.Failure(); f != nil {
		b.WriteString("\n\n")
		b.WriteString(m.styles.Body.Render(f.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render("[r] Retry   [n] Start over"))
	return b.String()
}

func (m Model) renderToasts() string {
	active := m.toasts.Active()
	if len(active) == 0 {
		return ""
	}
	lines := make([]string, 0, len(active))
	for _, n := range active {
		lines = append(lines, renderToast(m.styles, n))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderToast(s ui.Styles, n notify.Notification) string {
	color := ui.Info
	title := s.Info
	switch n.Kind {
	case notify.KindSuccess:
		color, title = ui.Success, s.Success
	case notify.KindError:
		color, title = ui.Destructive, s.Error
	}
	text := title.Render(n.Title)
	if n.Detail != "" {
		text += "\n" + s.Muted.Render(n.Detail)
	}
	return s.Toast.BorderForeground(color).Render(text)
}

func (m Model) footerKeys() []key.Binding {
	k := m.keys
	switch {
	case m.showHelp:
		return []key.Binding{k.Help, k.ForceQ}
	case m.picking:
		return []key.Binding{k.Accept, k.Back}
	}
	switch m.ctrl.State() {
	case submission.Idle:
		return []key.Binding{k.Next, k.Decrease, k.Browse, k.Submit, k.Help, k.ForceQ}
	case submission.Generated:
		return []key.Binding{k.New, k.Scroll, k.Help, k.Quit}
	case submission.Failed:
		return []key.Binding{k.Retry, k.New, k.Quit}
	default:
		return []key.Binding{k.ForceQ}
	}
}
