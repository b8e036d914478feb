// Package results renders generated sentences and exposes the single
// "Generate New" action that ends a session.
package results

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is printed above the sentence blocks.
const Header = "Generated Sentences:"

// ActionLabel names the only action the presenter offers.
const ActionLabel = "Generate New"

// Styles controls how blocks look. Zero values render plain text.
type Styles struct {
	Header lipgloss.Style
	Block  lipgloss.Style
	Action lipgloss.Style
}

// DefaultStyles draws each sentence in a rounded, padded box.
func DefaultStyles(accent, muted lipgloss.TerminalColor) Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		Block: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Foreground(muted).
			Padding(0, 2).
			MarginBottom(1),
		Action: lipgloss.NewStyle().
			Bold(true).
			Foreground(accent),
	}
}

// Presenter renders an ordered list of sentences.
type Presenter struct {
	styles      Styles
	width       int
	onGenerated func()
}

// New creates a presenter. onGenerateNew is invoked by GenerateNew.
func New(styles Styles, onGenerateNew func()) *Presenter {
	return &Presenter{styles: styles, onGenerated: onGenerateNew}
}

// SetWidth wraps blocks to w columns. Zero disables wrapping.
func (p *Presenter) SetWidth(w int) {
	if w < 0 {
		w = 0
	}
	p.width = w
}

// Blocks renders one block per sentence in the given order.
func (p *Presenter) Blocks(sentences []string) []string {
	block := p.styles.Block
	if p.width > 0 {
		// Width includes padding but not the border.
		inner := p.width - block.GetHorizontalBorderSize()
		if inner > 0 {
			block = block.Width(inner)
		}
	}
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, block.Render(s))
	}
	return out
}

// Render draws the header, every block and the action hint.
func (p *Presenter) Render(sentences []string) string {
	var sb strings.Builder
	sb.WriteString(p.styles.Header.Render(Header))
	sb.WriteString("\n")
	for _, b := range p.Blocks(sentences) {
		sb.WriteString(b)
		sb.WriteString("\n")
	}
	sb.WriteString(p.styles.Action.Render("[n] " + ActionLabel))
	return sb.String()
}

// GenerateNew fires the reset action.
func (p *Presenter) GenerateNew() {
	if p.onGenerated != nil {
		p.onGenerated()
	}
}
