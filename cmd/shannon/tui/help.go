package tui

import (
	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# shannon

Train an n-gram model on a plain-text file and read the sentences it writes.

## Uploading

- Drag a **.txt** file onto the terminal, or paste its path into the box and press **enter**.
- Press **ctrl+o** to browse for a file.
- Only one file is accepted at a time. Dropping several rejects all of them.

## Parameters

| Field | Range | Meaning |
|---|---|---|
| Model Strength | 1-4 | n-gram order: Very Weak, Weak, Strong, Very Strong |
| Number of Sentences | 1-10 | how many sentences to ask for |

Use **tab** to move between fields and **←/→** to adjust a value.

## Generating

Press **ctrl+s** (or **enter** on the Generate button). While the request is
in flight the form is locked. When sentences arrive press **n** to start over.

If a request fails you can press **r** to retry it or **n** to start over.

Press **?** or **f1** to close this page.
`

// renderHelp renders the help page for the given width and theme.
func renderHelp(width int, dark bool) (string, error) {
	style := "light"
	if dark {
		style = "dark"
	}
	if width < 20 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return "", err
	}
	return r.Render(helpMarkdown)
}
