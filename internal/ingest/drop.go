package ingest

import (
	"net/url"
	"strings"
)

// ParseDropped splits text pasted into the terminal by a drag-and-drop into
// file paths. Terminals quote paths with single or double quotes, escape
// spaces with backslashes, or send file:// URIs; all three are handled.
func ParseDropped(text string) []string {
	var (
		paths []string
		cur   strings.Builder
		quote rune
		esc   bool
		have  bool
	)
	flush := func() {
		if have {
			paths = append(paths, fromURI(cur.String()))
		}
		cur.Reset()
		have = false
	}

	for _, r := range strings.TrimSpace(text) {
		switch {
		case esc:
			cur.WriteRune(r)
			esc = false
		case r == '\\' && quote != '\'':
			esc = true
			have = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			have = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
			have = true
		}
	}
	flush()
	return paths
}

func fromURI(s string) string {
	if !strings.HasPrefix(s, "file://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil || u.Path == "" {
		return s
	}
	return u.Path
}
