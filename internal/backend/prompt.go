package backend

import (
	"fmt"
	"regexp"
	"strings"

	"shannon/internal/generation"
)

// maxPromptContent caps how much of the upload is sent to a hosted model.
const maxPromptContent = 32 * 1024

const systemPrompt = `You imitate the vocabulary and style of a source text.
Reply with new sentences only, one per line, with no numbering, bullets or commentary.`

// temperature maps strength to sampling temperature: a stronger model
// follows the source more closely.
func temperature(strength int) float64 {
	switch strength {
	case 1:
		return 1.3
	case 2:
		return 1.0
	case 3:
		return 0.7
	default:
		return 0.4
	}
}

func userPrompt(req generation.Request) string {
	content := req.FileContent
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	return fmt.Sprintf("Source text:\n---\n%s\n---\n\nWrite %d new sentences in the style of the source text.", content, req.NumSentences)
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// splitSentences turns a model reply into at most limit sentences.
func splitSentences(reply string, limit int) []string {
	out := []string{}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}
