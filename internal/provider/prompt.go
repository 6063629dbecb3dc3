package provider

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BugRescue/BugRescue/internal/domain"
)

var codeFenceRegexp = regexp.MustCompile("(?s)```(?:\\w+)?\\s*\\n(.*?)```")

// BuildPrompt renders the repair instruction for a request
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Act as a Senior Engineer. Fix this code.\n")
	if req.Language != domain.LangUnknown {
		fmt.Fprintf(&b, "LANGUAGE: %s\n", req.Language)
	}
	fmt.Fprintf(&b, "ERROR: %s\n", req.Error)
	fmt.Fprintf(&b, "CODE: %s\n", req.Source)
	b.WriteString("INSTRUCTION: Return ONLY the complete fixed code.")
	return b.String()
}

// TruncateError keeps the last max bytes of a run's error output; the
// tail is where compilers and runtimes put the actionable part
func TruncateError(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	return text[len(text)-max:]
}

// ExtractCode pulls the first fenced code block out of a model reply.
// Replies without a fence are returned with stray fence markers removed.
func ExtractCode(raw string) string {
	if m := codeFenceRegexp.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(strings.ReplaceAll(raw, "```", ""))
}
