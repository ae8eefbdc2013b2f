package parse

import (
	"regexp"
	"strings"
)

var attributionLine = regexp.MustCompile(`(?i)^on .{0,200}wrote:\s*$`)

// CleanBody strips quoted-reply lines, "On ... wrote:" attribution lines,
// and everything below a signature separator. The result is what gets
// chunked and embedded: the author's own words.
func CleanBody(body string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "--" || trimmed == "-- " {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if attributionLine.MatchString(trimmed) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ExtractSnippet cleans a message body and truncates it to at most max
// characters, cutting at the nearest sentence, line, or word boundary and
// appending an ellipsis when content was dropped.
func ExtractSnippet(body string, max int) string {
	cleaned := CleanBody(body)
	runes := []rune(cleaned)
	if len(runes) <= max {
		return cleaned
	}

	window := string(runes[:max])
	cut := len(window)
	for _, boundary := range []string{". ", "\n", " "} {
		if idx := strings.LastIndex(window, boundary); idx > 0 {
			cut = idx + len(boundary)
			break
		}
	}

	return strings.TrimSpace(window[:cut]) + "..."
}
