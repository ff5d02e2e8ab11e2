package connection

import (
	"regexp"
	"strings"
)

var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// Normalize canonicalizes device output: ANSI escape sequences are removed,
// CRLF becomes LF, stray CR is dropped, and trailing whitespace is trimmed
// per line. Normalize is idempotent.
func Normalize(text string) string {
	text = ansiEscapePattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// StripAnsiEscapeCodes removes ANSI CSI sequences only.
func StripAnsiEscapeCodes(text string) string {
	return ansiEscapePattern.ReplaceAllString(text, "")
}

// stripCommandEcho removes the leading echoed command, matching the exact
// text followed by an optional CR and newline.
func stripCommandEcho(output, cmd string) string {
	if cmd == "" {
		return output
	}
	echo := regexp.MustCompile(`(?m)^` + regexp.QuoteMeta(cmd) + `[ \t]*\r?\n`)
	if loc := echo.FindStringIndex(output); loc != nil {
		return output[:loc[0]] + output[loc[1]:]
	}
	return output
}

// stripTrailingPrompt drops the final line when it matches the prompt regex.
func stripTrailingPrompt(output string, prompt *regexp.Regexp) string {
	if prompt == nil {
		return output
	}
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimRight(lines[i], "\r \t")
		if trimmed == "" {
			continue
		}
		if prompt.MatchString(trimmed) {
			return strings.Join(lines[:i], "\n")
		}
		break
	}
	return output
}
