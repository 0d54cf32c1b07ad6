// Package tools implements the sandboxed actions the agent can request:
// file reads, writes, and edits, shell commands, and web search/fetch. Every
// file path is resolved through security.Workspace before I/O, and every
// output body is bounded by the shared truncation routine.
package tools

import "strings"

// Interop-critical limits. These must not drift: the agent side and the
// stored transcripts assume them.
const (
	maxReadLines        = 1000
	maxLineLength       = 2000
	maxFileBytes        = 100_000
	maxOutputChars      = 50_000
	maxOutputLineLength = 2000

	outputTruncationMarker = "[...truncated]"
	lineTruncationMarker   = "..."
)

// Output is the result of one tool invocation. Summary always states
// whether the body was truncated; Body is bounded by maxOutputChars.
type Output struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
	Body    string `json:"output"`
}

func fail(summary string) Output {
	return Output{OK: false, Summary: summary}
}

// truncateLine bounds one read-file line, appending "..." when cut.
func truncateLine(line string) (string, bool) {
	runes := []rune(line)
	if len(runes) <= maxLineLength {
		return line, false
	}
	take := maxLineLength - len(lineTruncationMarker)
	return string(runes[:take]) + lineTruncationMarker, true
}

// truncateOutput bounds combined tool output. Lines longer than
// maxOutputLineLength are cut with a marker, keeping their line terminator;
// accumulation stops at maxOutputChars, cutting the final partial line
// exactly at the budget boundary. Truncating already-truncated output is a
// no-op.
func truncateOutput(text string) (string, bool) {
	var out strings.Builder
	total := 0
	truncated := false

	for _, line := range splitAfterLines(text) {
		if total >= maxOutputChars {
			truncated = true
			break
		}

		body, lineBreak := splitLineBreak(line)
		bounded, cut := truncateOutputLine(body, lineBreak)
		if cut {
			truncated = true
		}

		remaining := maxOutputChars - total
		runes := []rune(bounded)
		if len(runes) > remaining {
			out.WriteString(string(runes[:remaining]))
			truncated = true
			break
		}
		out.WriteString(bounded)
		total += len(runes)
	}

	return out.String(), truncated
}

func truncateOutputLine(body, lineBreak string) (string, bool) {
	runes := []rune(body)
	if len(runes) <= maxOutputLineLength {
		return body + lineBreak, false
	}
	take := maxOutputLineLength - len([]rune(outputTruncationMarker))
	return string(runes[:take]) + outputTruncationMarker + lineBreak, true
}

// splitAfterLines splits text into segments that keep their trailing
// newline. The final segment may have none.
func splitAfterLines(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.SplitAfter(text, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func splitLineBreak(line string) (body, lineBreak string) {
	if stripped, ok := strings.CutSuffix(line, "\r\n"); ok {
		return stripped, "\r\n"
	}
	if stripped, ok := strings.CutSuffix(line, "\n"); ok {
		return stripped, "\n"
	}
	return line, ""
}

// appendTruncation folds the truncation notice into a summary sentence
// without doubling punctuation.
func appendTruncation(summary string, truncated bool) string {
	if !truncated {
		return summary
	}
	const notice = "Output is truncated to fit in the message."
	switch {
	case summary == "":
		return notice
	case strings.HasSuffix(summary, "."):
		return summary + " " + notice
	default:
		return summary + ". " + notice
	}
}
