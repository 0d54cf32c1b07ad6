package tools

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateOutputShortTextUnchanged(t *testing.T) {
	text := "hello\nworld\n"
	got, truncated := truncateOutput(text)
	if truncated {
		t.Fatal("short text reported as truncated")
	}
	if got != text {
		t.Fatalf("got %q, want %q", got, text)
	}
}

func TestTruncateOutputLongLineMarked(t *testing.T) {
	long := strings.Repeat("a", maxOutputLineLength+500)
	got, truncated := truncateOutput(long + "\nok\n")
	if !truncated {
		t.Fatal("expected truncation")
	}
	lines := strings.Split(got, "\n")
	if !strings.HasSuffix(lines[0], outputTruncationMarker) {
		t.Fatalf("first line missing marker: %q", lines[0][len(lines[0])-30:])
	}
	if utf8.RuneCountInString(lines[0]) != maxOutputLineLength {
		t.Fatalf("bounded line is %d runes, want %d", utf8.RuneCountInString(lines[0]), maxOutputLineLength)
	}
	if lines[1] != "ok" {
		t.Fatalf("second line not preserved: %q", lines[1])
	}
}

func TestTruncateOutputKeepsCRLF(t *testing.T) {
	long := strings.Repeat("b", maxOutputLineLength+10)
	got, truncated := truncateOutput(long + "\r\nnext\r\n")
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !strings.Contains(got, outputTruncationMarker+"\r\n") {
		t.Fatal("CRLF terminator lost on truncated line")
	}
}

func TestTruncateOutputGlobalBudget(t *testing.T) {
	line := strings.Repeat("x", 100) + "\n"
	text := strings.Repeat(line, maxOutputChars/100+50)

	got, truncated := truncateOutput(text)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if n := utf8.RuneCountInString(got); n > maxOutputChars {
		t.Fatalf("output is %d runes, budget is %d", n, maxOutputChars)
	}
}

func TestTruncateOutputIdempotent(t *testing.T) {
	long := strings.Repeat("line with some text\n", 5000) +
		strings.Repeat("z", maxOutputLineLength*2) + "\n"

	once, truncated := truncateOutput(long)
	if !truncated {
		t.Fatal("expected truncation on first pass")
	}
	twice, truncated := truncateOutput(once)
	if truncated {
		t.Fatal("second pass reported new truncation")
	}
	if twice != once {
		t.Fatal("second pass changed already-truncated output")
	}
}

func TestAppendTruncation(t *testing.T) {
	cases := []struct {
		summary   string
		truncated bool
		want      string
	}{
		{"Command executed successfully.", false, "Command executed successfully."},
		{"Command executed successfully.", true, "Command executed successfully. Output is truncated to fit in the message."},
		{"Search completed", true, "Search completed. Output is truncated to fit in the message."},
		{"", true, "Output is truncated to fit in the message."},
	}
	for _, tc := range cases {
		if got := appendTruncation(tc.summary, tc.truncated); got != tc.want {
			t.Errorf("appendTruncation(%q, %v) = %q, want %q", tc.summary, tc.truncated, got, tc.want)
		}
	}
}
