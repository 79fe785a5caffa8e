package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jfmyers9/playwait/internal/journal"
	"github.com/jfmyers9/playwait/internal/scenario"
	"github.com/mattn/go-runewidth"
)

func TestPadToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "no padding when width is 0",
			input:    "Hello",
			width:    0,
			expected: "Hello",
		},
		{
			name:     "no padding when width is negative",
			input:    "Hello",
			width:    -1,
			expected: "Hello",
		},
		{
			name:     "pad short text with spaces",
			input:    "Hi",
			width:    10,
			expected: "Hi        ",
		},
		{
			name:     "exact width unchanged",
			input:    "Hello",
			width:    5,
			expected: "Hello",
		},
		{
			name:     "truncate long text with ellipsis",
			input:    "not settled within 10s: context deadline exceeded",
			width:    20,
			expected: "not settled withi...",
		},
		{
			name:     "handle unicode characters",
			input:    "日本語",
			width:    10,
			expected: "日本語    ",
		},
		{
			name:     "truncate unicode text",
			input:    "日本語とても長いテキスト",
			width:    10,
			expected: "日本語... ", // 6 columns of text, 3 of ellipsis, 1 space
		},
		{
			name:     "empty string padding",
			input:    "",
			width:    5,
			expected: "     ",
		},
		{
			name:     "minimum width for truncation",
			input:    "Hello",
			width:    3,
			expected: "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := padToWidth(tt.input, tt.width)
			if result != tt.expected {
				t.Errorf("padToWidth(%q, %d) = %q, expected %q",
					tt.input, tt.width, result, tt.expected)
			}

			if tt.width > 0 {
				resultWidth := runewidth.StringWidth(result)
				if resultWidth != tt.width {
					t.Errorf("padToWidth(%q, %d) produced width %d, expected %d",
						tt.input, tt.width, resultWidth, tt.width)
				}
			}
		})
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"1", "setSource", "a.mp4"},
		{"22", "seekToEnd", "multi\nline\tdetail"},
	}

	if err := writeTable(&buf, []string{"#", "OP", "DETAIL"}, rows, 0); err != nil {
		t.Fatalf("writeTable failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "#   OP         DETAIL" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "22  seekToEnd  multi line detail" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestWriteTableTruncatesLastColumn(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{{"1", strings.Repeat("x", 50)}}

	if err := writeTable(&buf, []string{"#", "DETAIL"}, rows, 20); err != nil {
		t.Fatalf("writeTable failed: %v", err)
	}

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if w := runewidth.StringWidth(line); w > 20 {
			t.Errorf("line %q is %d columns wide, expected at most 20", line, w)
		}
	}
	if !strings.Contains(buf.String(), "...") {
		t.Errorf("expected truncation ellipsis in %q", buf.String())
	}
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	results := []scenario.StepResult{
		{Index: 0, Op: scenario.OpWaitForReady, Elapsed: 12 * time.Millisecond},
		{Index: 1, Op: scenario.OpPlay, Elapsed: time.Second, Err: errors.New("simplayer: no source")},
	}

	if err := printResults(&buf, results, 4, 0); err != nil {
		t.Fatalf("printResults failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"waitForReady", "0.012s", "FAIL", "simplayer: no source", "1/4 steps passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintSession(t *testing.T) {
	var buf bytes.Buffer
	start := time.Unix(1700000000, 0)

	steps := []journal.StepRecord{{Index: 0, Op: "setSource", Elapsed: time.Millisecond}}
	events := []journal.EventRecord{
		{Event: "sourceset", Timestamp: start},
		{Event: "timeupdate", MediaTime: 250 * time.Millisecond, Timestamp: start.Add(300 * time.Millisecond)},
	}

	if err := printSession(&buf, steps, events, 0); err != nil {
		t.Fatalf("printSession failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"setSource", "sourceset", "+0.300s", "0.250s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := printSession(&buf, nil, nil, 0); err != nil {
		t.Fatalf("printSession failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No steps or events") {
		t.Errorf("unexpected empty output %q", buf.String())
	}
}

func TestSessionResult(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		session journal.Session
		want    string
	}{
		{"running", journal.Session{StartedAt: now}, "running"},
		{"passed", journal.Session{StartedAt: now, FinishedAt: now}, "passed"},
		{"failed", journal.Session{StartedAt: now, FinishedAt: now, Error: "boom"}, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sessionResult(tt.session); got != tt.want {
				t.Errorf("sessionResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug").String() != "debug" {
		t.Error("expected debug level")
	}
	if parseLevel("bogus").String() != "info" {
		t.Error("expected unknown levels to default to info")
	}
}
