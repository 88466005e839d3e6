package script

import (
	"strings"
	"testing"
)

func assertScript(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("script length = %d, want %d\ngot:  %q\nwant: %q", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("script[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestExtractor_Markdown tests block extraction in document order.
func TestExtractor_Markdown(t *testing.T) {
	src := strings.Join([]string{
		"# Title",
		"",
		"Intro paragraph with *emphasis* and `code`.",
		"",
		"- first item",
		"- second item",
		"",
		"> A quoted thought.",
		"",
		"Closing words.",
	}, "\n")

	got, err := NewExtractor(Options{}).Markdown([]byte(src))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{
		"Title",
		"Intro paragraph with emphasis and code.",
		"first item",
		"second item",
		"A quoted thought.",
		"Closing words.",
	})
}

// TestExtractor_Markdown_CodeBlocks tests that code is skipped by default
// and spoken when asked for.
func TestExtractor_Markdown_CodeBlocks(t *testing.T) {
	src := "Before.\n\n```go\nfunc main() {}\n```\n\nAfter."

	got, err := NewExtractor(Options{}).Markdown([]byte(src))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{"Before.", "After."})

	got, err = NewExtractor(Options{IncludeCode: true}).Markdown([]byte(src))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{"Before.", "func main() {}", "After."})
}

// TestExtractor_Markdown_Links tests that link labels are spoken and
// targets dropped.
func TestExtractor_Markdown_Links(t *testing.T) {
	got, err := NewExtractor(Options{}).Markdown([]byte("See [the docs](https://example.com/docs) for more."))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{"See the docs for more."})
}

// TestExtractor_Markdown_AutoLinks tests that bare URLs are never spoken.
func TestExtractor_Markdown_AutoLinks(t *testing.T) {
	got, err := NewExtractor(Options{}).Markdown([]byte("Visit <https://example.com> now."))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{"Visit now."})
}

// TestExtractor_Markdown_NestedLists tests that nested items become their
// own utterances.
func TestExtractor_Markdown_NestedLists(t *testing.T) {
	src := "- outer\n  - inner\n- last"

	got, err := NewExtractor(Options{}).Markdown([]byte(src))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{"outer", "inner", "last"})
}

// TestExtractor_Markdown_SkipsNoise tests that rules and raw HTML produce
// nothing.
func TestExtractor_Markdown_SkipsNoise(t *testing.T) {
	src := "Para one.\n\n---\n\n<div>ignored</div>\n\nPara two."

	got, err := NewExtractor(Options{}).Markdown([]byte(src))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	assertScript(t, got, []string{"Para one.", "Para two."})
}

// TestExtractor_Markdown_Empty tests the empty document.
func TestExtractor_Markdown_Empty(t *testing.T) {
	got, err := NewExtractor(Options{}).Markdown(nil)
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("script = %q, want empty", got)
	}
}

// TestExtractor_PlainText tests paragraph splitting on blank lines.
func TestExtractor_PlainText(t *testing.T) {
	src := "First paragraph\nstill first.\n\nSecond   paragraph.\n\n\n\nThird."

	got := NewExtractor(Options{}).PlainText(src)
	assertScript(t, got, []string{
		"First paragraph still first.",
		"Second paragraph.",
		"Third.",
	})
}

// TestExtractor_PlainText_WindowsLineEndings tests CRLF separators.
func TestExtractor_PlainText_WindowsLineEndings(t *testing.T) {
	got := NewExtractor(Options{}).PlainText("one\r\n\r\ntwo")
	assertScript(t, got, []string{"one", "two"})
}

// TestCleanForSpeech tests symbol and URL rewriting.
func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "comparison operators",
			in:   "x >= 1 && y != 2",
			want: "x greater or equal 1 and y not equal 2",
		},
		{
			name: "parenthesized url",
			in:   "see the guide (https://example.com/guide) today",
			want: "see the guide today",
		},
		{
			name: "bare url",
			in:   "ship it https://example.com/x now",
			want: "ship it now",
		},
		{
			name: "stuttered punctuation",
			in:   "wow!!! really??",
			want: "wow! really?",
		},
		{
			name: "arrows",
			in:   "a -> b => c",
			want: "a to b to c",
		},
		{
			name: "common symbols",
			in:   "100% done @ home, issue #42",
			want: "100 percent done at home, issue number 42",
		},
		{
			name: "space before punctuation",
			in:   "hello , world",
			want: "hello, world",
		},
		{
			name: "whitespace collapse",
			in:   "  so   much\t\tspace  ",
			want: "so much space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanForSpeech(tt.in); got != tt.want {
				t.Errorf("CleanForSpeech(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
