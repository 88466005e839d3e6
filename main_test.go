package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/hum/tts/hume"
)

// TestIsMarkdownPath checks extension-based markdown detection.
func TestIsMarkdownPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"notes.MD", true},
		{"doc.markdown", true},
		{"doc.mkd", true},
		{"notes.txt", false},
		{"Makefile", false},
		{"md", false},
	}
	for _, tt := range tests {
		if got := isMarkdownPath(tt.path); got != tt.want {
			t.Errorf("isMarkdownPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

// TestSourceFromArg_File resolves an existing file and flags markdown by
// extension.
func TestSourceFromArg_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := sourceFromArg(path)
	if err != nil {
		t.Fatalf("sourceFromArg() error = %v", err)
	}
	defer src.reader.Close()

	if !src.markdown {
		t.Error("a .md file should be treated as markdown")
	}
	b, err := io.ReadAll(src.reader)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "# Hello\n" {
		t.Errorf("read %q, want %q", b, "# Hello\n")
	}
}

// TestSourceFromArg_Directory discovers a README inside a directory.
func TestSourceFromArg_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.md"), []byte("docs\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	src, err := sourceFromArg(dir)
	if err != nil {
		t.Fatalf("sourceFromArg() error = %v", err)
	}
	defer src.reader.Close()

	if !src.markdown {
		t.Error("a README should be treated as markdown")
	}
	if filepath.Base(src.name) != "readme.md" {
		t.Errorf("source name = %q, want a readme path", src.name)
	}
}

// TestSourceFromArg_MissingReadme reports a missing source for empty
// directories.
func TestSourceFromArg_MissingReadme(t *testing.T) {
	if _, err := sourceFromArg(t.TempDir()); err == nil {
		t.Error("expected an error for a directory without a README")
	}
}

// TestSourceFromArg_LiteralFallback speaks unresolvable arguments as text.
func TestSourceFromArg_LiteralFallback(t *testing.T) {
	src, err := sourceFromArg("just say these words")
	if err != nil {
		t.Fatalf("sourceFromArg() error = %v", err)
	}
	defer src.reader.Close()

	if src.markdown {
		t.Error("literal text should not be treated as markdown")
	}
	b, _ := io.ReadAll(src.reader)
	if string(b) != "just say these words" {
		t.Errorf("read %q, want the literal text", b)
	}
}

// TestSourceFromArg_Stdin maps - to standard input.
func TestSourceFromArg_Stdin(t *testing.T) {
	src, err := sourceFromArg("-")
	if err != nil {
		t.Fatalf("sourceFromArg() error = %v", err)
	}
	if src.name != "stdin" {
		t.Errorf("source name = %q, want %q", src.name, "stdin")
	}
	if !src.markdown {
		t.Error("stdin should be treated as markdown")
	}
}

// TestSourceFromArg_UnsupportedScheme rejects non-http URLs.
func TestSourceFromArg_UnsupportedScheme(t *testing.T) {
	if _, err := sourceFromArg("ftp://example.com/readme"); err == nil {
		t.Error("expected an error for an ftp URL")
	}
}

// TestBuildScript_Markdown turns a document into cleaned utterances.
func TestBuildScript_Markdown(t *testing.T) {
	doc := []byte("# Progress\n\nWe are 100% done.\n\n- first item\n- second item\n")

	parts, err := buildScript(doc, true)
	if err != nil {
		t.Fatalf("buildScript() error = %v", err)
	}

	want := []string{
		"Progress",
		"We are 100 percent done.",
		"first item",
		"second item",
	}
	if len(parts) != len(want) {
		t.Fatalf("got %d parts %v, want %d", len(parts), parts, len(want))
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, parts[i], want[i])
		}
	}
}

// TestBuildScript_PlainText splits paragraphs without markdown parsing.
func TestBuildScript_PlainText(t *testing.T) {
	parts, err := buildScript([]byte("First paragraph.\n\nSecond one\nacross two lines.\n"), false)
	if err != nil {
		t.Fatalf("buildScript() error = %v", err)
	}

	want := []string{"First paragraph.", "Second one across two lines."}
	if len(parts) != len(want) {
		t.Fatalf("got %v, want %v", parts, want)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d = %q, want %q", i, parts[i], want[i])
		}
	}
}

// TestBuildScript_Empty reports nothing for whitespace-only input.
func TestBuildScript_Empty(t *testing.T) {
	parts, err := buildScript([]byte("   \n\n  "), true)
	if err != nil {
		t.Fatalf("buildScript() error = %v", err)
	}
	if len(parts) != 0 {
		t.Errorf("got %v, want no parts", parts)
	}
}

// TestMatchVoices ranks fuzzy matches best first.
func TestMatchVoices(t *testing.T) {
	voices := []hume.CustomVoice{
		{ID: "v1", Name: "Guide"},
		{ID: "v2", Name: "Narrator"},
		{ID: "v3", Name: "Navigator"},
	}

	got := matchVoices(voices, "nar")
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Name != "Narrator" {
		t.Errorf("best match = %q, want %q", got[0].Name, "Narrator")
	}

	if got := matchVoices(voices, "zzz"); len(got) != 0 {
		t.Errorf("got %d matches for a nonsense query, want 0", len(got))
	}
}

// TestVoicesTable renders names, ids, and relative timestamps.
func TestVoicesTable(t *testing.T) {
	voices := []hume.CustomVoice{
		{
			ID:        "8f2e1a9c",
			Name:      "Narrator",
			BaseVoice: "ITO",
			CreatedOn: time.Now().Add(-2 * time.Hour).UnixMilli(),
		},
	}

	out := voicesTable(voices)
	for _, want := range []string{"NAME", "VOICE ID", "Narrator", "8f2e1a9c", "hours ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table should contain %q, got:\n%s", want, out)
		}
	}
}
