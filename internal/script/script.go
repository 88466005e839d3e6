// Package script turns documents into an ordered list of utterances ready
// for synthesis. Markdown is walked block by block; plain text splits on
// blank lines.
package script

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Options controls what ends up in the script.
type Options struct {
	// IncludeCode speaks code blocks instead of skipping them.
	IncludeCode bool
}

// Extractor builds speakable scripts from source documents.
type Extractor struct {
	md   goldmark.Markdown
	opts Options
}

// NewExtractor returns an extractor with the given options.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{
		md:   goldmark.New(),
		opts: opts,
	}
}

// Markdown walks the document and returns one utterance per speakable
// block: headings, paragraphs, list items, and blockquotes, in document
// order. Code blocks are skipped unless IncludeCode is set; raw URLs are
// never spoken.
func (e *Extractor) Markdown(source []byte) ([]string, error) {
	doc := e.md.Parser().Parse(text.NewReader(source))

	var script []string
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if line := flattenText(node, source); line != "" {
				script = append(script, line)
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			// Paragraphs inside list items are collected by the item.
			if _, ok := node.Parent().(*ast.ListItem); ok {
				return ast.WalkSkipChildren, nil
			}
			if line := flattenText(node, source); line != "" {
				script = append(script, line)
			}
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			// Take the item's own text; nested lists and quotes are
			// visited on their own turn.
			var parts []string
			for child := node.FirstChild(); child != nil; child = child.NextSibling() {
				switch child.(type) {
				case *ast.List, *ast.Blockquote:
					continue
				}
				if s := flattenText(child, source); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				script = append(script, strings.Join(parts, " "))
			}
			return ast.WalkContinue, nil

		case *ast.Blockquote:
			if line := flattenText(node, source); line != "" {
				script = append(script, line)
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if !e.opts.IncludeCode {
				return ast.WalkSkipChildren, nil
			}
			if code := blockLines(n, source); code != "" {
				script = append(script, code)
			}
			return ast.WalkSkipChildren, nil

		case *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk markdown: %w", err)
	}
	return script, nil
}

// PlainText splits prose into one utterance per paragraph, treating any
// blank line as a separator and collapsing internal whitespace.
func (e *Extractor) PlainText(source string) []string {
	var script []string
	for _, block := range blankLine.Split(source, -1) {
		if text := strings.Join(strings.Fields(block), " "); text != "" {
			script = append(script, text)
		}
	}
	return script
}

var blankLine = regexp.MustCompile(`\r?\n[ \t]*\r?\n+`)

// flattenText renders a node's text content as a single line. Inline code
// reads as its literal text, link labels are kept and their targets
// dropped, and bare autolinked URLs vanish entirely.
func flattenText(node ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.AutoLink:
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			// Alt text is close enough to a caption to speak.
			return ast.WalkContinue, nil
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

// blockLines joins the raw lines of a code block.
func blockLines(node ast.Node, source []byte) string {
	var lines []string
	for i := 0; i < node.Lines().Len(); i++ {
		seg := node.Lines().At(i)
		lines = append(lines, strings.TrimRight(string(seg.Value(source)), "\n"))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// spokenSymbols maps characters that synthesis tends to mangle onto words.
// Compound symbols come first so "->" never reads as two words.
var spokenSymbols = []struct{ sym, word string }{
	{">=", " greater or equal "},
	{"<=", " less or equal "},
	{"!=", " not equal "},
	{"==", " equals "},
	{"->", " to "},
	{"=>", " to "},
	{"&&", " and "},
	{"||", " or "},
	{"&", " and "},
	{"@", " at "},
	{"#", " number "},
	{"%", " percent "},
	{"<", " less than "},
	{">", " greater than "},
}

var (
	parenthesizedURL = regexp.MustCompile(`\((?:https?|ftp)://[^)\s]*\)`)
	bareURL          = regexp.MustCompile(`(?:https?|ftp)://\S+`)
	repeatedStops    = regexp.MustCompile(`([.!?])[.!?]+`)
	spaceBeforeStop  = regexp.MustCompile(`\s+([,.!?;:])`)
)

// CleanForSpeech rewrites text so synthesis reads it naturally: URLs are
// dropped, symbols become words, and whitespace is normalized.
func CleanForSpeech(text string) string {
	text = parenthesizedURL.ReplaceAllString(text, "")
	text = bareURL.ReplaceAllString(text, "")

	for _, r := range spokenSymbols {
		text = strings.ReplaceAll(text, r.sym, r.word)
	}

	text = repeatedStops.ReplaceAllString(text, "$1")
	text = spaceBeforeStop.ReplaceAllString(text, "$1")
	return strings.Join(strings.Fields(text), " ")
}
