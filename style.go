package main

import (
	"os"

	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const wrapAt = 78

var keywordStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"})

// keyword highlights a word in help text.
func keyword(s string) string {
	return keywordStyle.Render(s)
}

// paragraph wraps and indents help text.
func paragraph(s string) string {
	return indent.String(wordwrap.String(s, wrapAt-2), 2)
}

// glamourStyle picks a terminal-appropriate markdown style for --print.
func glamourStyle() string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return styles.NoTTYStyle
	}
	if termenv.HasDarkBackground() {
		return styles.DarkStyle
	}
	return styles.LightStyle
}
