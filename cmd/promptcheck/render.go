package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
)

var (
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB000"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3FB950"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E"))
)

// renderAnalysis writes the model's markdown, formatted unless plain is set.
// A renderer failure falls back to the raw text.
func renderAnalysis(w io.Writer, analysis string, plain bool) error {
	if plain {
		_, err := fmt.Fprintln(w, analysis)
		return err
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		var out string
		if out, err = renderer.Render(analysis); err == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, err = fmt.Fprintln(w, analysis)
	return err
}

// renderVerdict prints one styled line; an unknown verdict prints nothing.
func renderVerdict(w io.Writer, v bias.Verdict, plain bool) error {
	msg := v.Message()
	if msg == "" {
		return nil
	}
	if !plain {
		switch v {
		case bias.VerdictExceedsTolerance:
			msg = warningStyle.Render("⚠ " + msg)
		case bias.VerdictWithinTolerance:
			msg = successStyle.Render("✔ " + msg)
		}
	}
	_, err := fmt.Fprintln(w, msg)
	return err
}
