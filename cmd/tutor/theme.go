package main

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Palette colors for the two display modes.
var (
	lightAgent   = lipgloss.Color("#101F38")
	lightLearner = lipgloss.Color("#2E7D32")
	lightNotice  = lipgloss.Color("#6B7280")

	darkAgent   = lipgloss.Color("#8BC34A")
	darkLearner = lipgloss.Color("#64B5F6")
	darkNotice  = lipgloss.Color("#9CA3AF")
)

// theme styles the speaker labels of the terminal chat.
type theme struct {
	dark    bool
	agent   lipgloss.Style
	learner lipgloss.Style
	notice  lipgloss.Style
}

func newTheme(w io.Writer, dark bool) theme {
	r := lipgloss.NewRenderer(w)
	agent, learner, notice := lightAgent, lightLearner, lightNotice
	if dark {
		agent, learner, notice = darkAgent, darkLearner, darkNotice
	}
	return theme{
		dark:    dark,
		agent:   r.NewStyle().Bold(true).Foreground(agent),
		learner: r.NewStyle().Bold(true).Foreground(learner),
		notice:  r.NewStyle().Italic(true).Foreground(notice),
	}
}

func (t theme) name() string {
	if t.dark {
		return "dark"
	}
	return "light"
}
