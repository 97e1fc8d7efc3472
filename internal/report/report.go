// Package report renders prediction results for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Brownie44l1/stethoscope-api/internal/model"
)

// Theme defines the color scheme.
type Theme struct {
	Primary lipgloss.Color
	Warn    lipgloss.Color
	Error   lipgloss.Color
	Dim     lipgloss.Color
}

var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#ffb86c"),
	Error:   lipgloss.Color("#ff5555"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Bar    lipgloss.Style
	Warn   lipgloss.Style
	Error  lipgloss.Style
	Dim    lipgloss.Style
	Border lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:  lipgloss.NewStyle().Bold(true),
		Bar:    lipgloss.NewStyle().Foreground(t.Primary),
		Warn:   lipgloss.NewStyle().Bold(true).Foreground(t.Warn),
		Error:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
		Border: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Primary).Padding(0, 1),
	}
}

// BarWidth is the width of a 100% probability bar.
const BarWidth = 30

// Render draws one result: file name, verdict, recording info, and a bar per
// class when probabilities are available.
func Render(s Styles, name string, res model.Result) string {
	var lines []string

	lines = append(lines, s.Title.Render(name)+" "+s.Dim.Render("["+res.Outcome.String()+"]"))
	lines = append(lines, "")
	lines = append(lines, verdict(s, res))

	if res.Signal != nil {
		lines = append(lines, s.Dim.Render(fmt.Sprintf("%.2fs @ %d Hz", res.Signal.Duration(), res.Signal.SampleRate)))
	}
	if res.Spectrogram != nil {
		lines = append(lines, s.Dim.Render(res.Spectrogram.String()))
	}

	if res.Probabilities != nil {
		lines = append(lines, "")
		lines = append(lines, bars(s, res.Probabilities)...)
	}

	if res.Err != nil {
		lines = append(lines, "", s.Error.Render("error: ")+res.Err.Error())
	}

	return s.Border.Render(strings.Join(lines, "\n"))
}

func verdict(s Styles, res model.Result) string {
	switch res.Outcome {
	case model.OutcomeClassified:
		return s.Label.Render("Class: ") + s.Title.Render(res.Label) + fmt.Sprintf(" (%.2f)", res.Confidence)
	case model.OutcomeLowConfidence:
		return s.Label.Render("Class: ") + s.Warn.Render(res.Label) +
			fmt.Sprintf(" (best %.2f < %.2f)", res.Confidence, model.ConfidenceThreshold)
	case model.OutcomeModelUnavailable:
		return s.Label.Render("Class: ") + s.Error.Render(res.Label) + " (model unavailable)"
	default:
		return s.Error.Render("No prediction")
	}
}

func bars(s Styles, probs []float32) []string {
	width := 0
	for _, name := range model.Labels.Names() {
		width = max(width, len(name))
	}

	lines := make([]string, 0, len(probs))
	for i, p := range probs {
		name, ok := model.Labels.Name(i)
		if !ok {
			name = fmt.Sprintf("#%d", i)
		}
		n := int(float32(BarWidth)*p + 0.5)
		n = min(max(n, 0), BarWidth)
		bar := s.Bar.Render(strings.Repeat("█", n)) + s.Dim.Render(strings.Repeat("·", BarWidth-n))
		lines = append(lines, fmt.Sprintf("%-*s %s %5.1f%%", width, name, bar, p*100))
	}
	return lines
}
