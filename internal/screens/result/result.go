// Package result shows the outcome of one prediction.
package result

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/screens/summary"
	"github.com/abhisek/heartrisk/internal/ui/components"
	"github.com/abhisek/heartrisk/internal/ui/layout"
	"github.com/abhisek/heartrisk/internal/ui/theme"
)

// ResultScreen renders the probabilities, the risk bar and the risk banner.
type ResultScreen struct {
	deps screen.Deps
	rec  features.Record
	res  predict.Result
}

var _ screen.Screen = (*ResultScreen)(nil)
var _ screen.KeyHintProvider = (*ResultScreen)(nil)

// New creates a ResultScreen.
func New(deps screen.Deps, rec features.Record, res predict.Result) *ResultScreen {
	return &ResultScreen{deps: deps, rec: rec, res: res}
}

func (s *ResultScreen) Init() tea.Cmd {
	return nil
}

func (s *ResultScreen) Title() string {
	return "Result"
}

func (s *ResultScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "S", Description: "Input summary"},
		{Key: "Enter", Description: "Edit input"},
		{Key: "H", Description: "Home"},
	}
}

func (s *ResultScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "s":
			sum := summary.New(s.deps)
			return s, func() tea.Msg { return router.PushScreenMsg{Screen: sum} }
		case "enter":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "h":
			return s, func() tea.Msg { return router.PopToRootMsg{} }
		}
	}
	return s, nil
}

func (s *ResultScreen) View(width, height int) string {
	cw := min(width-4, 60)
	center := func(str string) string {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, str)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(theme.Title.Render("Prediction")))
	b.WriteString("\n\n")

	rows := []struct{ label, value string }{
		{"Probability of no heart attack", fmt.Sprintf("%.3f", s.res.ProbNoEvent)},
		{"Probability of heart attack", fmt.Sprintf("%.3f", s.res.ProbEvent)},
	}
	for _, r := range rows {
		line := lipgloss.NewStyle().Foreground(theme.TextDim).Width(cw-8).Render(r.label) +
			theme.Body.Bold(true).Render(r.value)
		b.WriteString(center(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fill := theme.Success
	if s.res.HighRisk {
		fill = theme.Error
	}
	bar := components.NewProgressBar("Risk", float64(s.res.RiskPercent())/100, true, cw)
	bar.Fill = fill
	b.WriteString(center(bar.View()))
	b.WriteString("\n\n")

	banner := theme.LowRisk
	if s.res.HighRisk {
		banner = theme.HighRisk
	}
	b.WriteString(center(banner.Render(s.res.RiskLabel())))
	b.WriteString("\n\n")

	b.WriteString(center(theme.Hint.Render("Model input: " + s.rec.String())))
	return b.String()
}
