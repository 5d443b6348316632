package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/heartrisk/internal/patient"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/screens/form"
	"github.com/abhisek/heartrisk/internal/screens/history"
	"github.com/abhisek/heartrisk/internal/screens/placeholder"
	"github.com/abhisek/heartrisk/internal/screens/summary"
	"github.com/abhisek/heartrisk/internal/ui/components"
	"github.com/abhisek/heartrisk/internal/ui/theme"
)

// Menu labels.
const (
	NewAssessment = "New assessment"
	LastInput     = "Last input summary"
	History       = "Prediction history"
	Quit          = "Quit"
)

// HomeScreen is the main menu of the application.
type HomeScreen struct {
	deps     screen.Deps
	menu     components.Menu
	modelErr error
}

var _ screen.Screen = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(deps screen.Deps) *HomeScreen {
	push := func(s screen.Screen) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
		}
	}

	items := []components.MenuItem{
		{Label: NewAssessment, Action: func() tea.Cmd {
			return push(form.New(deps))()
		}},
	}
	for _, ex := range patient.Examples() {
		name := ex.Name
		items = append(items, components.MenuItem{Label: "Load " + strings.ToLower(name), Action: func() tea.Cmd {
			f, err := form.NewWithExample(deps, name)
			if err != nil {
				return nil
			}
			return push(f)()
		}})
	}
	items = append(items,
		components.MenuItem{Label: LastInput, Action: func() tea.Cmd {
			return push(summary.New(deps))()
		}},
		components.MenuItem{Label: History, Action: func() tea.Cmd {
			if deps.Events == nil {
				return push(placeholder.New("History",
					"Prediction history is disabled.\nSet HEARTRISK_HISTORY=true to record predictions."))()
			}
			return push(history.New(deps.Events))()
		}},
		components.MenuItem{Label: Quit, Action: func() tea.Cmd {
			return tea.Quit
		}},
	)

	return &HomeScreen{
		deps: deps,
		menu: components.NewMenu(items),
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if m, ok := msg.(screen.ModelStatusMsg); ok {
		h.modelErr = m.Err
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	center := func(s string) string {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, s)
	}

	var sections []string
	sections = append(sections, center(theme.Title.Render("Heart Attack Risk Assessment")))
	sections = append(sections, center(theme.Subtitle.Render(
		"Scores seven clinical features with a gradient-boosted tree model")))

	if h.modelErr != nil {
		sections = append(sections, center(theme.ErrorBanner.Width(min(width-4, 76)).Render(
			predict.ModelNotLoadedMessage+"\n"+h.modelErr.Error())))
	}

	menu := lipgloss.NewStyle().Width(32).Render(h.menu.View())
	sections = append(sections, center(menu))

	return "\n" + strings.Join(sections, "\n\n")
}

func (h *HomeScreen) Title() string {
	return "Home"
}
