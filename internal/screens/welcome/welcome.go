package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	phase1End    = 300 * time.Millisecond
	phase2End    = 900 * time.Millisecond
	totalDur     = 1500 * time.Millisecond
)

// Disclaimer is shown on the splash screen.
const Disclaimer = "Educational demo. Not a medical device and not medical advice."

// heart frames alternate to draw a pulse
var heartFrames = []string{
	"  ▄▀▀▄ ▄▀▀▄\n  █   ▀   █\n   ▀▄   ▄▀\n     ▀▄▀",
	"  ▄██▄ ▄██▄\n  █████████\n   ▀█████▀\n     ▀█▀",
}

var traceFrames = []string{"──╮╭──", "─╮╭───", "╮╭────"}

type tickMsg time.Time

// WelcomeScreen shows a splash with the disclaimer before the home screen.
type WelcomeScreen struct {
	homeFactory  func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that will transition to the screen produced by homeFactory.
func New(homeFactory func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{
		homeFactory: homeFactory,
	}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.transitioned {
			return w, nil
		}
		if w.elapsed < totalDur {
			w.elapsed += tickInterval
		}
		w.tickCount++
		return w, tick()

	case tea.KeyPressMsg:
		// Any key skips the animation.
		return w, w.transition()
	}

	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	homeScreen := w.homeFactory()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: homeScreen}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	var sections []string

	heart := heartFrames[0]
	if w.elapsed >= phase1End {
		heart = heartFrames[w.tickCount%len(heartFrames)]
	}
	sections = append(sections, lipgloss.NewStyle().Foreground(theme.Error).Render(heart))

	if w.elapsed >= phase1End {
		trace := traceFrames[w.tickCount%len(traceFrames)]
		sections = append(sections, lipgloss.NewStyle().Foreground(theme.Secondary).Render(trace+trace+trace))
	}

	if w.elapsed >= phase2End {
		sections = append(sections, "")
		sections = append(sections, RenderBanner(width))
		sections = append(sections, "")
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.Text).
			Bold(true).
			Render("Heart attack risk from seven clinical features"))
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.Accent).
			Render(Disclaimer))
	}

	if w.elapsed >= totalDur {
		sections = append(sections, "")
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("press any key to continue"))
	}

	content := strings.Join(sections, "\n")

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
