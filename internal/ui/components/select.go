package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/heartrisk/internal/ui/theme"
)

// Select is a single-line option picker cycled with the left and right keys.
type Select struct {
	Options  []string
	Selected int
	Focused  bool
}

// NewSelect creates a picker positioned on the option at index selected.
func NewSelect(options []string, selected int) Select {
	if selected < 0 || selected >= len(options) {
		selected = 0
	}
	return Select{Options: options, Selected: selected}
}

// Update handles left/right cycling. Other keys are ignored.
func (s Select) Update(msg tea.Msg) (Select, tea.Cmd) {
	if !s.Focused || len(s.Options) == 0 {
		return s, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return s, nil
	}

	switch kmsg.String() {
	case "left", "h":
		s.Selected = (s.Selected - 1 + len(s.Options)) % len(s.Options)
	case "right", "l", "space":
		s.Selected = (s.Selected + 1) % len(s.Options)
	}
	return s, nil
}

// Value returns the label of the selected option, or "" when there are none.
func (s Select) Value() string {
	if s.Selected < 0 || s.Selected >= len(s.Options) {
		return ""
	}
	return s.Options[s.Selected]
}

// View renders the picker.
func (s Select) View() string {
	if !s.Focused {
		return theme.Unselected.Render(s.Value())
	}
	arrow := lipgloss.NewStyle().Foreground(theme.TextDim)
	return arrow.Render("◂ ") + theme.Selected.Render(s.Value()) + arrow.Render(" ▸")
}
