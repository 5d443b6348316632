package home

import (
	"errors"
	"strings"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/patient"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/screens/form"
	"github.com/abhisek/heartrisk/internal/screens/placeholder"
	"github.com/abhisek/heartrisk/internal/screens/summary"
	"github.com/abhisek/heartrisk/internal/session"
)

func testDeps() screen.Deps {
	h := model.NewHandle("xgb_model.json", model.Load, nil)
	return screen.Deps{Model: h, Adapter: predict.New(h), Session: &session.State{}}
}

// choose moves the cursor to the item with the given label and presses Enter.
func choose(t *testing.T, h *HomeScreen, label string) tea.Msg {
	t.Helper()
	idx := -1
	for i, it := range h.menu.Items {
		if it.Label == label {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx, "menu item %q", label)

	for h.menu.Selected < idx {
		h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	}
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	require.NotNil(t, cmd)
	return cmd()
}

func TestHome_MenuLabels(t *testing.T) {
	h := New(testDeps())
	var labels []string
	for _, it := range h.menu.Items {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{
		NewAssessment,
		"Load low risk example",
		"Load high risk example",
		LastInput,
		History,
		Quit,
	}, labels)
}

func TestHome_NewAssessment(t *testing.T) {
	msg := choose(t, New(testDeps()), NewAssessment)
	push, ok := msg.(router.PushScreenMsg)
	require.True(t, ok)
	f, ok := push.Screen.(*form.FormScreen)
	require.True(t, ok)
	assert.Equal(t, "Assessment", f.Title())
}

func TestHome_LoadExample(t *testing.T) {
	msg := choose(t, New(testDeps()), "Load high risk example")
	push, ok := msg.(router.PushScreenMsg)
	require.True(t, ok)
	assert.Equal(t, patient.HighRiskExample, push.Screen.Title())
}

func TestHome_LastInput(t *testing.T) {
	push, ok := choose(t, New(testDeps()), LastInput).(router.PushScreenMsg)
	require.True(t, ok)
	_, ok = push.Screen.(*summary.SummaryScreen)
	assert.True(t, ok)
}

func TestHome_HistoryDisabled(t *testing.T) {
	push, ok := choose(t, New(testDeps()), History).(router.PushScreenMsg)
	require.True(t, ok)
	_, ok = push.Screen.(*placeholder.PlaceholderScreen)
	assert.True(t, ok, "history without a store shows a placeholder")
	assert.Contains(t, push.Screen.View(80, 20), "HEARTRISK_HISTORY")
}

func TestHome_ModelBanner(t *testing.T) {
	h := New(testDeps())
	assert.NotContains(t, h.View(100, 30), predict.ModelNotLoadedMessage)

	h.Update(screen.ModelStatusMsg{Err: errors.New("open xgb_model.json: no such file")})
	view := h.View(100, 30)
	assert.Contains(t, view, predict.ModelNotLoadedMessage)
	assert.True(t, strings.Contains(view, "no such file"))
}
