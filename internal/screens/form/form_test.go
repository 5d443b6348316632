package form

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/patient"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/screens/result"
	"github.com/abhisek/heartrisk/internal/session"
	"github.com/abhisek/heartrisk/internal/store"
	"github.com/abhisek/heartrisk/internal/xgb/xgbtest"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func testDeps(t *testing.T, modelPath string) screen.Deps {
	t.Helper()
	s, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := model.NewHandle(modelPath, model.Load, nil)
	return screen.Deps{
		Model:     h,
		Adapter:   predict.New(h),
		Session:   &session.State{},
		Events:    s.EventRepo(),
		SessionID: "tui-test",
		ExportDir: t.TempDir(),
		Now:       func() time.Time { return fixedNow },
	}
}

func workingDeps(t *testing.T) screen.Deps {
	path := xgbtest.WriteJSON(t, t.TempDir(), "xgb_model.json", xgbtest.HeartModel())
	return testDeps(t, path)
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

var ctrlS = tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl}

// submitAndRun presses Ctrl+S, runs the prediction command and feeds its
// message back into the screen.
func submitAndRun(t *testing.T, s *FormScreen) tea.Cmd {
	t.Helper()
	_, cmd := s.Update(ctrlS)
	require.NotNil(t, cmd, "submit should start a prediction")
	assert.True(t, s.submitting)
	_, next := s.Update(cmd())
	return next
}

func TestNew_DefaultsRoundTrip(t *testing.T) {
	s := New(workingDeps(t))
	sel, bad := s.Selections()
	require.Empty(t, bad)
	assert.Equal(t, patient.Defaults(), sel.Resolve(patient.Defaults()))
	assert.Equal(t, "Assessment", s.Title())
}

func TestNewWithExample(t *testing.T) {
	deps := workingDeps(t)
	for _, ex := range patient.Examples() {
		t.Run(ex.Name, func(t *testing.T) {
			s, err := NewWithExample(deps, ex.Name)
			require.NoError(t, err)
			assert.Equal(t, ex.Name, s.Title())
			sel, bad := s.Selections()
			require.Empty(t, bad)
			assert.Equal(t, ex.Form, sel.Resolve(s.defaults))
		})
	}

	_, err := NewWithExample(deps, "Medium risk example")
	assert.ErrorContains(t, err, "unknown example")
}

func TestEditNumericAndCycleSelect(t *testing.T) {
	s := New(workingDeps(t))

	// Age is focused first.
	s.Update(specialKey(tea.KeyBackspace))
	s.Update(specialKey(tea.KeyBackspace))
	s.Update(keyPress('7'))
	s.Update(keyPress('x'))
	s.Update(keyPress('0'))

	// Sex: Male -> Female.
	s.Update(specialKey(tea.KeyDown))
	s.Update(specialKey(tea.KeyRight))

	// Chest pain: Asymptomatic -> Typical angina.
	s.Update(specialKey(tea.KeyTab))
	s.Update(specialKey(tea.KeyLeft))

	sel, bad := s.Selections()
	require.Empty(t, bad)
	f := sel.Resolve(patient.Defaults())
	assert.Equal(t, 70, f.Age)
	assert.Equal(t, 0, f.Sex)
	assert.Equal(t, 3, f.ChestPain)
}

func TestFocusBounds(t *testing.T) {
	s := New(workingDeps(t))
	s.Update(specialKey(tea.KeyUp))
	assert.Equal(t, 0, s.focus)

	for range len(s.fields) + 3 {
		s.Update(specialKey(tea.KeyDown))
	}
	assert.Equal(t, len(s.fields), s.focus, "focus stops on the predict button")
}

func TestEnterAdvancesThenSubmits(t *testing.T) {
	s := New(workingDeps(t))
	for i := 0; i < len(s.fields); i++ {
		_, cmd := s.Update(specialKey(tea.KeyEnter))
		assert.False(t, s.submitting)
		_ = cmd
	}
	require.Equal(t, len(s.fields), s.focus)

	_, cmd := s.Update(specialKey(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, s.submitting)
}

func TestSubmit_Success(t *testing.T) {
	deps := workingDeps(t)
	s, err := NewWithExample(deps, patient.HighRiskExample)
	require.NoError(t, err)

	next := submitAndRun(t, s)
	require.NotNil(t, next)
	assert.False(t, s.submitting)
	assert.Empty(t, s.errMsg)

	push, ok := next().(router.PushScreenMsg)
	require.True(t, ok, "expected a push to the result screen")
	_, ok = push.Screen.(*result.ResultScreen)
	assert.True(t, ok)

	entry, ok := deps.Session.Last()
	require.True(t, ok)
	assert.Equal(t, fixedNow, entry.At)
	assert.True(t, entry.Result.HighRisk)
	assert.JSONEq(t, `{"thall":3,"caa":2,"cp":3,"oldpeak":3,"exng":1,"chol":300,"thalachh":120}`,
		string(entry.Snapshot))

	events, err := deps.Events.QueryPredictions(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.Equal(t, "tui-test", events[0].SessionID)
	assert.Equal(t, entry.Record, events[0].Features)
}

func TestSubmit_ModelMissing(t *testing.T) {
	deps := testDeps(t, filepath.Join(t.TempDir(), "xgb_model.bin"))
	s := New(deps)

	status := s.Init()()
	s.Update(status)
	require.Error(t, s.modelErr)
	assert.Contains(t, s.View(100, 40), "Model failed to load")

	next := submitAndRun(t, s)
	assert.Nil(t, next, "no result screen without a model")
	assert.Equal(t, predict.ModelNotLoadedMessage, s.errMsg)
	assert.Contains(t, s.View(100, 40), predict.ModelNotLoadedMessage)

	_, ok := deps.Session.Last()
	assert.False(t, ok)

	events, err := deps.Events.QueryPredictions(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
}

func TestSubmit_OutOfBounds(t *testing.T) {
	deps := workingDeps(t)
	s := New(deps)

	// Age 0 is below the accepted range.
	s.Update(specialKey(tea.KeyBackspace))
	s.Update(specialKey(tea.KeyBackspace))
	s.Update(keyPress('0'))

	_, cmd := s.Update(ctrlS)
	assert.Nil(t, cmd)
	assert.False(t, s.submitting)
	assert.Contains(t, s.errMsg, "age")
	assert.True(t, s.fields[0].input.Invalid())

	events, err := deps.Events.QueryPredictions(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, events, "rejected input never reaches the model")
}

func TestSubmit_EmptyNumber(t *testing.T) {
	s := New(workingDeps(t))

	// Move to cholesterol and clear it.
	for range 4 {
		s.Update(specialKey(tea.KeyDown))
	}
	for range 3 {
		s.Update(specialKey(tea.KeyBackspace))
	}

	_, cmd := s.Update(ctrlS)
	assert.Nil(t, cmd)
	assert.Equal(t, "Enter a number for: chol", s.errMsg)
}

func TestKeysIgnoredWhileSubmitting(t *testing.T) {
	s := New(workingDeps(t))
	_, cmd := s.Update(ctrlS)
	require.NotNil(t, cmd)

	_, again := s.Update(ctrlS)
	assert.Nil(t, again)
	s.Update(specialKey(tea.KeyDown))
	assert.Equal(t, 0, s.focus)
}

func TestKeyHints(t *testing.T) {
	s := New(workingDeps(t))
	assert.Len(t, s.KeyHints(), 4)
}
