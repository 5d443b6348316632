package app

import (
	"errors"
	"path/filepath"
	"testing"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/screens/home"
	"github.com/abhisek/heartrisk/internal/session"
	"github.com/abhisek/heartrisk/internal/ui/layout"
)

func testModel(t *testing.T) AppModel {
	h := model.NewHandle(filepath.Join(t.TempDir(), "xgb_model.bin"), model.Load, nil)
	m := newAppModel(screen.Deps{Model: h, Adapter: predict.New(h), Session: &session.State{}})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(AppModel)
}

func TestInit_ChecksModel(t *testing.T) {
	m := testModel(t)
	assert.NotNil(t, m.Init())

	status, ok := screen.CheckModel(m.deps.Model)().(screen.ModelStatusMsg)
	require.True(t, ok)
	require.Error(t, status.Err)

	next, _ := m.Update(status)
	m = next.(AppModel)
	assert.Equal(t, layout.ModelFailed, m.model)
	assert.Contains(t, m.render(), "model unavailable")
}

func TestModelStatusReady(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(screen.ModelStatusMsg{})
	assert.Equal(t, layout.ModelReady, next.(AppModel).model)
}

func TestSplashReplacedByHome(t *testing.T) {
	m := testModel(t)
	next, cmd := m.Update(tea.KeyPressMsg{Code: 'x', Text: "x"})
	m = next.(AppModel)
	require.NotNil(t, cmd)

	replace, ok := cmd().(router.ReplaceScreenMsg)
	require.True(t, ok)

	next, cmd = m.Update(replace)
	m = next.(AppModel)
	assert.NotNil(t, cmd, "home gets a fresh model status")
	assert.Equal(t, 1, m.router.Depth())
	_, ok = m.router.Active().(*home.HomeScreen)
	assert.True(t, ok)
	assert.Contains(t, m.render(), "HeartRisk")
}

func TestEscAtRootIsNoop(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	assert.Nil(t, cmd)
}

func TestEscPopsPushedScreen(t *testing.T) {
	m := testModel(t)
	m.router.Push(home.New(m.deps))

	_, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEscape})
	require.NotNil(t, cmd)
	_, ok := cmd().(router.PopScreenMsg)
	assert.True(t, ok)
}

func TestCtrlCQuits(t *testing.T) {
	m := testModel(t)
	_, cmd := m.Update(tea.KeyPressMsg{Code: 'c', Mod: tea.ModCtrl})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestTooSmall(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Contains(t, next.(AppModel).render(), "Terminal too small")
}

func TestStatusFromError(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(screen.ModelStatusMsg{Err: errors.New("boom")})
	assert.Equal(t, layout.ModelFailed, next.(AppModel).model)
}
