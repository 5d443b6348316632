package summary

import (
	"os"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/session"
)

func testDeps(t *testing.T, withEntry bool) screen.Deps {
	st := &session.State{}
	if withEntry {
		rec := features.Assemble(2, 0, 0, 0.5, 0, 180, 150)
		at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		if err := st.Save(rec, predict.FromProbNoEvent(0.9), at); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	return screen.Deps{Session: st, ExportDir: t.TempDir()}
}

func press(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func TestSummaryScreen_Title(t *testing.T) {
	s := New(testDeps(t, false))
	if s.Title() != "Last Input" {
		t.Errorf("Title = %q, want %q", s.Title(), "Last Input")
	}
}

func TestSummaryScreen_Display(t *testing.T) {
	s := New(testDeps(t, true))
	view := s.View(100, 30)
	for _, col := range features.Columns() {
		if !strings.Contains(view, col) {
			t.Errorf("view missing column %q", col)
		}
	}
	if !strings.Contains(view, predict.LowRiskLabel) {
		t.Error("view should show the last risk label")
	}
}

func TestSummaryScreen_Empty(t *testing.T) {
	s := New(testDeps(t, false))
	if !strings.Contains(s.View(100, 30), "No prediction yet") {
		t.Error("expected empty-state hint")
	}

	_, cmd := s.Update(press('e'))
	if cmd != nil {
		t.Error("export without a prediction should not write")
	}
	if !strings.Contains(s.View(100, 30), "Nothing to export") {
		t.Error("expected export failure notice")
	}
}

func TestSummaryScreen_Export(t *testing.T) {
	deps := testDeps(t, true)
	s := New(deps)

	_, cmd := s.Update(press('e'))
	if cmd == nil {
		t.Fatal("expected export command")
	}
	s.Update(cmd())

	got, err := os.ReadFile(s.ExportPath())
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	want, _ := deps.Session.SnapshotJSON()
	if string(got) != string(want) {
		t.Errorf("export = %s, want %s", got, want)
	}
	if !strings.HasSuffix(s.ExportPath(), features.SnapshotFileName) {
		t.Errorf("export path %q should end in %s", s.ExportPath(), features.SnapshotFileName)
	}
	if !strings.Contains(s.View(100, 30), "Saved") {
		t.Error("expected saved notice")
	}
}

func TestSummaryScreen_Clear(t *testing.T) {
	deps := testDeps(t, true)
	s := New(deps)

	s.Update(press('c'))
	if _, ok := deps.Session.Last(); ok {
		t.Error("clear should drop the last entry")
	}
	if !strings.Contains(s.View(100, 30), "No prediction yet") {
		t.Error("view should fall back to the empty state")
	}
}

func TestSummaryScreen_Navigation_Enter(t *testing.T) {
	s := New(testDeps(t, false))
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command on Enter (pop)")
	}
	if _, ok := cmd().(router.PopScreenMsg); !ok {
		t.Error("expected PopScreenMsg")
	}
}

func TestSummaryScreen_KeyHints(t *testing.T) {
	s := New(testDeps(t, false))
	if len(s.KeyHints()) != 3 {
		t.Errorf("KeyHints length = %d, want 3", len(s.KeyHints()))
	}
}
