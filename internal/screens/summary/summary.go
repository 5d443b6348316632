// Package summary shows the last submitted model input and offers its
// input.json export.
package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/heartrisk/internal/features"
	"github.com/abhisek/heartrisk/internal/router"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/ui/layout"
	"github.com/abhisek/heartrisk/internal/ui/theme"
)

// exportedMsg reports the outcome of writing input.json.
type exportedMsg struct {
	Path string
	Err  error
}

// SummaryScreen displays the last input summary.
type SummaryScreen struct {
	deps   screen.Deps
	status string
	failed bool
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(deps screen.Deps) *SummaryScreen {
	return &SummaryScreen{deps: deps}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Last Input"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "E", Description: "Export input.json"},
		{Key: "C", Description: "Clear"},
		{Key: "Esc", Description: "Back"},
	}
}

// ExportPath is where the export writes input.json.
func (s *SummaryScreen) ExportPath() string {
	return filepath.Join(s.deps.ExportDir, features.SnapshotFileName)
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case exportedMsg:
		if msg.Err != nil {
			s.status, s.failed = "Export failed: "+msg.Err.Error(), true
		} else {
			s.status, s.failed = "Saved "+msg.Path, false
		}
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "e":
			return s, s.export()
		case "c":
			if s.deps.Session != nil {
				s.deps.Session.Clear()
			}
			s.status, s.failed = "Last result cleared.", false
			return s, nil
		case "enter":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		}
	}
	return s, nil
}

func (s *SummaryScreen) export() tea.Cmd {
	if s.deps.Session == nil {
		return nil
	}
	snap, ok := s.deps.Session.SnapshotJSON()
	if !ok {
		s.status, s.failed = "Nothing to export yet.", true
		return nil
	}
	path := s.ExportPath()
	return func() tea.Msg {
		return exportedMsg{Path: path, Err: os.WriteFile(path, snap, 0o644)}
	}
}

func (s *SummaryScreen) View(width, height int) string {
	center := func(str string) string {
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, str)
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center(theme.Title.Render("Last input summary")))
	b.WriteString("\n\n")

	var (
		entryOK bool
		rec     features.Record
	)
	if s.deps.Session != nil {
		if e, ok := s.deps.Session.Last(); ok {
			entryOK, rec = true, e.Record
			b.WriteString(center(theme.Subtitle.Render(fmt.Sprintf("%s  ·  %s",
				e.At.Local().Format("Jan 02, 2006 15:04"), e.Result.RiskLabel()))))
			b.WriteString("\n\n")
		}
	}

	if !entryOK {
		b.WriteString(center(theme.Hint.Render("No prediction yet. Submit the form first.")))
		b.WriteString("\n")
	} else {
		for _, col := range features.Columns() {
			v, _ := rec.Get(col)
			line := lipgloss.NewStyle().Foreground(theme.TextDim).Width(14).Render(col) +
				theme.Body.Render(fmt.Sprintf("%g", v))
			b.WriteString(center(lipgloss.NewStyle().Width(24).Render(line)))
			b.WriteString("\n")
		}
	}

	if s.status != "" {
		color := theme.Success
		if s.failed {
			color = theme.Error
		}
		b.WriteString("\n")
		b.WriteString(center(lipgloss.NewStyle().Foreground(color).Render(s.status)))
	}
	return b.String()
}
