package screen

import (
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/session"
	"github.com/abhisek/heartrisk/internal/store"
)

// Deps carries the services shared by the screens of one UI session.
type Deps struct {
	Model   model.Source
	Adapter *predict.Adapter
	Session *session.State

	// Events is nil when prediction history is disabled.
	Events    store.EventRepo
	SessionID string

	// ExportDir is where the input summary writes input.json.
	ExportDir string

	Logger *slog.Logger
	Now    func() time.Time
}

// Clock returns d.Now or time.Now.
func (d Deps) Clock() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Log returns d.Logger or the default logger.
func (d Deps) Log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// ModelStatusMsg reports the outcome of loading the model artifact.
type ModelStatusMsg struct {
	Path string
	Err  error
}

// CheckModel loads the model through src, once per source, and reports the
// outcome as a ModelStatusMsg.
func CheckModel(src model.Source) tea.Cmd {
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		_, err := src.Get()
		return ModelStatusMsg{Path: src.Path(), Err: err}
	}
}
