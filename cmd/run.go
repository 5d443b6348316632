package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/heartrisk/internal/app"
	"github.com/abhisek/heartrisk/internal/logging"
	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/screen"
	"github.com/abhisek/heartrisk/internal/session"
)

// runApp opens the store, builds dependencies, and launches the TUI.
func runApp(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.New(logFile, cfg.Logging)

	st, err := openHistory(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "History unavailable:", err)
		logger.Warn("history disabled", "error", err)
	}

	handle := model.NewHandle(cfg.ModelPath, model.Load, logger)
	sessionID := session.NewID()
	deps := screen.Deps{
		Model:     handle,
		Adapter:   predict.New(handle, predict.WithLogger(logger)),
		Session:   &session.State{},
		SessionID: sessionID,
		Logger:    logger,
	}
	if st != nil {
		defer st.Close()
		deps.Events = st.EventRepo()
	}
	if deps.ExportDir, err = os.Getwd(); err != nil {
		return fmt.Errorf("resolve export dir: %w", err)
	}

	logger.Info("starting ui", "model", cfg.ModelPath, "session", sessionID, "history", deps.Events != nil)
	return app.Run(deps)
}
