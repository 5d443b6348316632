package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/heartrisk/internal/logging"
	"github.com/abhisek/heartrisk/internal/metrics"
	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/server"
	"github.com/abhisek/heartrisk/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the risk calculator as a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		logger := logging.New(os.Stderr, cfg.Logging)
		slog.SetDefault(logger)
		gin.SetMode(cfg.Server.GinMode)

		m := metrics.New()
		handle := model.Shared().Handle(cfg.ModelPath)
		adapter := predict.New(handle, predict.WithLogger(logger), predict.WithObserver(m))

		opts := server.Options{
			Model:       handle,
			Adapter:     adapter,
			Sessions:    session.NewRegistry(),
			Metrics:     m,
			Logger:      logger,
			Version:     version,
			CORSOrigins: cfg.Server.CORSOrigins,
			SessionTTL:  cfg.Server.SessionTTL,
		}

		st, err := openHistory(cfg)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		}
		if st != nil {
			defer st.Close()
			opts.Events = st.EventRepo()
		}

		// Load eagerly so a broken artifact shows up in the startup log.
		_, lerr := handle.Get()
		m.SetModelLoaded(lerr == nil)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(opts).Run(ctx, cfg.Server.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides HEARTRISK_ADDR env var)")
}
