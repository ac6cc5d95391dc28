package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tagship/tagship/internal/application"
	"github.com/tagship/tagship/internal/infrastructure/config"
	"github.com/tagship/tagship/internal/infrastructure/logging"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the spool directory and run the pipeline per event",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cfg.Watch.SpoolDir == "" {
			log.Fatal("watch.spool_dir is not configured")
		}

		seq := newSequencer(log, cfg, false)
		w := application.NewSpoolWatcher(log, seq, cfg.Watch.SpoolDir, cfg.Watch.PauseFile)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		log.Info("start",
			zap.String("version", version),
			zap.String("spool", cfg.Watch.SpoolDir),
			zap.String("registry", cfg.Registry.BaseURL),
			zap.String("pause_file", cfg.Watch.PauseFile),
		)
		return w.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
