package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tagship/tagship/internal/domain"
	"github.com/tagship/tagship/internal/infrastructure/config"
	"github.com/tagship/tagship/internal/infrastructure/logging"
	"go.uber.org/zap"
)

var (
	runRef    string
	runDryRun bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the release pipeline for one ref",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()
		defer func() { _ = log.Sync() }()

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		seq := newSequencer(log, cfg, runDryRun)

		log.Info("start",
			zap.String("version", version),
			zap.String("ref", runRef),
			zap.String("registry", cfg.Registry.BaseURL),
			zap.String("package", cfg.Registry.Package),
			zap.String("toolchain", cfg.Toolchain.Spec),
			zap.Bool("dry_run", runDryRun),
		)

		res := seq.Run(cmd.Context(), domain.TriggerEvent{Ref: runRef})
		switch res.Status {
		case domain.StatusPublished:
			fmt.Printf("published %s (receipt %s)\n", res.Version, res.Receipt.ID)
			return nil
		case domain.StatusNoop:
			// Nothing to do is not an error.
			return nil
		default:
			return fmt.Errorf("run failed at step %s: %w", res.FailedStep, res.Err)
		}
	},
}

func init() {
	runCmd.Flags().StringVar(&runRef, "ref", "", "pushed ref (refs/tags/vX.Y.Z or bare tag)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "stop after binding the credential, skip the publish")
	_ = runCmd.MarkFlagRequired("ref")

	rootCmd.AddCommand(runCmd)
}
