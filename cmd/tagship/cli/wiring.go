package cli

import (
	"github.com/tagship/tagship/internal/application"
	"github.com/tagship/tagship/internal/domain"
	"github.com/tagship/tagship/internal/infrastructure/build_exec"
	"github.com/tagship/tagship/internal/infrastructure/cache_fs"
	"github.com/tagship/tagship/internal/infrastructure/config"
	"github.com/tagship/tagship/internal/infrastructure/registry_http"
	"github.com/tagship/tagship/internal/infrastructure/report_fs"
	"github.com/tagship/tagship/internal/infrastructure/secret_fs"
	"github.com/tagship/tagship/internal/infrastructure/toolchain_exec"
	"go.uber.org/zap"
)

func newSequencer(log *zap.Logger, cfg config.Config, dryRun bool) *application.Sequencer {
	tc := toolchain_exec.New(cfg.Toolchain.InstallCmd, cfg.Toolchain.StateDir)
	cache := cache_fs.New(cfg.Cache.Dir)
	secrets := secret_fs.New(cfg.Secret.Dir, config.TokenEnvVar)
	build := build_exec.New(cfg.Build.Command, cfg.Build.Workdir, cfg.Build.Artifact)
	reg := registry_http.New(cfg.Registry.BaseURL, cfg.Registry.Package, cfg.Registry.Timeout)

	var report domain.ReportSink
	if cfg.Report.Path != "" {
		report = report_fs.New(cfg.Report.Path)
	}

	return application.NewSequencer(log, tc, cache, secrets, build, reg, report, application.RunSpec{
		Toolchain:    cfg.Toolchain.Spec,
		Lockfile:     cfg.Build.Lockfile,
		ArtifactPath: cfg.Build.Artifact,
		SecretName:   cfg.Secret.Name,
		DryRun:       dryRun,
	})
}
