package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tagship/tagship/internal/infrastructure/config"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}

		if showJSON {
			type view struct {
				Registry  string `json:"registry"`
				Package   string `json:"package"`
				Toolchain string `json:"toolchain"`
				Build     string `json:"build_command"`
				Artifact  string `json:"artifact"`
				Lockfile  string `json:"lockfile"`
				CacheDir  string `json:"cache_dir"`
				SecretDir string `json:"secret_dir"`
				Spool     string `json:"spool_dir,omitempty"`
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(view{
				Registry:  cfg.Registry.BaseURL,
				Package:   cfg.Registry.Package,
				Toolchain: cfg.Toolchain.Spec,
				Build:     strings.Join(cfg.Build.Command, " "),
				Artifact:  cfg.Build.Artifact,
				Lockfile:  cfg.Build.Lockfile,
				CacheDir:  cfg.Cache.Dir,
				SecretDir: cfg.Secret.Dir,
				Spool:     cfg.Watch.SpoolDir,
			})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "registry\t%s\n", cfg.Registry.BaseURL)
		_, _ = fmt.Fprintf(w, "package\t%s\n", cfg.Registry.Package)
		_, _ = fmt.Fprintf(w, "toolchain\t%s\n", cfg.Toolchain.Spec)
		_, _ = fmt.Fprintf(w, "build\t%s\n", strings.Join(cfg.Build.Command, " "))
		_, _ = fmt.Fprintf(w, "artifact\t%s\n", cfg.Build.Artifact)
		_, _ = fmt.Fprintf(w, "lockfile\t%s\n", cfg.Build.Lockfile)
		_, _ = fmt.Fprintf(w, "cache\t%s\n", cfg.Cache.Dir)
		_, _ = fmt.Fprintf(w, "secret\t%s/%s\n", cfg.Secret.Dir, cfg.Secret.Name)
		if cfg.Watch.SpoolDir != "" {
			_, _ = fmt.Fprintf(w, "spool\t%s\n", cfg.Watch.SpoolDir)
		}
		_ = w.Flush()
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print JSON")

	rootCmd.AddCommand(showCmd)
}
