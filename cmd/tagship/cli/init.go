package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tagship/tagship/internal/infrastructure/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.yaml",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !initForce {
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
		}

		if err := config.Save(cfgPath, config.Default()); err != nil {
			return err
		}

		fmt.Printf("wrote %s\n", cfgPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")

	rootCmd.AddCommand(initCmd)
}
