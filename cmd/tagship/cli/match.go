package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tagship/tagship/internal/domain"
)

var matchCmd = &cobra.Command{
	Use:   "match <ref>",
	Short: "Check whether a ref qualifies as a release trigger",
	Args:  cobra.MatchAll(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, ok := domain.MatchTag(args[0])
		if !ok {
			return fmt.Errorf("ref %q is not a release tag", args[0])
		}
		fmt.Println(v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}
