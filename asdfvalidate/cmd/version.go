package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asdf-archive/asdfvalidate/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "asdfvalidate %s (%s, %s)\n",
			version.Version, version.ShortCommit(), version.Date)
	},
}
