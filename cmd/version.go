package cmd

import (
	"github.com/spf13/cobra"
)

// version is replaced with the release version at build time.
var version = "development"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints dosctl version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("dosctl %s\n", version)
	},
}
