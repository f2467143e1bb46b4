package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchCaseSensitive bool

	searchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "searches for games in the local cache",
		Long:  "Searches for games in the local cache. The query is a regular expression matched against game names.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			t, err := newTool()
			if err != nil {
				return err
			}

			results, err := t.catalog.Search(args[0], searchCaseSensitive)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				cmd.Println("No games found matching your criteria.")
				return nil
			}

			printGames(cmd, results, fmt.Sprintf("Found %d game(s):", len(results)))
			return nil
		},
	}
)
