package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dosctl/dosctl/catalog"
)

var (
	listInstalled bool

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "lists all available games from the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			t, err := newTool()
			if err != nil {
				return err
			}

			games, err := t.catalog.Games()
			if err != nil {
				return err
			}

			if listInstalled {
				installedIDs, err := t.library.InstalledIDs()
				if err != nil {
					return err
				}
				games = filterByID(games, installedIDs)
			}

			if len(games) == 0 {
				if listInstalled {
					cmd.Println("No games are currently installed.")
				} else {
					cmd.Println("No games found in cache.")
				}
				return nil
			}

			sorted := make([]catalog.Game, len(games))
			copy(sorted, games)
			catalog.SortByName(sorted)

			printGames(cmd, sorted, "Available Games:")
			return nil
		},
	}
)

func filterByID(games []catalog.Game, ids []string) []catalog.Game {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var filtered []catalog.Game
	for _, game := range games {
		if wanted[game.ID] {
			filtered = append(filtered, game)
		}
	}
	return filtered
}

func printGames(cmd *cobra.Command, games []catalog.Game, title string) {
	cmd.Println(title)
	for _, game := range games {
		cmd.Printf("  [%s] %s\n", game.ID, game.Name)
	}
}
