package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deleteYes bool

	deleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "deletes an installed game",
		Long:  "Deletes an installed game: its installation directory and the downloaded archive, if still present.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			t, err := newTool()
			if err != nil {
				return err
			}

			id := args[0]
			if !t.library.IsInstalled(id) {
				return fmt.Errorf("game with ID '%s' is not installed", id)
			}

			name := fmt.Sprintf("Game ID %s", id)
			if game, err := t.catalog.Find(id); err == nil {
				name = game.Name
			}

			archive, hasArchive := t.library.DownloadedArchive(id)

			cmd.Printf("You are about to delete the files for '%s'.\n", name)
			cmd.Printf("Installation: %s\n", t.library.InstallPath(id))
			if hasArchive {
				cmd.Printf("Downloaded Archive: %s\n", archive)
			}

			if !deleteYes {
				cmd.Printf("\nUse 'dosctl delete %s --yes' to confirm.\n", id)
				return nil
			}

			if err := t.library.Remove(id); err != nil {
				return err
			}

			cmd.Println("✅ Successfully deleted installation directory.")
			if hasArchive {
				cmd.Println("✅ Successfully deleted downloaded archive.")
			}
			return nil
		},
	}
)
