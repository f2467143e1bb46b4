package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dosctl/dosctl/catalog"
	"github.com/dosctl/dosctl/config"
)

var (
	refreshForce bool

	refreshCmd = &cobra.Command{
		Use:   "refresh",
		Short: "downloads the latest game list from the collection source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			if !refreshForce {
				cmd.Println("This command will re-download the entire game list.")
				cmd.Println("Use 'dosctl refresh --force' to confirm.")
				return nil
			}

			dirs, err := config.DefaultDirs()
			if err != nil {
				return fmt.Errorf("resolve dosctl directories: %w", err)
			}
			if err := dirs.EnsureDirs(); err != nil {
				return fmt.Errorf("create dosctl directories: %w", err)
			}

			settings := config.LoadSettings(dirs)
			cat := catalog.New(settings.CollectionSource, dirs.Collections())

			cmd.Println("Forcing a refresh of the game list...")
			if err := cat.Refresh(true); err != nil {
				return err
			}
			cmd.Println("✅ Game list refreshed successfully.")
			return nil
		},
	}
)
