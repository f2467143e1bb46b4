package cmd

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dosctl/dosctl/library"
)

var (
	inspectExecutables bool

	inspectCmd = &cobra.Command{
		Use:   "inspect <id>",
		Short: "inspects the installed files for a given game",
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

			name := "Unknown Game"
			if game, err := t.catalog.Find(id); err == nil {
				name = game.Name
			}

			installPath := t.library.InstallPath(id)
			cmd.Printf("Inspecting files for '%s' (ID: %s)\n", name, id)
			cmd.Printf("Location: %s\n", installPath)
			cmd.Println(strings.Repeat("-", 40))

			files, err := listFiles(installPath, inspectExecutables)
			if err != nil {
				return err
			}

			if len(files) == 0 {
				if inspectExecutables {
					cmd.Println("No executable files found in the installation directory.")
				} else {
					cmd.Println("No files found in the installation directory.")
				}
				return nil
			}

			if inspectExecutables {
				cmd.Println("Executable files:")
			}
			for _, file := range files {
				cmd.Printf("  %s\n", file)
			}
			return nil
		},
	}
)

// listFiles walks the install directory and returns file paths relative
// to it, sorted, optionally restricted to DOS executables.
func listFiles(dir string, executablesOnly bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if executablesOnly && !library.IsExecutableName(entry.Name()) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
