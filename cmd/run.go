package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dosctl/dosctl/catalog"
	"github.com/dosctl/dosctl/dosbox"
	"github.com/dosctl/dosctl/library"
)

// dosboxInstallHelp is shown when no DOSBox executable can be found.
const dosboxInstallHelp = `Error: 'dosbox' command not found in your PATH.

Please install DOSBox. We recommend DOSBox Staging for the best experience.

To install with Homebrew on macOS:
  brew install dosbox           # For standard DOSBox
  brew install dosbox-staging   # For DOSBox Staging (recommended)`

var (
	runConfigure bool
	runFloppy    bool
	runNoExec    bool

	runCmd = &cobra.Command{
		Use:   "run <id> [command]...",
		Short: "runs a game, installing it first if needed",
		Long: `Runs a game, installing it first if needed.

The command to run inside DOSBox is taken from the arguments, or from the
saved default, or detected automatically when the game ships a single
executable.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initCommand(cmd); err != nil {
				return err
			}

			t, err := newTool()
			if err != nil {
				return err
			}

			launcher, err := newLauncher(cmd, t)
			if err != nil {
				return err
			}

			if runNoExec && (len(args) > 1 || runConfigure) {
				return errors.New("--no-exec cannot be used with --configure or command arguments")
			}

			id := args[0]
			_, installPath, err := installGame(cmd, t, id)
			if err != nil {
				return err
			}

			// no-exec mode mounts the game directory and drops to the
			// DOS prompt
			if runNoExec {
				cmd.Println("Opening DOSBox at game directory...")
				return launcher.Launch(installPath, "", dosbox.Options{Floppy: runFloppy})
			}

			command, err := t.resolveRunCommand(cmd, id, installPath, args[1:], runConfigure)
			if err != nil {
				return err
			}

			// Floppy runs skip the default-command bookkeeping: the
			// command may reference floppy paths or drive letters that
			// the validation below would reject.
			if runFloppy {
				cmd.Printf("Starting '%s' with DOSBox...\n", strings.ToUpper(command))
				return launcher.Launch(installPath, command, dosbox.Options{Floppy: true, ExitAfter: true})
			}

			if err := t.saveAndValidateCommand(id, installPath, command); err != nil {
				return err
			}

			cmd.Printf("Starting '%s' with DOSBox...\n", strings.ToUpper(command))
			return launcher.Launch(installPath, command, dosbox.Options{ExitAfter: true})
		},
	}
)

// newLauncher builds a DOSBox launcher from the tool settings, printing
// installation guidance when no DOSBox executable exists.
func newLauncher(cmd *cobra.Command, t *tool) (*dosbox.Launcher, error) {
	launcher, err := dosbox.NewLauncher(t.settings.DOSBoxBinary, t.dirs.IPXConfFile())
	if err != nil {
		if errors.Is(err, dosbox.ErrNotInstalled) {
			cmd.PrintErrln(dosboxInstallHelp)
		}
		return nil, err
	}
	return launcher, nil
}

// installGame makes sure the game is installed, narrating progress the
// way a user at the terminal expects.
func installGame(cmd *cobra.Command, t *tool, id string) (catalog.Game, string, error) {
	game, err := t.catalog.Find(id)
	if err != nil {
		return catalog.Game{}, "", err
	}

	if t.library.IsInstalled(id) {
		cmd.Printf("'%s' is already installed.\n", game.Name)
		return game, t.library.InstallPath(id), nil
	}

	cmd.Printf("Installing '%s'...\n", game.Name)
	installPath, err := t.library.Install(id)
	if err != nil {
		return catalog.Game{}, "", err
	}
	cmd.Printf("✅ Successfully installed '%s'\n", game.Name)
	return game, installPath, nil
}

// resolveRunCommand picks the command to run inside DOSBox. Explicit
// arguments win, then the saved default (unless configure asks to ignore
// it), then auto-detection when the game ships exactly one executable.
// Several candidates are an error listing them, so the user can pass one
// explicitly.
func (t *tool) resolveRunCommand(cmd *cobra.Command, id, installPath string, commandArgs []string, configure bool) (string, error) {
	command := strings.TrimSpace(strings.Join(commandArgs, " "))
	if command == "" && !configure {
		command = t.library.Command(id)
	}
	if command != "" {
		return command, nil
	}

	cmd.Printf("No default executable set for game '%s'. Searching...\n", id)
	executables, err := library.FindExecutables(installPath)
	if err != nil {
		return "", err
	}

	switch len(executables) {
	case 0:
		return "", fmt.Errorf("no executables (.exe, .com, .bat) found in the archive for game '%s'", id)
	case 1:
		command = executables[0]
		cmd.Printf("Found a single executable: '%s'. Setting as default.\n", command)
		return command, nil
	default:
		return "", fmt.Errorf("several executables found for game '%s', run again with one of them as the command:\n  %s",
			id, strings.Join(executables, "\n  "))
	}
}

// saveAndValidateCommand stores the command as the game's default and
// checks its program part actually exists in the install directory. A
// stale default is cleared so the next run re-detects.
func (t *tool) saveAndValidateCommand(id, installPath, command string) error {
	if err := t.library.SetCommand(id, command); err != nil {
		return err
	}

	program := strings.Fields(command)[0]
	if !library.ExecutableExists(installPath, program) {
		_ = t.library.SetCommand(id, "")
		return fmt.Errorf("executable '%s' not found", program)
	}
	return nil
}
