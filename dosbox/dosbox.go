// Package dosbox launches DOSBox processes configured for a game
// directory, optionally with IPX networking enabled.
package dosbox

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dosctl/dosctl/ipx"
)

// binaryCandidates in preference order; dosbox-staging handles modern
// displays and audio better than vanilla DOSBox.
var binaryCandidates = []string{"dosbox-staging", "dosbox"}

// ErrNotInstalled is returned when no DOSBox executable can be found.
var ErrNotInstalled = errors.New("dosbox executable not found in PATH")

// Launcher starts DOSBox for installed games.
type Launcher struct {
	binary  string
	ipxConf string
}

// NewLauncher resolves the DOSBox binary and returns a launcher. An empty
// binary tries the well-known names in preference order; a non-empty one
// is used as given. ipxConfPath is where the IPX configuration snippet is
// created when a networked launch needs it.
func NewLauncher(binary, ipxConfPath string) (*Launcher, error) {
	resolved, err := lookupBinary(binary)
	if err != nil {
		return nil, err
	}
	return &Launcher{binary: resolved, ipxConf: ipxConfPath}, nil
}

// Installed reports whether a usable DOSBox executable exists.
func Installed(binary string) bool {
	_, err := lookupBinary(binary)
	return err == nil
}

func lookupBinary(override string) (string, error) {
	names := binaryCandidates
	if override != "" {
		names = []string{override}
	}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNotInstalled
}

// Options tune one launch.
type Options struct {
	// Floppy also mounts the game directory as A: and starts there,
	// which floppy-era installers expect.
	Floppy bool
	// ExitAfter closes DOSBox when the game command returns. Ignored
	// during IPX sessions, which players quit manually.
	ExitAfter bool
	// IPX enables IPX emulation and runs the session command inside
	// DOSBox before the game starts.
	IPX ipx.Config
}

// Launch starts DOSBox detached with gameDir mounted as C:. An empty
// command leaves DOSBox at the prompt. The child's output is discarded;
// DOSBox has its own window.
func (l *Launcher) Launch(gameDir, command string, opts Options) error {
	args, err := l.args(gameDir, command, opts)
	if err != nil {
		return err
	}

	cmd := exec.Command(l.binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start dosbox: %w", err)
	}
	log.Debugf("dosbox started: %s %q", l.binary, args)

	// The game outlives dosctl.
	return cmd.Process.Release()
}

// args builds the DOSBox invocation for one launch.
func (l *Launcher) args(gameDir, command string, opts Options) ([]string, error) {
	var args []string

	if opts.IPX != nil {
		confPath, err := l.ensureIPXConf()
		if err != nil {
			return nil, err
		}
		args = append(args, "-conf", confPath)
	}

	args = append(args, "-c", mountCommand("C", gameDir))

	if opts.Floppy {
		args = append(args, "-c", mountCommand("A", gameDir), "-c", "A:")
	} else {
		args = append(args, "-c", "C:")
	}

	if opts.IPX != nil {
		args = append(args, "-c", opts.IPX.Command())
	}

	if command != "" {
		args = append(args, commandArgs(command)...)
	}

	if opts.ExitAfter && opts.IPX == nil {
		args = append(args, "-c", "exit")
	}

	return args, nil
}

// commandArgs turns a run command into DOSBox -c arguments. DOS treats /
// as the switch character, so path separators become backslashes; when
// the program sits in a subdirectory, a CD is emitted first so the game
// finds its data files through relative paths.
func commandArgs(command string) []string {
	var args []string

	dosCommand := strings.ReplaceAll(command, "/", "\\")
	fields := strings.Fields(dosCommand)
	if len(fields) == 0 {
		return nil
	}

	if i := strings.LastIndex(fields[0], "\\"); i >= 0 {
		args = append(args, "-c", "CD "+fields[0][:i])
		fields[0] = fields[0][i+1:]
		dosCommand = strings.Join(fields, " ")
	}

	return append(args, "-c", dosCommand)
}

// mountCommand formats a MOUNT for the host path. DOSBox accepts forward
// slashes on every platform, so normalize toward them.
func mountCommand(drive, dir string) string {
	return fmt.Sprintf(`MOUNT %s "%s"`, drive, filepath.ToSlash(dir))
}

// ensureIPXConf creates the configuration snippet that switches IPX
// emulation on. Loaded with -conf, it merges over DOSBox's defaults.
func (l *Launcher) ensureIPXConf() (string, error) {
	if _, err := os.Stat(l.ipxConf); err == nil {
		return l.ipxConf, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.ipxConf), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(l.ipxConf, []byte("[ipx]\nipx=true\n"), 0o644); err != nil {
		return "", err
	}
	return l.ipxConf, nil
}
