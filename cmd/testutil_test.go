package cmd

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/dosctl/dosctl/config"
	"github.com/dosctl/dosctl/ipx"
)

// testListing is the catalog cache every command test starts from: two
// games, so filtering and sorting are observable.
const testListing = `
<a href="/4/items/Test_Item/Test.zip/Doom%20%281993%29.zip">
<a href="/4/items/Test_Item/Test.zip/Dune%20II%20%281992%29.zip">
`

func listedID(path string) string {
	sum := sha1.Sum([]byte(path))
	return hex.EncodeToString(sum[:])[:8]
}

func doomID() string { return listedID("Doom (1993).zip") }
func duneID() string { return listedID("Dune II (1992).zip") }

// setupTestHome points the tool at a throwaway home directory with the
// catalog cache pre-seeded, so no command reaches for the network.
func setupTestHome(t *testing.T) config.Dirs {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	dirs, err := config.DefaultDirs()
	require.NoError(t, err)
	require.NoError(t, dirs.EnsureDirs())

	cachePath := filepath.Join(dirs.Collections(), "games.txt")
	require.NoError(t, os.WriteFile(cachePath, []byte(testListing), 0o644))
	return dirs
}

// writeEmptyCache replaces the seeded cache with a listing without games.
func writeEmptyCache(dirs config.Dirs) error {
	return os.WriteFile(filepath.Join(dirs.Collections(), "games.txt"), []byte("<html></html>"), 0o644)
}

// installFakeDOSBox makes launches work without a real DOSBox: a shell
// stub wired in through the settings file.
func installFakeDOSBox(t *testing.T, dirs config.Dirs) {
	t.Helper()

	binary := filepath.Join(t.TempDir(), "dosbox-fake")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\nexit 0\n"), 0o755))
	require.NoError(t, config.SaveSettings(dirs, &config.Settings{DOSBoxBinary: binary}))
}

// seedInstall fakes an installed game by laying out files in its install
// directory.
func seedInstall(t *testing.T, dirs config.Dirs, id string, names ...string) string {
	t.Helper()

	installPath := filepath.Join(dirs.Installed(), id)
	require.NoError(t, os.MkdirAll(installPath, 0o755))
	for _, name := range names {
		path := filepath.Join(installPath, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
	return installPath
}

// executeCommand runs the root command with the given arguments and
// returns everything it printed. Flag variables are reset first; they are
// package state and would otherwise leak between tests.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	resetCommandTree(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetCommandTree clears cobra state that sticks to the package-level
// command singletons between Execute calls: output writers pinned onto
// subcommands by earlier runs, and the built-in help flag, which stays
// set after a command runs with -h.
func resetCommandTree(c *cobra.Command) {
	c.SetOut(nil)
	c.SetErr(nil)
	if f := c.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
	for _, sub := range c.Commands() {
		resetCommandTree(sub)
	}
}

func resetFlags() {
	listInstalled = false
	searchCaseSensitive = false
	runConfigure = false
	runFloppy = false
	runNoExec = false
	inspectExecutables = false
	deleteYes = false
	refreshForce = false
	hostPort = ipx.DefaultPort
	hostConfigure = false
	hostInternet = false
	hostPublicIP = ""
	hostNoUpnp = false
	joinPort = ipx.DefaultPort
	joinConfigure = false
}
