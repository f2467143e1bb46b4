// Package config defines where dosctl keeps its files and the persisted
// tool settings.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/dosctl/dosctl/util"
)

// DefaultCollectionSource is the listing page of the Total DOS Collection
// Release 14 item on archive.org.
const DefaultCollectionSource = "https://ia800906.us.archive.org/view_archive.php?archive=/4/items/Total_DOS_Collection_Release_14/TDC_Release_14.zip"

// Dirs is the filesystem layout of one dosctl installation. Config holds
// settings and per-game run commands, Data holds the catalog cache, the
// downloaded archives and the installed games.
type Dirs struct {
	Config string
	Data   string
}

// DefaultDirs returns the per-user layout for the current platform.
func DefaultDirs() (Dirs, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Dirs{}, err
	}

	switch runtime.GOOS {
	case "windows":
		base := filepath.Join(home, "AppData", "Local", "dosctl")
		return Dirs{Config: base, Data: base}, nil
	case "darwin":
		base := filepath.Join(home, ".local", "share", "dosctl")
		return Dirs{Config: base, Data: base}, nil
	default:
		return Dirs{
			Config: filepath.Join(home, ".config", "dosctl"),
			Data:   filepath.Join(home, ".local", "share", "dosctl"),
		}, nil
	}
}

// Collections returns the catalog cache directory.
func (d Dirs) Collections() string { return filepath.Join(d.Data, "collections") }

// Downloads returns the directory for downloaded game archives.
func (d Dirs) Downloads() string { return filepath.Join(d.Data, "downloads") }

// Installed returns the directory games are extracted into.
func (d Dirs) Installed() string { return filepath.Join(d.Data, "installed") }

// SettingsFile returns the path of the tool settings file.
func (d Dirs) SettingsFile() string { return filepath.Join(d.Config, "config.json") }

// RunConfigFile returns the path of the per-game run command store.
func (d Dirs) RunConfigFile() string { return filepath.Join(d.Config, "run_config.json") }

// IPXConfFile returns the path of the DOSBox configuration snippet that
// enables IPX emulation.
func (d Dirs) IPXConfFile() string { return filepath.Join(d.Config, "ipx.conf") }

// EnsureDirs creates every directory of the layout.
func (d Dirs) EnsureDirs() error {
	dirs := []string{d.Config, d.Data, d.Collections(), d.Downloads(), d.Installed()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Settings is the content of config.json. Empty fields fall back to
// built-in defaults, so an absent or partial file keeps working.
type Settings struct {
	// CollectionSource overrides the archive.org listing URL.
	CollectionSource string `json:"collection_source,omitempty"`
	// DOSBoxBinary overrides the DOSBox executable lookup.
	DOSBoxBinary string `json:"dosbox_binary,omitempty"`
}

// LoadSettings reads the settings file. A missing or unreadable file
// yields the defaults; settings are a convenience, not a requirement.
func LoadSettings(dirs Dirs) *Settings {
	settings := &Settings{}
	if err := util.ReadJson(dirs.SettingsFile(), settings); err != nil && !os.IsNotExist(err) {
		log.Debugf("settings file %s unreadable, using defaults: %v", dirs.SettingsFile(), err)
	}
	if settings.CollectionSource == "" {
		settings.CollectionSource = DefaultCollectionSource
	}
	return settings
}

// SaveSettings writes the settings file atomically.
func SaveSettings(dirs Dirs, settings *Settings) error {
	return util.WriteJson(dirs.SettingsFile(), settings)
}
