// Package library manages the local game library: downloading archives
// from the catalog, extracting them into per-game install directories,
// and remembering which command starts each game.
package library

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dosctl/dosctl/catalog"
	"github.com/dosctl/dosctl/config"
)

const downloadUserAgent = "Mozilla/5.0"

// Library is the on-disk game store under the data directory.
type Library struct {
	downloads string
	installed string
	runConfig string
	catalog   *catalog.Catalog
	client    *http.Client
}

// New returns a Library over the given layout, resolving games through cat.
func New(dirs config.Dirs, cat *catalog.Catalog) *Library {
	return &Library{
		downloads: dirs.Downloads(),
		installed: dirs.Installed(),
		runConfig: dirs.RunConfigFile(),
		catalog:   cat,
		// No overall timeout: archives run to hundreds of megabytes and a
		// client deadline would cut slow downloads mid-body. Stalls before
		// the body starts are still bounded.
		client: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
		},
	}
}

// InstallPath returns where the game with the given ID is (or would be)
// installed.
func (l *Library) InstallPath(id string) string {
	return filepath.Join(l.installed, id)
}

// IsInstalled reports whether the game's install directory exists.
func (l *Library) IsInstalled(id string) bool {
	info, err := os.Stat(l.InstallPath(id))
	return err == nil && info.IsDir()
}

// InstalledIDs returns the IDs of all installed games, sorted.
func (l *Library) InstalledIDs() ([]string, error) {
	entries, err := os.ReadDir(l.installed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Install makes sure the game is installed and returns its install path.
// Already-installed games short-circuit; otherwise the archive is
// downloaded (unless cached from an earlier attempt) and extracted.
func (l *Library) Install(id string) (string, error) {
	game, err := l.catalog.Find(id)
	if err != nil {
		return "", err
	}

	installPath := l.InstallPath(id)
	if l.IsInstalled(id) {
		log.Debugf("%q already installed at %s", game.Name, installPath)
		return installPath, nil
	}

	zipPath := filepath.Join(l.downloads, game.Name+".zip")
	if _, err := os.Stat(zipPath); err != nil {
		if err := l.download(id, game.Name, zipPath); err != nil {
			return "", err
		}
	}

	log.Infof("extracting %q to %s", game.Name, installPath)
	if err := extractZip(zipPath, installPath); err != nil {
		// do not leave a half-extracted directory that would pass the
		// installed check next time
		_ = os.RemoveAll(installPath)
		return "", fmt.Errorf("extract %s: %w", zipPath, err)
	}
	return installPath, nil
}

// download streams the game archive to zipPath. The body goes to a
// temporary file first and is renamed once complete, so an interrupted
// download never masquerades as a cached archive.
func (l *Library) download(id, name, zipPath string) error {
	downloadURL, err := l.catalog.DownloadURL(id)
	if err != nil {
		return err
	}

	log.Infof("downloading %q from %s", name, downloadURL)

	operation := func() error {
		return l.fetchToFile(downloadURL, zipPath)
	}
	expBackOff := backoff.NewExponentialBackOff()
	expBackOff.MaxInterval = 10 * time.Second
	expBackOff.MaxElapsedTime = 2 * time.Minute

	err = backoff.RetryNotify(operation, expBackOff, func(err error, duration time.Duration) {
		log.Warnf("retrying download of %q in %v due to error: %v", name, duration, err)
	})
	if err != nil {
		return fmt.Errorf("download %q: %w", name, err)
	}
	return nil
}

func (l *Library) fetchToFile(url, dest string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return backoff.Permanent(err)
	}
	tempName := tempFile.Name()

	if _, err := io.Copy(tempFile, resp.Body); err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempName)
		return err
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempName)
		return err
	}
	if err := os.Rename(tempName, dest); err != nil {
		_ = os.Remove(tempName)
		return backoff.Permanent(err)
	}
	return nil
}

// Remove deletes the game's install directory and its downloaded archive.
// Both steps run regardless of each other's outcome; failures are
// aggregated.
func (l *Library) Remove(id string) error {
	var result *multierror.Error

	installPath := l.InstallPath(id)
	if err := os.RemoveAll(installPath); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove install dir: %w", err))
	}

	if game, err := l.catalog.Find(id); err == nil {
		zipPath := filepath.Join(l.downloads, game.Name+".zip")
		if err := os.Remove(zipPath); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, fmt.Errorf("remove archive: %w", err))
		}
	}

	return result.ErrorOrNil()
}

// DownloadedArchive returns the path of the game's downloaded zip and
// whether it exists.
func (l *Library) DownloadedArchive(id string) (string, bool) {
	game, err := l.catalog.Find(id)
	if err != nil {
		return "", false
	}
	zipPath := filepath.Join(l.downloads, game.Name+".zip")
	_, err = os.Stat(zipPath)
	return zipPath, err == nil
}

// extractZip unpacks archive into dest, refusing entries that would
// escape it.
func extractZip(archive, dest string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	for _, file := range reader.File {
		if err := extractZipEntry(file, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(file *zip.File, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(file.Name))
	// zip-slip guard
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return fmt.Errorf("archive entry %q escapes destination", file.Name)
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	in, err := file.Open()
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, file.Mode())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
