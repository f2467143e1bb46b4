// Package catalog reads the game listing of an archive.org collection.
//
// The collection is a single huge zip (the Total DOS Collection) whose
// per-file listing page is fetched once and cached on disk. Every zip
// entry of the listing is one game; its identity is a short hash of the
// path inside the collection, which stays stable across refreshes.
package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/dosctl/dosctl/util"
)

const (
	cacheFileName = "games.txt"

	// listingUserAgent mimics a browser; archive.org's listing endpoint
	// rejects obviously scripted clients.
	listingUserAgent = "Mozilla/5.0"
)

// ErrGameNotFound is returned when an ID does not match any catalog entry.
var ErrGameNotFound = errors.New("game not found in catalog")

// zipHrefPattern matches the file links on the listing page.
var zipHrefPattern = regexp.MustCompile(`href="(.+?\.zip)"`)

// Game is one entry of the collection listing.
type Game struct {
	// ID is the first 8 hex digits of the SHA-1 of Path. Short enough to
	// type, stable as long as the file keeps its place in the collection.
	ID string
	// Name is the file name without the .zip extension.
	Name string
	// Path is the decoded path of the zip entry inside the collection.
	Path string
}

// Catalog fetches, caches and queries the listing of one collection.
type Catalog struct {
	source   string
	cacheDir string
	client   *http.Client

	games []Game
}

// New returns a Catalog for the listing at source, caching under cacheDir.
func New(source, cacheDir string) *Catalog {
	return &Catalog{
		source:   source,
		cacheDir: cacheDir,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Catalog) cacheFile() string {
	return filepath.Join(c.cacheDir, cacheFileName)
}

// item returns the archive.org item name, the second-to-last segment of
// the source URL.
func (c *Catalog) item() string {
	segments := strings.Split(c.source, "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-2]
}

// archiveName returns the collection zip file name, the last segment of
// the source URL.
func (c *Catalog) archiveName() string {
	segments := strings.Split(c.source, "/")
	return segments[len(segments)-1]
}

// Refresh downloads the listing page into the cache file. When the cache
// already exists and force is false this is a no-op, so commands can call
// it unconditionally.
func (c *Catalog) Refresh(force bool) error {
	if !force {
		if _, err := os.Stat(c.cacheFile()); err == nil {
			return nil
		}
	}

	log.Infof("downloading game list from %s", c.source)

	var body []byte
	operation := func() error {
		fetched, err := c.fetch(c.source)
		if err != nil {
			return err
		}
		body = fetched
		return nil
	}
	err := backoff.RetryNotify(operation, fetchBackOff(), func(err error, duration time.Duration) {
		log.Warnf("retrying game list download in %v due to error: %v", duration, err)
	})
	if err != nil {
		return fmt.Errorf("download game list: %w", err)
	}

	if err := util.WriteBytes(c.cacheFile(), body); err != nil {
		return fmt.Errorf("write game list cache: %w", err)
	}

	// force a re-parse on next access
	c.games = nil
	return nil
}

func (c *Catalog) fetch(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", listingUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Games returns all catalog entries, parsing the cache on first use.
func (c *Catalog) Games() ([]Game, error) {
	if c.games != nil {
		return c.games, nil
	}

	content, err := os.ReadFile(c.cacheFile())
	if err != nil {
		return nil, fmt.Errorf("read game list cache: %w", err)
	}

	c.games = parseListing(string(content))
	return c.games, nil
}

// parseListing extracts one Game per zip link on the listing page. The
// last path segment of each link is the percent-encoded path of the entry
// inside the collection zip.
func parseListing(content string) []Game {
	matches := zipHrefPattern.FindAllStringSubmatch(content, -1)
	games := make([]Game, 0, len(matches))

	for _, match := range matches {
		href := match[1]
		encoded := href[strings.LastIndex(href, "/")+1:]
		fullPath, err := url.PathUnescape(encoded)
		if err != nil {
			log.Debugf("skipping undecodable listing entry %q: %v", encoded, err)
			continue
		}

		sum := sha1.Sum([]byte(fullPath))
		games = append(games, Game{
			ID:   hex.EncodeToString(sum[:])[:8],
			Name: strings.TrimSuffix(path.Base(fullPath), ".zip"),
			Path: fullPath,
		})
	}
	return games
}

// Find looks up a game by its ID.
func (c *Catalog) Find(id string) (Game, error) {
	games, err := c.Games()
	if err != nil {
		return Game{}, err
	}
	for _, game := range games {
		if game.ID == id {
			return game, nil
		}
	}
	return Game{}, fmt.Errorf("%w: %q", ErrGameNotFound, id)
}

// Search returns the games whose name matches the query, interpreted as a
// regular expression, sorted by name.
func (c *Catalog) Search(query string, caseSensitive bool) ([]Game, error) {
	if !caseSensitive {
		query = "(?i)" + query
	}
	pattern, err := regexp.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}

	games, err := c.Games()
	if err != nil {
		return nil, err
	}

	var results []Game
	for _, game := range games {
		if pattern.MatchString(game.Name) {
			results = append(results, game)
		}
	}
	SortByName(results)
	return results, nil
}

// DownloadURL returns the direct download URL for one game: the
// collection zip on archive.org addressed down to the game's entry.
func (c *Catalog) DownloadURL(id string) (string, error) {
	game, err := c.Find(id)
	if err != nil {
		return "", err
	}

	escaped := (&url.URL{Path: game.Path}).EscapedPath()
	return fmt.Sprintf("https://archive.org/download/%s/%s/%s", c.item(), c.archiveName(), escaped), nil
}

// SortByName orders games alphabetically for display.
func SortByName(games []Game) {
	sort.Slice(games, func(i, j int) bool {
		return games[i].Name < games[j].Name
	})
}

// fetchBackOff is the retry profile for listing fetches. Short, because a
// human is waiting at the terminal.
func fetchBackOff() *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     time.Second,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         10 * time.Second,
		MaxElapsedTime:      30 * time.Second,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
}
