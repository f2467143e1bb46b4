package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// executableExtensions are the DOS program types a run command can start.
var executableExtensions = []string{".exe", ".com", ".bat"}

// IsExecutableName reports whether the file name has a DOS executable
// extension, compared case-insensitively.
func IsExecutableName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, candidate := range executableExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

// FindExecutables returns the names of all DOS executables under dir,
// searched recursively, sorted. Only names are returned since DOSBox
// resolves them relative to the mounted drive.
func FindExecutables(dir string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsExecutableName(d.Name()) {
			names = append(names, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

// ExecutableExists reports whether name resolves to a file under dir.
// Forward slashes are accepted as separators, matching how run commands
// are written.
func ExecutableExists(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
	return err == nil
}
