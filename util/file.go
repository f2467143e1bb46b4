package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteJson writes a JSON object to a file creating parent directories if
// required. The output JSON is pretty-formatted.
func WriteJson(file string, obj interface{}) error {
	// make it pretty
	bs, err := json.MarshalIndent(obj, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return WriteBytes(file, bs)
}

// WriteBytes writes bytes to a file creating parent directories if
// required. The write is atomic: content goes to a temporary file in the
// target directory first and is renamed into place once fully written.
func WriteBytes(file string, bs []byte) error {
	dir, name, err := prepareFileDir(file)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, ".*"+name)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tempFileName := tempFile.Name()

	_, err = tempFile.Write(bs)
	if err != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempFileName)
		return fmt.Errorf("write: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		_ = os.Remove(tempFileName)
		return fmt.Errorf("close %s: %w", tempFileName, err)
	}

	if err = os.Rename(tempFileName, file); err != nil {
		_ = os.Remove(tempFileName)
		return fmt.Errorf("move %s to %s: %w", tempFileName, file, err)
	}

	return nil
}

// ReadJson reads a JSON file and maps it to a provided interface
func ReadJson(file string, res interface{}) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	bs, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	return json.Unmarshal(bs, res)
}

func prepareFileDir(file string) (string, string, error) {
	dir, name := filepath.Split(file)
	if dir == "" {
		return filepath.Dir(file), name, nil
	}

	err := os.MkdirAll(dir, 0750)
	if err != nil {
		return "", "", err
	}

	return dir, name, err
}
