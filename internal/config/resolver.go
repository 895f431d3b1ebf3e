package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by ResolvePath when no candidate file exists.
var ErrNotFound = errors.New("config: no configuration file found")

// ResolvePath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/notionsync/notionsync.yaml → ./notionsync.yaml
func ResolvePath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "notionsync", "notionsync.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "notionsync", "notionsync.yaml"))
	}

	candidates = append(candidates, "notionsync.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNotFound, candidates)
}

// LoadOrDefault loads the file at path. When path is empty it is resolved
// with ResolvePath, and if nothing is found the defaults are returned.
// The second return value is the path actually loaded ("" for defaults).
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		resolved, err := ResolvePath()
		if errors.Is(err, ErrNotFound) {
			return Default(), "", nil
		}
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}

	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("config: %s does not exist", path)
		}
		return nil, "", err
	}
	return cfg, path, nil
}
