package synclog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Entry describes one log file found in a Dir.
type Entry struct {
	Name string
	Path string
	Time time.Time
	Size int64
}

// Dir is an append-only directory of sync log files.
type Dir struct {
	path string
	loc  *time.Location
}

// NewDir returns a Dir rooted at path whose file names use loc.
// A nil loc means UTC. The directory is created lazily by Create.
func NewDir(path string, loc *time.Location) *Dir {
	if loc == nil {
		loc = time.UTC
	}
	return &Dir{path: path, loc: loc}
}

// Path returns the directory path.
func (d *Dir) Path() string { return d.path }

// Location returns the time zone used for file names.
func (d *Dir) Location() *time.Location { return d.loc }

// Create makes the directory if absent and exclusively creates the log
// file for a run started at t. The caller owns the returned file.
func (d *Dir) Create(t time.Time) (*os.File, error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return nil, fmt.Errorf("synclog: creating %s: %w", d.path, err)
	}

	path := filepath.Join(d.path, Name(t.In(d.loc)))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrExists, path)
		}
		return nil, fmt.Errorf("synclog: creating %s: %w", path, err)
	}
	return f, nil
}

// List returns the log files in the directory, oldest first.
// Files not matching the naming pattern are ignored. A missing
// directory yields an empty list.
func (d *Dir) List() ([]Entry, error) {
	des, err := os.ReadDir(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("synclog: listing %s: %w", d.path, err)
	}

	entries := make([]Entry, 0, len(des))
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		t, err := Parse(de.Name(), d.loc)
		if err != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("synclog: stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{
			Name: de.Name(),
			Path: filepath.Join(d.path, de.Name()),
			Time: t,
			Size: info.Size(),
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return a.Time.Compare(b.Time)
	})
	return entries, nil
}
