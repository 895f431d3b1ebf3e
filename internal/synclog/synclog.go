// Package synclog manages the directory of per-run sync log files.
//
// Each run writes exactly one file named notion_sync_<timestamp>.synclog,
// where the timestamp has one-second resolution. Files are created
// exclusively and never rewritten.
package synclog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// Prefix starts every log file name.
	Prefix = "notion_sync_"

	// Ext ends every log file name.
	Ext = ".synclog"

	// TimeLayout is the timestamp layout embedded in file names
	// (YYYY-MM-DD_HH-MM-SS).
	TimeLayout = "2006-01-02_15-04-05"
)

// ErrExists is returned when a log for the same second already exists.
var ErrExists = errors.New("synclog: log file already exists")

// ErrNotSynclog is returned by Parse for names outside the pattern.
var ErrNotSynclog = errors.New("synclog: not a sync log file name")

// Name returns the log file name for a run started at t.
func Name(t time.Time) string {
	return Prefix + t.Format(TimeLayout) + Ext
}

// Parse extracts the timestamp from a log file name, interpreted in loc.
func Parse(name string, loc *time.Location) (time.Time, error) {
	stamp, ok := strings.CutPrefix(name, Prefix)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotSynclog, name)
	}
	stamp, ok = strings.CutSuffix(stamp, Ext)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrNotSynclog, name)
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(TimeLayout, stamp, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrNotSynclog, name, err)
	}
	return t, nil
}
