// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// snapshotSuffix is the suffix of a recording's initial state file.
	snapshotSuffix = "-rr-snp"
	// logSuffix is the suffix of a recording's nondeterminism log.
	logSuffix = "-rr-nondet.log"
)

// Recording identifies the artifact pair the emulator produces for a named
// recording: an initial guest state file and a log of all nondeterministic
// inputs. Both are required for deterministic replay.
//
// The artifact format is owned by the emulator. This package only manages
// the files.
type Recording struct {
	// Name of the recording, as passed to the record command.
	Name string

	// Dir is the directory the artifacts reside in.
	Dir string
}

// SnapshotPath returns the path of the initial state file.
func (r *Recording) SnapshotPath() string {
	return filepath.Join(r.Dir, r.Name+snapshotSuffix)
}

// LogPath returns the path of the nondeterminism log.
func (r *Recording) LogPath() string {
	return filepath.Join(r.Dir, r.Name+logSuffix)
}

// Validate checks that both artifacts are present.
func (r *Recording) Validate() error {
	for _, path := range []string{r.SnapshotPath(), r.LogPath()} {
		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrIncomplete, path)
		}

		if !stat.Mode().IsRegular() {
			return fmt.Errorf("%w: %s", ErrIncomplete, path)
		}
	}

	return nil
}

// Remove deletes both artifacts.
func (r *Recording) Remove() error {
	for _, path := range []string{r.SnapshotPath(), r.LogPath()} {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove: %w", err)
		}
	}

	return nil
}

// List returns all complete recordings found in the given directory, sorted
// by name.
func List(dir string) ([]Recording, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var recordings []Recording

	for _, entry := range entries {
		name, found := strings.CutSuffix(entry.Name(), snapshotSuffix)
		if !found || !entry.Type().IsRegular() {
			continue
		}

		rec := Recording{Name: name, Dir: dir}
		if rec.Validate() != nil {
			continue
		}

		recordings = append(recordings, rec)
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].Name < recordings[j].Name
	})

	return recordings, nil
}
