// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package recording

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cavaliergopher/cpio"
)

// Export writes the recording's artifacts as cpio archive, so it can be
// transferred and replayed on another host.
func (r *Recording) Export(w io.Writer) error {
	err := r.Validate()
	if err != nil {
		return err
	}

	writer := cpio.NewWriter(w)

	for _, filePath := range []string{r.SnapshotPath(), r.LogPath()} {
		err := writeFile(writer, filePath)
		if err != nil {
			return err
		}
	}

	err = writer.Close()
	if err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	return nil
}

func writeFile(writer *cpio.Writer, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	hdr, err := cpio.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create header for %s: %w", filePath, err)
	}

	hdr.Name = filepath.Base(filePath)

	err = writer.WriteHeader(hdr)
	if err != nil {
		return fmt.Errorf("write header for %s: %w", filePath, err)
	}

	_, err = io.Copy(writer, file)
	if err != nil {
		return fmt.Errorf("write body for %s: %w", filePath, err)
	}

	return nil
}

// Import reads a cpio archive written by [Recording.Export] into the given
// directory and returns the imported [Recording].
//
// Entries with path separators or unexpected file names are rejected.
func Import(dir string, r io.Reader) (Recording, error) {
	reader := cpio.NewReader(r)
	rec := Recording{Dir: dir}

	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return Recording{}, fmt.Errorf("read archive: %w", err)
		}

		name, err := artifactName(hdr)
		if err != nil {
			return Recording{}, err
		}

		rec.Name = name

		err = extractFile(filepath.Join(dir, hdr.Name), reader)
		if err != nil {
			return Recording{}, err
		}
	}

	if rec.Name == "" {
		return Recording{}, ErrArchiveEmpty
	}

	err := rec.Validate()
	if err != nil {
		return Recording{}, err
	}

	return rec, nil
}

// artifactName validates the archive entry and returns the recording name
// the artifact belongs to.
func artifactName(hdr *cpio.Header) (string, error) {
	if path.Base(hdr.Name) != hdr.Name || !hdr.Mode.IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrArchiveEntryInvalid, hdr.Name)
	}

	for _, suffix := range []string{snapshotSuffix, logSuffix} {
		if name, found := strings.CutSuffix(hdr.Name, suffix); found {
			return name, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrArchiveEntryInvalid, hdr.Name)
}

func extractFile(dst string, src io.Reader) error {
	file, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer file.Close()

	_, err = io.Copy(file, src)
	if err != nil {
		return fmt.Errorf("extract %s: %w", dst, err)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}

	return nil
}
