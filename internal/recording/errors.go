// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package recording

import "errors"

var (
	// ErrIncomplete is returned if one of a recording's artifacts is missing
	// or not a regular file.
	ErrIncomplete = errors.New("recording incomplete")

	// ErrArchiveEmpty is returned if an archive does not contain any
	// recording artifacts.
	ErrArchiveEmpty = errors.New("no recording artifacts in archive")

	// ErrArchiveEntryInvalid is returned for archive entries that are not
	// plain recording artifact files.
	ErrArchiveEntryInvalid = errors.New("invalid archive entry")
)
