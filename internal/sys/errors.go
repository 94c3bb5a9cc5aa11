// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import "errors"

var (
	// ErrArchNotSupported is returned for unknown guest architectures.
	ErrArchNotSupported = errors.New("architecture not supported")

	// ErrEmptyFilePath is returned if a file path is empty.
	ErrEmptyFilePath = errors.New("file path must not be empty")

	// ErrNotRegularFile is returned if a file is not a regular file.
	ErrNotRegularFile = errors.New("not a regular file")
)
