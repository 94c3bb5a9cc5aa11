// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package image

import "errors"

// ErrDownloadFailed is returned if an image download did not complete.
var ErrDownloadFailed = errors.New("image download failed")

// NotSupportedError is returned for image names not present in the catalog.
type NotSupportedError struct {
	Name string
}

// Error implements the [error] interface.
func (e *NotSupportedError) Error() string {
	return "image not supported: " + e.Name
}

// Is implements the [errors.Is] interface.
func (*NotSupportedError) Is(other error) bool {
	_, ok := other.(*NotSupportedError)
	return ok
}
