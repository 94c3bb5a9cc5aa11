// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package recording manages the artifact files the emulator produces for
// named recordings and their transfer as cpio archives.
package recording
