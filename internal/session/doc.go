// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session drives a single emulator run.
//
// A [Session] wraps the emulator process together with its monitor and
// serial console connections. Work that requires a running guest is
// queued as [Task] functions before [Session.Run] is called and executed
// sequentially once the guest is up. The run blocks until
// [Session.EndAnalysis] is called or a task fails.
package session
