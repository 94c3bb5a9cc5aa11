// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sys

import (
	"os"
	"runtime"
	"slices"
)

// Arch is a guest architecture supported by the emulator.
type Arch string

// Supported guest architectures.
const (
	X86_64 Arch = "x86_64"
	I386   Arch = "i386"
	ARM    Arch = "arm"
	MIPS   Arch = "mips"
)

// Default is the architecture used if none is selected.
const Default = X86_64

func knownArchs() []Arch {
	return []Arch{X86_64, I386, ARM, MIPS}
}

// Native returns the [Arch] matching the host architecture, if the host
// architecture is supported for guests at all.
//
// Running a guest with the native architecture allows using KVM, if
// available. Use [Arch.KVMAvailable] to check.
func Native() (Arch, bool) {
	switch runtime.GOARCH {
	case "amd64":
		return X86_64, true
	case "386":
		return I386, true
	case "arm":
		return ARM, true
	case "mips":
		return MIPS, true
	default:
		return "", false
	}
}

func (a *Arch) isKnown() bool {
	return slices.Contains(knownArchs(), *a)
}

// String implements [fmt.Stringer].
func (a *Arch) String() string {
	return string(*a)
}

// IsNative returns whether the [Arch] matches the host architecture.
func (a *Arch) IsNative() bool {
	native, ok := Native()

	return ok && native == *a
}

// KVMAvailable checks if KVM acceleration is available for the [Arch].
func (a *Arch) KVMAvailable() bool {
	if !a.IsNative() {
		return false
	}

	f, err := os.OpenFile("/dev/kvm", os.O_WRONLY, 0)
	_ = f.Close()

	return err == nil
}

// MarshalText implements [encoding.TextMarshaler].
func (a Arch) MarshalText() ([]byte, error) {
	if !a.isKnown() {
		return nil, ErrArchNotSupported
	}

	return []byte(a), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (a *Arch) UnmarshalText(text []byte) error {
	arch := Arch(text)

	if !arch.isKnown() {
		return ErrArchNotSupported
	}

	*a = arch

	return nil
}
