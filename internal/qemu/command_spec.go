// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aibor/pandarun/internal/sys"
)

// CommandSpec defines the parameters for a [Command].
type CommandSpec struct {
	// Path to the emulator system binary.
	Executable string

	// BiosDir is the directory with the emulator's firmware files, passed
	// with the -L flag. If empty the binary's built-in default is used.
	BiosDir string

	// Qcow is the path to the guest disk image. Required unless a replay is
	// run.
	Qcow string

	// Kernel is the path to a kernel to boot the machine with. Machine
	// types without a BIOS boot path need one.
	Kernel string

	// Initrd is the path to the initial ramdisk matching Kernel.
	Initrd string

	// OS identification string for the emulator's guest introspection.
	OS string

	// CPU type to use. Depends on the emulator binary used.
	CPU string

	// Memory for the machine in MB. Reverting to a snapshot or running a
	// replay requires the same value the recording was made with.
	Memory uint64

	// Disable KVM support. Recordings made with and without KVM are
	// compatible, so this only affects speed.
	NoKVM bool

	// MonitorSocket is the unix socket path the QMP monitor is served on.
	MonitorSocket string

	// SerialSocket is the unix socket path the first serial console is
	// served on. May be empty for replays, which have no live console.
	SerialSocket string

	// Replay is the name of a recording to replay instead of running live.
	Replay string

	// TapDevice is the name of a host tap device to attach as guest network
	// interface. Empty disables guest networking.
	TapDevice string

	// WorkDir is the working directory the emulator is run in. Recording
	// artifacts are written to and replayed from there. Empty uses the
	// current working directory.
	WorkDir string

	// ExtraArgs are extra arguments that are passed to the emulator command.
	// They must not interfere with the essential arguments set by the
	// command itself or an error will be returned by [NewCommand].
	ExtraArgs []Argument

	// Print the emulator command and forward all of its output.
	Verbose bool
}

// AddDefaultsFor adds architecture specific default values to the given spec
// if the fields are not set yet.
func (s *CommandSpec) AddDefaultsFor(arch sys.Arch) error {
	if _, err := arch.MarshalText(); err != nil {
		return err //nolint:wrapcheck
	}

	if s.Executable == "" {
		s.Executable = "panda-system-" + arch.String()
	}

	if s.BiosDir == "" {
		if pandaPath := os.Getenv("PANDA_PATH"); pandaPath != "" {
			s.BiosDir = filepath.Join(pandaPath, "pc-bios")
		}
	}

	if !s.NoKVM {
		s.NoKVM = !arch.KVMAvailable()
	}

	return nil
}

// Validate checks for missing parameters and known incompatibilities.
func (s *CommandSpec) Validate() error {
	if s.Memory == 0 {
		return &ArgumentError{"guest memory size is required"}
	}

	if s.MonitorSocket == "" {
		return &ArgumentError{"monitor socket path is required"}
	}

	if s.Replay == "" && s.Qcow == "" {
		return &ArgumentError{"disk image is required for live runs"}
	}

	if s.Replay == "" && s.SerialSocket == "" {
		return &ArgumentError{"serial socket path is required for live runs"}
	}

	if s.Replay != "" && s.TapDevice != "" {
		return &ArgumentError{"replays do not support network devices"}
	}

	return nil
}

// arguments compiles the argument list for the emulator command.
func (s *CommandSpec) arguments() []Argument {
	args := []Argument{
		UniqueArg("m", strconv.FormatUint(s.Memory, 10)),
	}

	if s.BiosDir != "" {
		args = append(args, UniqueArg("L", s.BiosDir))
	}

	if s.Kernel != "" {
		args = append(args, UniqueArg("kernel", s.Kernel))
	}

	if s.Initrd != "" {
		args = append(args, UniqueArg("initrd", s.Initrd))
	}

	if s.CPU != "" {
		args = append(args, UniqueArg("cpu", s.CPU))
	}

	if s.OS != "" {
		args = append(args, UniqueArg("os", s.OS))
	}

	if !s.NoKVM {
		args = append(args, UniqueArg("enable-kvm"))
	}

	args = append(args,
		UniqueArg("qmp", "unix:"+s.MonitorSocket+",server,nowait"),
	)

	if s.SerialSocket != "" {
		args = append(args,
			RepeatableArg("serial", "unix:"+s.SerialSocket+",server,nowait"),
		)
	}

	if s.TapDevice != "" {
		netdev := "tap,id=net0,ifname=" + s.TapDevice +
			",script=no,downscript=no"
		args = append(args,
			RepeatableArg("netdev", netdev),
			RepeatableArg("device", "e1000,netdev=net0"),
		)
	}

	args = append(args,
		// Disable video output.
		UniqueArg("display", "none"),
		// Guest must not reboot.
		UniqueArg("no-reboot"),
	)

	if s.Replay != "" {
		args = append(args, UniqueArg("replay", s.Replay))
	}

	args = append(args, s.ExtraArgs...)

	if s.Qcow != "" {
		args = append(args, PositionalArg(s.Qcow))
	}

	return args
}

// ParseExtraArgs converts a flat list of raw emulator arguments, as carried
// by the image catalog, into [Argument]s.
//
// A string with "-" prefix starts a new argument, a following string without
// the prefix is its value.
func ParseExtraArgs(raw []string) []Argument {
	args := make([]Argument, 0, len(raw))

	for _, elem := range raw {
		if name, isFlag := strings.CutPrefix(elem, "-"); isFlag {
			args = append(args, RepeatableArg(name))
			continue
		}

		if len(args) == 0 {
			args = append(args, PositionalArg(elem))
			continue
		}

		last := &args[len(args)-1]
		if last.value == "" && !last.positional {
			last.value = elem
		} else {
			args = append(args, PositionalArg(elem))
		}
	}

	return args
}
