// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package qemu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibor/pandarun/internal/qemu"
	"github.com/aibor/pandarun/internal/sys"
)

func TestCommandSpecAddDefaultsFor(t *testing.T) {
	tests := []struct {
		name               string
		spec               qemu.CommandSpec
		arch               sys.Arch
		expectedExecutable string
		expectedErr        error
	}{
		{
			name:               "x86_64",
			arch:               sys.X86_64,
			expectedExecutable: "panda-system-x86_64",
		},
		{
			name:               "arm",
			arch:               sys.ARM,
			expectedExecutable: "panda-system-arm",
		},
		{
			name: "keeps executable",
			spec: qemu.CommandSpec{
				Executable: "/opt/panda/bin/panda-system-x86_64",
			},
			arch:               sys.X86_64,
			expectedExecutable: "/opt/panda/bin/panda-system-x86_64",
		},
		{
			name:        "unsupported arch",
			arch:        sys.Arch("sparc"),
			expectedErr: sys.ErrArchNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := tt.spec

			err := spec.AddDefaultsFor(tt.arch)
			require.ErrorIs(t, err, tt.expectedErr)

			if tt.expectedErr == nil {
				assert.Equal(t, tt.expectedExecutable, spec.Executable)
			}
		})
	}
}

func TestCommandSpecValidate(t *testing.T) {
	validSpec := func() qemu.CommandSpec {
		return qemu.CommandSpec{
			Executable:    "panda-system-x86_64",
			Qcow:          "/images/test.qcow2",
			Memory:        1024,
			MonitorSocket: "/tmp/monitor.sock",
			SerialSocket:  "/tmp/serial.sock",
		}
	}

	tests := []struct {
		name        string
		mutate      func(*qemu.CommandSpec)
		expectedErr error
	}{
		{
			name:   "valid",
			mutate: func(_ *qemu.CommandSpec) {},
		},
		{
			name: "no memory",
			mutate: func(s *qemu.CommandSpec) {
				s.Memory = 0
			},
			expectedErr: &qemu.ArgumentError{},
		},
		{
			name: "no monitor socket",
			mutate: func(s *qemu.CommandSpec) {
				s.MonitorSocket = ""
			},
			expectedErr: &qemu.ArgumentError{},
		},
		{
			name: "no qcow",
			mutate: func(s *qemu.CommandSpec) {
				s.Qcow = ""
			},
			expectedErr: &qemu.ArgumentError{},
		},
		{
			name: "no serial socket",
			mutate: func(s *qemu.CommandSpec) {
				s.SerialSocket = ""
			},
			expectedErr: &qemu.ArgumentError{},
		},
		{
			name: "replay without qcow and serial",
			mutate: func(s *qemu.CommandSpec) {
				s.Qcow = ""
				s.SerialSocket = ""
				s.Replay = "test"
			},
		},
		{
			name: "replay with network",
			mutate: func(s *qemu.CommandSpec) {
				s.Replay = "test"
				s.TapDevice = "tap0"
			},
			expectedErr: &qemu.ArgumentError{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)

			err := spec.Validate()
			require.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestNewCommand(t *testing.T) {
	t.Run("arguments", func(t *testing.T) {
		spec := qemu.CommandSpec{
			Executable:    "panda-system-x86_64",
			BiosDir:       "/opt/panda/pc-bios",
			Qcow:          "/images/test.qcow2",
			OS:            "linux-64-ubuntu:4.15.0-72-generic",
			Memory:        1024,
			NoKVM:         true,
			MonitorSocket: "/tmp/monitor.sock",
			SerialSocket:  "/tmp/serial.sock",
		}

		cmd, err := qemu.NewCommand(spec)
		require.NoError(t, err)

		cmdString := cmd.String()
		assert.Contains(t, cmdString, "panda-system-x86_64")
		assert.Contains(t, cmdString, "-m 1024")
		assert.Contains(t, cmdString, "-L /opt/panda/pc-bios")
		assert.Contains(t, cmdString, "-os linux-64-ubuntu:4.15.0-72-generic")
		assert.Contains(t, cmdString, "-qmp unix:/tmp/monitor.sock,server,nowait")
		assert.Contains(t, cmdString, "-serial unix:/tmp/serial.sock,server,nowait")
		assert.Contains(t, cmdString, "-display none")
		assert.Contains(t, cmdString, "/images/test.qcow2")
		assert.NotContains(t, cmdString, "-enable-kvm")
		assert.NotContains(t, cmdString, "-replay")
	})

	t.Run("boot artifacts", func(t *testing.T) {
		spec := qemu.CommandSpec{
			Executable:    "panda-system-arm",
			Qcow:          "/images/arm.qcow",
			Kernel:        "/cache/vmlinuz-3.2.0-4-versatile",
			Initrd:        "/cache/initrd.img-3.2.0-4-versatile",
			Memory:        128,
			NoKVM:         true,
			MonitorSocket: "/tmp/monitor.sock",
			SerialSocket:  "/tmp/serial.sock",
		}

		cmd, err := qemu.NewCommand(spec)
		require.NoError(t, err)

		cmdString := cmd.String()
		assert.Contains(t, cmdString, "-kernel /cache/vmlinuz-3.2.0-4-versatile")
		assert.Contains(t, cmdString, "-initrd /cache/initrd.img-3.2.0-4-versatile")
	})

	t.Run("replay arguments", func(t *testing.T) {
		spec := qemu.CommandSpec{
			Executable:    "panda-system-x86_64",
			Memory:        1024,
			NoKVM:         true,
			MonitorSocket: "/tmp/monitor.sock",
			Replay:        "test",
		}

		cmd, err := qemu.NewCommand(spec)
		require.NoError(t, err)

		assert.Contains(t, cmd.String(), "-replay test")
	})

	t.Run("invalid spec", func(t *testing.T) {
		_, err := qemu.NewCommand(qemu.CommandSpec{})
		require.ErrorIs(t, err, &qemu.ArgumentError{})
	})

	t.Run("colliding extra args", func(t *testing.T) {
		spec := qemu.CommandSpec{
			Executable:    "panda-system-x86_64",
			Qcow:          "/images/test.qcow2",
			Memory:        1024,
			NoKVM:         true,
			MonitorSocket: "/tmp/monitor.sock",
			SerialSocket:  "/tmp/serial.sock",
			ExtraArgs:     []qemu.Argument{qemu.UniqueArg("m", "512")},
		}

		_, err := qemu.NewCommand(spec)
		require.ErrorIs(t, err, qemu.ErrArgumentCollision)
	})
}
