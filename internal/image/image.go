// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package image

import (
	"github.com/aibor/pandarun/internal/sys"
)

// Image describes a supported generic guest disk image.
//
// The referenced qcow file must contain a snapshot named [Image.Snapshot]
// that was taken with a root shell attached to the first serial console, as
// all guest interaction is built around reverting to that state.
type Image struct {
	// Name of the image in the catalog.
	Name string

	// Arch is the guest architecture the image was built for.
	Arch sys.Arch

	// OS is the guest OS identification string passed to the emulator for
	// guest introspection.
	OS string

	// Prompt is a regular expression matching the shell prompt on the serial
	// console. It is used to detect when a command has finished.
	Prompt string

	// Snapshot is the name of the base snapshot to revert to.
	Snapshot string

	// Memory is the guest memory in MB the snapshot was taken with. Reverting
	// requires running with the same value.
	Memory uint64

	// URL the image can be downloaded from.
	URL string

	// KernelURL is the URL of a kernel to boot the machine with. Machine
	// types without a BIOS boot path need one.
	KernelURL string

	// InitrdURL is the URL of the initial ramdisk matching KernelURL. May
	// be empty if the kernel boots without one.
	InitrdURL string

	// ExtraArgs are additional emulator arguments the image requires.
	ExtraArgs []string
}

// catalog contains all supported generic images.
//
// It is intentionally small. Images must run unattended and expose a root
// shell on the first serial console in their base snapshot.
var catalog = map[string]Image{
	"i386_wheezy": {
		Name:     "i386_wheezy",
		Arch:     sys.I386,
		OS:       "linux-32-debian:3.2.0-4-686-pae",
		Prompt:   `root@debian-i386:.*# `,
		Snapshot: "root",
		Memory:   128,
		URL:      "https://panda-re.mit.edu/qcows/linux/debian/7.3/x86/debian_7.3_x86.qcow",
	},
	"x86_64_wheezy": {
		Name:     "x86_64_wheezy",
		Arch:     sys.X86_64,
		OS:       "linux-64-debian:3.2.0-4-amd64",
		Prompt:   `root@debian-amd64:.*# `,
		Snapshot: "root",
		Memory:   128,
		URL:      "https://panda-re.mit.edu/qcows/linux/debian/7.3/x86_64/debian_7.3_x86_64.qcow",
	},
	"arm_wheezy": {
		Name:      "arm_wheezy",
		Arch:      sys.ARM,
		OS:        "linux-32-debian:3.2.0-4-versatile-arm",
		Prompt:    `root@debian-armel:.*# `,
		Snapshot:  "root",
		Memory:    128,
		URL:       "https://panda-re.mit.edu/qcows/linux/debian/7.3/arm/debian_7.3_arm.qcow",
		KernelURL: "https://panda-re.mit.edu/qcows/linux/debian/7.3/arm/vmlinuz-3.2.0-4-versatile",
		InitrdURL: "https://panda-re.mit.edu/qcows/linux/debian/7.3/arm/initrd.img-3.2.0-4-versatile",
		ExtraArgs: []string{
			"-M", "versatilepb",
			"-append", "root=/dev/sda1",
		},
	},
	"mips_wheezy": {
		Name:      "mips_wheezy",
		Arch:      sys.MIPS,
		OS:        "linux-64-debian:3.2.0-4-4kc-malta",
		Prompt:    `root@debian-mips:.*# `,
		Snapshot:  "root",
		Memory:    1024,
		URL:       "https://panda-re.mit.edu/qcows/linux/debian/7.3/mips/debian_7.3_mips.qcow",
		KernelURL: "https://panda-re.mit.edu/qcows/linux/debian/7.3/mips/vmlinux-3.2.0-4-4kc-malta",
		ExtraArgs: []string{
			"-M", "malta",
			"-append", "root=/dev/sda1",
		},
	},
	"x86_64_ubuntu_1804": {
		Name:     "x86_64_ubuntu_1804",
		Arch:     sys.X86_64,
		OS:       "linux-64-ubuntu:4.15.0-72-generic-noaslr-nokaslr",
		Prompt:   `root@ubuntu:.*#`,
		Snapshot: "root",
		Memory:   1024,
		URL:      "https://panda-re.mit.edu/qcows/linux/ubuntu/1804/x86_64/bionic-server-cloudimg-amd64-noaslr-nokaslr.qcow2",
	},
}

// aliases map plain architecture names to the default image for that
// architecture.
var aliases = map[string]string{
	"x86_64": "x86_64_ubuntu_1804",
	"i386":   "i386_wheezy",
	"arm":    "arm_wheezy",
	"mips":   "mips_wheezy",
}

// Find returns the [Image] for the given name.
//
// The name may be an image name or a plain architecture name, which selects
// the default image for that architecture. An unknown name returns
// [ErrImageNotSupported].
func Find(name string) (Image, error) {
	if alias, exists := aliases[name]; exists {
		name = alias
	}

	img, exists := catalog[name]
	if !exists {
		return Image{}, &NotSupportedError{Name: name}
	}

	return img, nil
}

// Names returns all image names of the catalog, including aliases.
func Names() []string {
	names := make([]string, 0, len(catalog)+len(aliases))
	for name := range catalog {
		names = append(names, name)
	}

	for name := range aliases {
		names = append(names, name)
	}

	return names
}
