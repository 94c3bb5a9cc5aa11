// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package network

import (
	"fmt"
	"strings"

	"github.com/vishvananda/netlink"
)

// maxDeviceNameLen is the kernel's IFNAMSIZ limit minus the trailing NUL.
const maxDeviceNameLen = 15

// TapDevice is a host tap device the emulator attaches the guest's network
// interface to.
//
// Creating and removing tap devices requires the CAP_NET_ADMIN capability.
type TapDevice struct {
	name string
}

// ValidateDeviceName checks that the given name is usable as network device
// name.
func ValidateDeviceName(name string) error {
	switch {
	case name == "":
		return &DeviceNameError{name, "must not be empty"}
	case len(name) > maxDeviceNameLen:
		return &DeviceNameError{name, "too long"}
	case strings.ContainsAny(name, "/ "):
		return &DeviceNameError{name, "contains invalid characters"}
	}

	return nil
}

// CreateTap creates a new tap device with the given name and brings it up.
func CreateTap(name string) (*TapDevice, error) {
	err := ValidateDeviceName(name)
	if err != nil {
		return nil, err
	}

	linkAttrs := netlink.NewLinkAttrs()
	linkAttrs.Name = name

	tap := &netlink.Tuntap{
		LinkAttrs: linkAttrs,
		Mode:      netlink.TUNTAP_MODE_TAP,
	}

	err = netlink.LinkAdd(tap)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	err = netlink.LinkSetUp(tap)
	if err != nil {
		_ = netlink.LinkDel(tap)
		return nil, fmt.Errorf("set %s up: %w", name, err)
	}

	return &TapDevice{name: name}, nil
}

// Name returns the device name.
func (t *TapDevice) Name() string {
	return t.name
}

// Remove deletes the tap device.
func (t *TapDevice) Remove() error {
	link, err := netlink.LinkByName(t.name)
	if err != nil {
		return fmt.Errorf("find %s: %w", t.name, err)
	}

	err = netlink.LinkDel(link)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}

	return nil
}
