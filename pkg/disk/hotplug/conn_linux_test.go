// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package hotplug

import (
	"testing"

	"github.com/pilebones/go-udev/netlink"
	"github.com/stratastor/blockwatch/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsystemMatcher(t *testing.T) {
	matcher, err := newSubsystemMatcher("block")
	require.NoError(t, err)

	tests := []struct {
		name string
		env  map[string]string
		want bool
	}{
		{"block", map[string]string{"SUBSYSTEM": "block", "DEVNAME": "sdb1"}, true},
		{"block prefix", map[string]string{"SUBSYSTEM": "block2"}, false},
		{"block suffix", map[string]string{"SUBSYSTEM": "xblock"}, false},
		{"usb", map[string]string{"SUBSYSTEM": "usb", "DEVTYPE": "usb_device"}, false},
		{"missing subsystem", map[string]string{"DEVNAME": "sdb1"}, false},
		{"empty env", map[string]string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := netlink.UEvent{Action: netlink.ADD, KObj: "/devices/virtual/block/x", Env: tt.env}
			assert.Equal(t, tt.want, matcher.Evaluate(ev))
		})
	}
}

func TestSubsystemMatcher_QuotesPattern(t *testing.T) {
	matcher, err := newSubsystemMatcher("scsi.host")
	require.NoError(t, err)

	assert.True(t, matcher.Evaluate(netlink.UEvent{Env: map[string]string{"SUBSYSTEM": "scsi.host"}}))
	assert.False(t, matcher.Evaluate(netlink.UEvent{Env: map[string]string{"SUBSYSTEM": "scsiXhost"}}))
}

func TestSubsystemMatcher_Empty(t *testing.T) {
	for _, subsystem := range []string{"", "   "} {
		_, err := newSubsystemMatcher(subsystem)
		assert.True(t, errors.HasCode(err, errors.DiskHotplugMonitorUnavailable), "subsystem %q", subsystem)
	}
}

func TestFromUEvent(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		devPath string
		devName string
	}{
		{
			name:    "relative devname",
			env:     map[string]string{"DEVNAME": "sdb1", "DEVTYPE": "partition", "SUBSYSTEM": "block", "SEQNUM": "4711"},
			devPath: "/dev/sdb1",
			devName: "sdb1",
		},
		{
			name:    "absolute devname",
			env:     map[string]string{"DEVNAME": "/dev/mapper/x", "DEVTYPE": "disk", "SUBSYSTEM": "block", "SEQNUM": "12"},
			devPath: "/dev/mapper/x",
			devName: "x",
		},
		{
			name:    "missing devname",
			env:     map[string]string{"DEVTYPE": "disk", "SUBSYSTEM": "block", "SEQNUM": "13"},
			devPath: "",
			devName: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ue := &netlink.UEvent{
				Action: netlink.ADD,
				KObj:   "/devices/pci0000:00/block/sdb/sdb1",
				Env:    tt.env,
			}

			ev := fromUEvent(ue)
			assert.Equal(t, UdevActionAdd, ev.Action)
			assert.Equal(t, ue.KObj, ev.SysPath)
			assert.Equal(t, tt.devPath, ev.DevPath)
			assert.Equal(t, tt.devName, ev.DevName)
			assert.Equal(t, tt.env["DEVTYPE"], ev.DevType)
			assert.Equal(t, tt.env["SUBSYSTEM"], ev.Subsystem)
			assert.Equal(t, tt.env["SEQNUM"], ev.SeqNum)
			assert.Equal(t, tt.env, ev.Properties)
			assert.False(t, ev.Timestamp.IsZero())
		})
	}
}

func TestFromUEvent_Classifies(t *testing.T) {
	ue := &netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"DEVNAME": "sdc1", "SUBSYSTEM": "block"},
	}
	ev, ok := Classify(fromUEvent(ue))
	require.True(t, ok)
	assert.Equal(t, Event{Kind: KindRemoved, DevicePath: "/dev/sdc1"}, ev)

	ue = &netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"DEVNAME": "sdc", "SUBSYSTEM": "block"}}
	ev, ok = Classify(fromUEvent(ue))
	assert.False(t, ok)
	assert.Equal(t, Event{Kind: KindUnknown, DevicePath: "/dev/sdc"}, ev)
}
