// Scale Station Core
// Copyright (c) 2026 The Scale Station Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Scale Station Core.
//
// Scale Station Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Scale Station Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Scale Station Core.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIgnoreSerialDevice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		port     SerialPortInfo
		expected bool
	}{
		{
			name:     "non usb port",
			port:     SerialPortInfo{Name: "/dev/ttyS0", VID: "16c0", PID: "0f38"},
			expected: false,
		},
		{
			name:     "usb port without ids",
			port:     SerialPortInfo{Name: "/dev/ttyUSB0", IsUSB: true},
			expected: false,
		},
		{
			name:     "ignored device",
			port:     SerialPortInfo{Name: "/dev/ttyACM0", IsUSB: true, VID: "16C0", PID: "0F38"},
			expected: true,
		},
		{
			name:     "ftdi adapter",
			port:     SerialPortInfo{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ignoreSerialDevice(tt.port))
		})
	}
}

func TestSelectScalePort(t *testing.T) {
	t.Parallel()

	ports := []SerialPortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "16d0", PID: "0f39"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1a86", PID: "7523"},
	}

	tests := []struct {
		name    string
		want    string
		exclude []string
		ports   []SerialPortInfo
		found   bool
	}{
		{name: "first usb non ignored", ports: ports, want: "/dev/ttyUSB0", found: true},
		{
			name:    "excluded printer port",
			ports:   ports,
			exclude: []string{"/dev/ttyUSB0"},
			want:    "/dev/ttyUSB1",
			found:   true,
		},
		{name: "only builtin ports", ports: ports[:1], found: false},
		{name: "no ports", ports: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SelectScalePort(tt.ports, tt.exclude...)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
