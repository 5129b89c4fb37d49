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
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

// SerialPortInfo describes one serial port found on the system.
type SerialPortInfo struct {
	Name    string `json:"name"`
	VID     string `json:"vid,omitempty"`
	PID     string `json:"pid,omitempty"`
	Serial  string `json:"serial,omitempty"`
	Product string `json:"product,omitempty"`
	IsUSB   bool   `json:"is_usb"`
}

type serialDevice struct {
	Vid string
	Pid string
}

// ignoreDevices are USB serial devices that are never scales.
var ignoreDevices = []serialDevice{
	// Sinden Lightgun
	{Vid: "16c0", Pid: "0f38"},
	{Vid: "16c0", Pid: "0f39"},
	{Vid: "16d0", Pid: "0f38"},
	{Vid: "16d0", Pid: "0f39"},
}

func ignoreSerialDevice(p SerialPortInfo) bool {
	if !p.IsUSB || p.VID == "" || p.PID == "" {
		return false
	}
	vid := strings.ToLower(p.VID)
	pid := strings.ToLower(p.PID)
	return slices.Contains(ignoreDevices, serialDevice{Vid: vid, Pid: pid})
}

// PortLister enumerates serial ports.
type PortLister func() ([]SerialPortInfo, error)

// ListSerialPorts returns every serial port the OS reports, sorted by name.
func ListSerialPorts() ([]SerialPortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list: %w", err)
	}

	ports := make([]SerialPortInfo, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		ports = append(ports, SerialPortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}

	slices.SortFunc(ports, func(a, b SerialPortInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return ports, nil
}

// SelectScalePort picks the first USB port that is not excluded or on the
// ignore list. Excluded paths are typically other configured devices.
func SelectScalePort(ports []SerialPortInfo, exclude ...string) (string, bool) {
	for _, p := range ports {
		if !p.IsUSB {
			continue
		}
		if slices.Contains(exclude, p.Name) {
			continue
		}
		if ignoreSerialDevice(p) {
			log.Debug().Str("port", p.Name).Msg("skipping ignored serial device")
			continue
		}
		return p.Name, true
	}
	return "", false
}
