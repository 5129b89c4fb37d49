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

package config

import (
	"strings"
	"time"
)

const (
	DefaultScaleBaudRate       = 9600
	DefaultScaleReadTimeout    = time.Second
	DefaultScaleReconnectDelay = 5 * time.Second
	DefaultScaleEncoding       = "utf-8"

	// ScalePathAuto selects the first USB serial port found on the system.
	ScalePathAuto = "auto"
)

type Scale struct {
	Path           string `toml:"path"`
	ReadTimeout    string `toml:"read_timeout,omitempty" validate:"omitempty,duration"`
	ReconnectDelay string `toml:"reconnect_delay,omitempty" validate:"omitempty,duration"`
	Encoding       string `toml:"encoding,omitempty" validate:"omitempty,encoding"`
	BaudRate       int    `toml:"baud_rate" validate:"gt=0"`
}

// ScalePath returns the configured serial device path. An empty path or
// "auto" means the port should be detected.
func (c *Instance) ScalePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strings.TrimSpace(c.vals.Scale.Path)
}

// ScaleAutoDetect is true when no fixed device path is configured.
func (c *Instance) ScaleAutoDetect() bool {
	p := c.ScalePath()
	return p == "" || strings.EqualFold(p, ScalePathAuto)
}

func (c *Instance) SetScalePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Scale.Path = path
}

func (c *Instance) ScaleBaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Scale.BaudRate <= 0 {
		return DefaultScaleBaudRate
	}
	return c.vals.Scale.BaudRate
}

func (c *Instance) ScaleReadTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Scale.ReadTimeout, DefaultScaleReadTimeout)
}

func (c *Instance) ScaleReconnectDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDurationOr(c.vals.Scale.ReconnectDelay, DefaultScaleReconnectDelay)
}

func (c *Instance) SetScaleReconnectDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Scale.ReconnectDelay = d.String()
}

func (c *Instance) ScaleEncoding() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Scale.Encoding == "" {
		return DefaultScaleEncoding
	}
	return c.vals.Scale.Encoding
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
