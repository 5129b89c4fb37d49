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

import "strings"

// Printer describes the label printer attached next to the scale. Only its
// presence is tracked; an empty path disables tracking.
type Printer struct {
	Path string `toml:"path,omitempty"`
}

func (c *Instance) PrinterPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return strings.TrimSpace(c.vals.Printer.Path)
}

func (c *Instance) SetPrinterPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Printer.Path = path
}
