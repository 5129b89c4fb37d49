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

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/scalestation/scalestation-core/pkg/helpers"
)

// PrintPorts writes a table of serial ports, marking the one auto-detect
// would pick.
func PrintPorts(out io.Writer, lister helpers.PortLister) error {
	ports, err := lister()
	if err != nil {
		return fmt.Errorf("error listing serial ports: %w", err)
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(out, "No serial ports found")
		return nil
	}

	selected, _ := helpers.SelectScalePort(ports)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PORT\tVID:PID\tSERIAL\tPRODUCT\t")
	for _, p := range ports {
		ids := "-"
		if p.IsUSB {
			ids = p.VID + ":" + p.PID
		}
		mark := ""
		if p.Name == selected {
			mark = "(auto)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, ids, orDash(p.Serial), orDash(p.Product), mark)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("error writing port list: %w", err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
