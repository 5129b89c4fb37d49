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

package lines

import (
	"errors"
	"strings"
	"testing"
)

// FuzzDecode checks that arbitrary input never panics and that a rejected
// chunk leaves the buffer untouched.
func FuzzDecode(f *testing.F) {
	f.Add("", []byte("123\n"))
	f.Add("45", []byte("6\n"))
	f.Add("", []byte("ERR\r\n"))
	f.Add("1", []byte{0xff, '\n'})
	f.Add("", []byte("\n\n\n"))
	f.Add("", []byte(strings.Repeat("0", MaxLineSize+2)))
	f.Add("", []byte("peso-日本\n")) //nolint:gosmopolitan // testing Unicode

	d, err := NewDecoder("utf-8")
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, buffer string, chunk []byte) {
		lines, rest, err := d.Decode(buffer, chunk)
		if errors.Is(err, ErrUndecodable) && (rest != buffer || lines != nil) {
			t.Fatalf("rejected chunk changed state: rest %q, lines %q", rest, lines)
		}
		if err == nil && len(chunk) > 0 && len(rest) > MaxLineSize {
			t.Fatalf("rest exceeds max size: %d", len(rest))
		}
		for _, l := range lines {
			if strings.Contains(l, Delimiter) {
				t.Fatalf("line contains delimiter: %q", l)
			}
		}
	})
}
