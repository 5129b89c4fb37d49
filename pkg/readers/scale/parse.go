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

package scale

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	ErrEmptyLine  = errors.New("empty line")
	ErrNotNumeric = errors.New("reading is not an integer")
	ErrOutOfRange = errors.New("reading out of range")
)

var readingPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)

// Reading is one weight measurement reported by the scale.
type Reading struct {
	Grams int64
}

// ParseReading converts a trimmed line into a reading. Only an optionally
// signed run of ASCII digits is accepted; anything else the device emits
// (status words, sync markers) is rejected with ErrNotNumeric.
func ParseReading(line string) (Reading, error) {
	if line == "" {
		return Reading{}, ErrEmptyLine
	}
	if !readingPattern.MatchString(line) {
		return Reading{}, fmt.Errorf("%w: %q", ErrNotNumeric, line)
	}

	grams, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %q", ErrOutOfRange, line)
	}
	return Reading{Grams: grams}, nil
}
