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

// Package lines splits a serial byte stream into newline terminated text
// lines. A Decoder is stateless: callers own the pending buffer and pass it
// back in with every chunk.
package lines

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// MaxLineSize bounds the unterminated remainder carried between chunks.
	MaxLineSize = 8192
	Delimiter   = "\n"
)

var (
	ErrUndecodable     = errors.New("chunk is not valid text")
	ErrLineTooLong     = errors.New("pending line exceeds maximum size")
	ErrUnknownEncoding = errors.New("unknown text encoding")
)

type Decoder struct {
	transformer transform.Transformer
	name        string
	maxLine     int
}

// LookupEncoding resolves an IANA encoding name. An empty name is UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// NewDecoder returns a decoder for the named text encoding. UTF-8 input is
// validated strictly; a chunk with invalid sequences is rejected instead of
// having replacement characters substituted.
func NewDecoder(name string) (*Decoder, error) {
	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}

	var t transform.Transformer
	if enc == unicode.UTF8 {
		t = encoding.UTF8Validator
		name = "utf-8"
	} else {
		t = enc.NewDecoder()
	}

	return &Decoder{
		transformer: t,
		name:        name,
		maxLine:     MaxLineSize,
	}, nil
}

func (d *Decoder) Encoding() string {
	return d.name
}

// Decode appends chunk to buffer and returns every complete line along with
// the new buffer. Lines are trimmed of surrounding whitespace (including the
// carriage return of CRLF devices) and blank lines are dropped.
//
// If chunk cannot be decoded it is discarded whole: no lines are returned,
// rest is the unchanged buffer and err wraps ErrUndecodable. If the remainder
// after the last delimiter grows past MaxLineSize it is dropped, rest is empty
// and err wraps ErrLineTooLong; lines completed by the same chunk are still
// returned. The overflow check only sees the unterminated remainder, so a
// line longer than MaxLineSize is kept when its delimiter arrives in the same
// chunk and dropped when it does not. Chunking a stream differently yields
// the same lines only while every unterminated line fits in MaxLineSize.
func (d *Decoder) Decode(buffer string, chunk []byte) (lines []string, rest string, err error) {
	if len(chunk) == 0 {
		return nil, buffer, nil
	}

	text, _, err := transform.String(d.transformer, string(chunk))
	if err != nil {
		return nil, buffer, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	parts := strings.Split(buffer+text, Delimiter)
	rest = parts[len(parts)-1]

	for _, p := range parts[:len(parts)-1] {
		line := strings.TrimSpace(p)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(rest) > d.maxLine {
		return lines, "", fmt.Errorf("%w: %d bytes", ErrLineTooLong, len(rest))
	}

	return lines, rest, nil
}
