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

package testutils

import (
	"errors"
	"time"

	"github.com/scalestation/scalestation-core/pkg/helpers/syncutil"
	"go.bug.st/serial"
)

var (
	ErrPortClosed  = errors.New("port closed")
	ErrNoMorePorts = errors.New("no scripted port left")
)

// ReadStep is the result of one Read call on a MockSerialPort. Data longer
// than the caller's buffer is returned over several reads, with Err only
// reported on the last of them.
type ReadStep struct {
	Err  error
	Data []byte
}

// Chunk is a ReadStep returning s.
func Chunk(s string) ReadStep {
	return ReadStep{Data: []byte(s)}
}

// Fail is a ReadStep returning err with no data.
func Fail(err error) ReadStep {
	return ReadStep{Err: err}
}

// MockSerialPort replays scripted reads. Once the script is used up every
// Read reports no data after a short idle delay, like a port with a read
// timeout and a silent device.
type MockSerialPort struct {
	CloseError  error
	TimeoutErr  error
	steps       []ReadStep
	readTimeout time.Duration
	idle        time.Duration
	idx         int
	reads       int
	mu          syncutil.RWMutex
	closed      bool
}

func NewMockSerialPort(steps ...ReadStep) *MockSerialPort {
	return &MockSerialPort{
		steps: steps,
		idle:  2 * time.Millisecond,
	}
}

func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrPortClosed
	}
	m.reads++

	if m.idx < len(m.steps) {
		step := &m.steps[m.idx]
		n = copy(p, step.Data)
		step.Data = step.Data[n:]
		if len(step.Data) == 0 {
			err = step.Err
			m.idx++
		}
		m.mu.Unlock()
		return n, err
	}
	idle := m.idle
	m.mu.Unlock()

	time.Sleep(idle)
	return 0, nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(t time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = t
	return m.TimeoutErr
}

func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *MockSerialPort) ReadTimeout() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readTimeout
}

// Exhausted is true once every scripted step has been read.
func (m *MockSerialPort) Exhausted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx >= len(m.steps)
}

// OpenResult is what one call to a MockPortFactory returns.
type OpenResult struct {
	Port *MockSerialPort
	Err  error
}

// OpenCall records the arguments of one open.
type OpenCall struct {
	Path string
	Mode serial.Mode
}

// MockPortFactory hands out scripted open results in order. Opens past the
// end of the script fail with ErrNoMorePorts.
type MockPortFactory struct {
	results []OpenResult
	calls   []OpenCall
	opened  chan struct{}
	mu      syncutil.Mutex
}

func NewMockPortFactory(results ...OpenResult) *MockPortFactory {
	return &MockPortFactory{
		results: results,
		opened:  make(chan struct{}, 64),
	}
}

func (f *MockPortFactory) Open(path string, mode *serial.Mode) (SerialPort, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, OpenCall{Path: path, Mode: *mode})
	f.mu.Unlock()

	select {
	case f.opened <- struct{}{}:
	default:
	}

	if idx >= len(f.results) {
		return nil, ErrNoMorePorts
	}
	r := f.results[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Port, nil
}

// Calls returns a copy of every open so far.
func (f *MockPortFactory) Calls() []OpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]OpenCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Opened receives a value for every open attempt.
func (f *MockPortFactory) Opened() <-chan struct{} {
	return f.opened
}
