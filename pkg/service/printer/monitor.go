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

// Package printer tracks whether the label printer next to the scale is
// plugged in by watching its device node.
package printer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/service/state"
	"github.com/scalestation/scalestation-core/pkg/service/status"
)

// Monitor drives the aux_connected flag from the presence of the printer
// device path.
type Monitor struct {
	st       *state.State
	notifier *status.Notifier
	watching chan struct{}
	path     string
}

// NewMonitor watches path. An empty path leaves the aux flag untouched.
func NewMonitor(path string, st *state.State, notifier *status.Notifier) *Monitor {
	return &Monitor{
		st:       st,
		notifier: notifier,
		path:     filepath.Clean(path),
		watching: make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled. The printer is reported disconnected
// when Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	if m.path == "." {
		log.Debug().Msg("no printer path configured, aux presence not tracked")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create printer watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("failed to watch printer directory: %w", err)
	}
	close(m.watching)

	defer m.set(false)

	// checked after the watch is in place so a plug-in between the two
	// cannot be missed
	m.set(m.present())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != m.path {
				continue
			}
			switch {
			case event.Has(fsnotify.Create):
				m.set(m.present())
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				m.set(false)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("printer watcher error")
		}
	}
}

func (m *Monitor) present() bool {
	_, err := os.Stat(m.path)
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Debug().Err(err).Str("path", m.path).Msg("failed to stat printer")
	}
	return false
}

func (m *Monitor) set(connected bool) {
	if m.st.Status().AuxConnected != connected {
		log.Info().Str("path", m.path).Bool("connected", connected).Msg("printer presence changed")
	}
	m.st.SetAuxConnected(connected)
	m.notifier.Refresh()
}
