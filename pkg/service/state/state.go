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

package state

import (
	"context"

	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/helpers/syncutil"
)

// NotificationBufferSize is the capacity of the outbound notification queue.
const NotificationBufferSize = 500

// DeviceState is the latest known state of the station's devices.
// ScaleConnected false always implies WeightGrams 0.
type DeviceState struct {
	// WeightGrams is signed: a reading taken below the tare point is negative.
	WeightGrams    int64 `json:"weight_grams"`
	ScaleConnected bool  `json:"scale_connected"`
	AuxConnected   bool  `json:"aux_connected"`
}

// Status is the connectivity part of DeviceState. Values are compared with ==.
type Status struct {
	ScaleConnected bool
	AuxConnected   bool
}

func (d DeviceState) Status() Status {
	return Status{
		ScaleConnected: d.ScaleConnected,
		AuxConnected:   d.AuxConnected,
	}
}

// State holds the runtime state of the station service.
//
// LOCKING RULES: mu protects device and stopped. Critical sections only copy
// or assign fields. Never send to channels or do I/O while holding the lock.
type State struct {
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	Notifications chan<- models.Notification
	device        DeviceState
	mu            syncutil.RWMutex
	stopped       bool
}

func NewState() (state *State, notificationCh <-chan models.Notification) {
	ns := make(chan models.Notification, NotificationBufferSize)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
	}, ns
}

// Context is cancelled when the service is stopped.
func (s *State) Context() context.Context {
	return s.ctx
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopped
}

// Snapshot returns a consistent copy of the device state.
func (s *State) Snapshot() DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.device.Status()
}

// SetWeight records the latest reading. Readings that arrive while the scale
// is marked disconnected are ignored.
func (s *State) SetWeight(grams int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.device.ScaleConnected {
		return false
	}
	s.device.WeightGrams = grams
	return true
}

// SetScaleConnected updates scale connectivity. Disconnecting also resets the
// weight to zero in the same critical section.
func (s *State) SetScaleConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device.ScaleConnected = connected
	if !connected {
		s.device.WeightGrams = 0
	}
}

func (s *State) SetAuxConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device.AuxConnected = connected
}
