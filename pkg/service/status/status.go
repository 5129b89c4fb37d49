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

// Package status decides when the station's connectivity status is worth
// publishing and publishes it.
package status

import (
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/api/notifications"
	"github.com/scalestation/scalestation-core/pkg/helpers/syncutil"
	"github.com/scalestation/scalestation-core/pkg/service/state"
)

// Evaluate reports whether current should be published given the last
// published status. A nil previous always publishes.
func Evaluate(current state.Status, previous *state.Status) (state.Status, bool) {
	if previous != nil && *previous == current {
		return current, false
	}
	return current, true
}

// Payload converts a status to its wire form.
func Payload(s state.Status) models.ComponentStatusResponse {
	return models.ComponentStatusResponse{
		ScaleConnected: s.ScaleConnected,
		AuxConnected:   s.AuxConnected,
	}
}

// Notifier publishes components.status whenever the device state's
// connectivity differs from what was last published.
type Notifier struct {
	st   *state.State
	last *state.Status
	mu   syncutil.Mutex
}

func NewNotifier(st *state.State) *Notifier {
	return &Notifier{st: st}
}

// Refresh publishes the current status if it changed and reports whether a
// notification was queued. The remembered status only advances when the
// queue accepted the notification, so a dropped status is retried on the
// next call.
func (n *Notifier) Refresh() bool {
	// held across the send to keep status notifications in order; the send
	// never blocks
	n.mu.Lock()
	defer n.mu.Unlock()

	current, publish := Evaluate(n.st.Status(), n.last)
	if !publish {
		return false
	}

	if !notifications.ComponentStatus(n.st.Notifications, Payload(current)) {
		return false
	}

	log.Info().
		Bool("scale_connected", current.ScaleConnected).
		Bool("aux_connected", current.AuxConnected).
		Msg("component status changed")
	n.last = &current
	return true
}

// Resync builds the status notification for a newly joined observer. It is
// not queued and does not affect what Refresh considers published.
func (n *Notifier) Resync() (models.Notification, error) {
	current, _ := Evaluate(n.st.Status(), nil)
	return notifications.New(models.NotificationComponentStatus, Payload(current))
}

// Last returns the last published status, or nil if nothing was published.
func (n *Notifier) Last() *state.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return nil
	}
	last := *n.last
	return &last
}
