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

// Package notifications builds JSON-RPC notifications and queues them for
// broadcast. Queueing never blocks: the acquisition loop must keep running
// when nobody is draining the queue.
package notifications

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
)

// New marshals payload into a notification for method.
func New(method string, payload any) (models.Notification, error) {
	params, err := json.Marshal(payload)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to marshal %s params: %w", method, err)
	}
	return models.Notification{
		Method: method,
		Params: params,
	}, nil
}

func WeightReading(ns chan<- models.Notification, payload models.WeightReadingResponse) bool {
	return send(ns, models.NotificationWeightReading, payload)
}

func ComponentStatus(ns chan<- models.Notification, payload models.ComponentStatusResponse) bool {
	return send(ns, models.NotificationComponentStatus, payload)
}

// send reports whether the notification was queued. A full queue drops the
// notification with a warning.
func send(ns chan<- models.Notification, method string, payload any) bool {
	notif, err := New(method, payload)
	if err != nil {
		log.Error().Err(err).Msg("building notification")
		return false
	}

	select {
	case ns <- notif:
		return true
	default:
		log.Warn().Str("method", method).Msg("notification queue full, dropping notification")
		return false
	}
}
