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

package notifications

import (
	"encoding/json"
	"testing"

	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightReading(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ok := WeightReading(ns, models.WeightReadingResponse{Grams: 123})
	require.True(t, ok)

	notif := <-ns
	assert.Equal(t, models.NotificationWeightReading, notif.Method)
	assert.JSONEq(t, `{"grams":123}`, string(notif.Params))
}

func TestComponentStatus(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ok := ComponentStatus(ns, models.ComponentStatusResponse{ScaleConnected: true})
	require.True(t, ok)

	notif := <-ns
	assert.Equal(t, models.NotificationComponentStatus, notif.Method)

	var payload models.ComponentStatusResponse
	require.NoError(t, json.Unmarshal(notif.Params, &payload))
	assert.True(t, payload.ScaleConnected)
	assert.False(t, payload.AuxConnected)
}

func TestSend_FullQueueDoesNotBlock(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	require.True(t, WeightReading(ns, models.WeightReadingResponse{Grams: 1}))

	// queue is full, second send must return immediately
	assert.False(t, WeightReading(ns, models.WeightReadingResponse{Grams: 2}))

	notif := <-ns
	assert.JSONEq(t, `{"grams":1}`, string(notif.Params))
}

func TestSend_UnbufferedWithoutReaderDoesNotBlock(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)
	assert.False(t, ComponentStatus(ns, models.ComponentStatusResponse{}))
}
