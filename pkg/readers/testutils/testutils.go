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

// Package testutils provides serial port doubles and notification helpers
// for reader tests.
package testutils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/stretchr/testify/require"
)

// ReceiveNotification waits for the next notification on ch. Fails the test
// if none arrives within timeout.
func ReceiveNotification(t *testing.T, ch <-chan models.Notification, timeout time.Duration) models.Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(timeout):
		require.Fail(t, "expected notification within timeout", "timeout: %v", timeout)
		return models.Notification{}
	}
}

// AssertNoNotification fails the test if a notification arrives within timeout.
func AssertNoNotification(t *testing.T, ch <-chan models.Notification, timeout time.Duration) {
	t.Helper()
	select {
	case n := <-ch:
		require.Fail(t, "unexpected notification received",
			"method=%s params=%s", n.Method, string(n.Params))
	case <-time.After(timeout):
	}
}

// DecodeWeight returns the grams of a scale.weight notification.
func DecodeWeight(t *testing.T, n models.Notification) int64 {
	t.Helper()
	require.Equal(t, models.NotificationWeightReading, n.Method)
	var payload models.WeightReadingResponse
	require.NoError(t, json.Unmarshal(n.Params, &payload))
	return payload.Grams
}

// DecodeStatus returns the payload of a components.status notification.
func DecodeStatus(t *testing.T, n models.Notification) models.ComponentStatusResponse {
	t.Helper()
	require.Equal(t, models.NotificationComponentStatus, n.Method)
	var payload models.ComponentStatusResponse
	require.NoError(t, json.Unmarshal(n.Params, &payload))
	return payload
}
