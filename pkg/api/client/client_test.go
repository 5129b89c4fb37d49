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

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStation greets every client with a status notification and answers
// requests through respond. A nil result from respond sends nothing.
func fakeStation(t *testing.T, respond func(req models.RequestObject) any) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		_ = conn.WriteJSON(models.RequestObject{
			JSONRPC: "2.0",
			Method:  models.NotificationComponentStatus,
			Params:  json.RawMessage(`{"scale_connected":true,"aux_connected":false}`),
		})

		for {
			var req models.RequestObject
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if out := respond(req); out != nil {
				_ = conn.WriteJSON(out)
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + APIPath
}

func TestCall_ReturnsResult(t *testing.T) {
	t.Parallel()

	url := fakeStation(t, func(req models.RequestObject) any {
		return models.ResponseObject{
			JSONRPC: "2.0",
			ID:      *req.ID,
			Result:  map[string]any{"weight_grams": 250},
		}
	})

	got, err := Call(context.Background(), url, models.MethodStatus, "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"weight_grams":250}`, got)
}

func TestCall_APIError(t *testing.T) {
	t.Parallel()

	url := fakeStation(t, func(req models.RequestObject) any {
		return models.ResponseErrorObject{
			JSONRPC: "2.0",
			ID:      *req.ID,
			Error:   &models.ErrorObject{Code: -32601, Message: "Method not found"},
		}
	})

	_, err := Call(context.Background(), url, "tare", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Method not found")
}

func TestCall_InvalidParams(t *testing.T) {
	t.Parallel()

	_, err := Call(context.Background(), "ws://127.0.0.1:1/api", models.MethodStatus, "{bad")
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestCall_Cancelled(t *testing.T) {
	t.Parallel()

	url := fakeStation(t, func(models.RequestObject) any { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := Call(ctx, url, models.MethodStatus, "")
	require.ErrorIs(t, err, ErrRequestCancelled)
}

func TestWaitNotification(t *testing.T) {
	t.Parallel()

	url := fakeStation(t, func(models.RequestObject) any { return nil })

	got, err := WaitNotification(context.Background(), time.Second, url, models.NotificationComponentStatus)
	require.NoError(t, err)
	assert.JSONEq(t, `{"scale_connected":true,"aux_connected":false}`, got)
}

func TestWaitNotification_Timeout(t *testing.T) {
	t.Parallel()

	url := fakeStation(t, func(models.RequestObject) any { return nil })

	_, err := WaitNotification(context.Background(), 50*time.Millisecond, url, models.NotificationWeightReading)
	require.ErrorIs(t, err, ErrRequestTimeout)
}

func TestLocalURL(t *testing.T) {
	t.Parallel()

	cfg, err := config.NewConfigWithFs(afero.NewMemMapFs(), "/config", config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetAPIPort(7000)

	assert.Equal(t, "ws://localhost:7000/api", LocalURL(cfg))
}
