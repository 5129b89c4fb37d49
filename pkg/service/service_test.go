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

package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/readers/scale"
	"github.com/scalestation/scalestation-core/pkg/readers/testutils"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfigWithFs(afero.NewMemMapFs(), "/config", config.BaseDefaults)
	require.NoError(t, err)
	cfg.SetScalePath("/dev/ttyUSB0")
	return cfg
}

func fetchStatus(t *testing.T, addr net.Addr) models.StatusResponse {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr.String()+"/api/status", http.NoBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out models.StatusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestStart_ServesReadings(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	port := testutils.NewMockSerialPort(testutils.Chunk("250\n"))
	factory := testutils.NewMockPortFactory(testutils.OpenResult{Port: port})

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc, err := Start(cfg,
		WithListener(ln),
		WithoutConfigWatch(),
		WithScaleOptions(
			scale.WithPortFactory(factory.Open),
			scale.WithClock(clockwork.NewFakeClock()),
		),
	)
	require.NoError(t, err)
	assert.Equal(t, ln.Addr(), svc.Addr())

	require.Eventually(t, func() bool {
		return svc.State().Snapshot().WeightGrams == 250
	}, 2*time.Second, 10*time.Millisecond)

	got := fetchStatus(t, svc.Addr())
	assert.True(t, got.ScaleConnected)
	assert.Equal(t, int64(250), got.WeightGrams)
	assert.Equal(t, scale.PhaseConnected.String(), got.Phase)

	require.NoError(t, svc.Stop())
	assert.True(t, port.IsClosed())
	assert.False(t, svc.State().Snapshot().ScaleConnected)

	select {
	case <-svc.Done():
	default:
		t.Fatal("done not closed after stop")
	}
}

func TestStart_ListenFailure(t *testing.T) {
	t.Parallel()

	var lc net.ListenConfig
	busy, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = busy.Close() }()

	cfg := newTestConfig(t)
	cfg.SetAPIHost("127.0.0.1")
	cfg.SetAPIPort(busy.Addr().(*net.TCPAddr).Port)

	svc, err := Start(cfg, WithoutConfigWatch())
	require.Error(t, err)
	assert.Nil(t, svc)
}

func TestStart_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	factory := testutils.NewMockPortFactory()

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)

	svc, err := Start(cfg,
		WithListener(ln),
		WithoutConfigWatch(),
		WithScaleOptions(
			scale.WithPortFactory(factory.Open),
			scale.WithClock(clockwork.NewFakeClock()),
		),
	)
	require.NoError(t, err)

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Err())
}
