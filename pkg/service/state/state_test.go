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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewState_Defaults(t *testing.T) {
	t.Parallel()

	st, ns := NewState()
	require.NotNil(t, ns)
	assert.Equal(t, DeviceState{}, st.Snapshot())
	assert.Equal(t, Status{}, st.Status())
	assert.Equal(t, NotificationBufferSize, cap(ns))
}

func TestStopService_CancelsContext(t *testing.T) {
	t.Parallel()

	st, _ := NewState()
	assert.False(t, st.ShouldStopService())
	require.NoError(t, st.Context().Err())

	st.StopService()

	assert.True(t, st.ShouldStopService())
	select {
	case <-st.Context().Done():
	default:
		t.Fatal("context not cancelled after StopService")
	}
}

func TestSetWeight(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		connected bool
		weight    int64
		want      DeviceState
		applied   bool
	}{
		{
			name:      "connected stores weight",
			connected: true,
			weight:    123,
			want:      DeviceState{WeightGrams: 123, ScaleConnected: true},
			applied:   true,
		},
		{
			name:      "negative weight stored as is",
			connected: true,
			weight:    -15,
			want:      DeviceState{WeightGrams: -15, ScaleConnected: true},
			applied:   true,
		},
		{
			name:      "disconnected ignores weight",
			connected: false,
			weight:    500,
			want:      DeviceState{},
			applied:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st, _ := NewState()
			st.SetScaleConnected(tt.connected)
			assert.Equal(t, tt.applied, st.SetWeight(tt.weight))
			assert.Equal(t, tt.want, st.Snapshot())
		})
	}
}

func TestSetScaleConnected_FalseZeroesWeight(t *testing.T) {
	t.Parallel()

	st, _ := NewState()
	st.SetScaleConnected(true)
	st.SetWeight(456)
	st.SetAuxConnected(true)

	st.SetScaleConnected(false)

	assert.Equal(t, DeviceState{AuxConnected: true}, st.Snapshot())
	assert.Equal(t, Status{AuxConnected: true}, st.Status())
}

func TestSnapshot_InvariantUnderConcurrency(t *testing.T) {
	t.Parallel()

	st, _ := NewState()
	stop := make(chan struct{})
	var writers sync.WaitGroup

	writers.Add(2)
	go func() {
		defer writers.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			st.SetScaleConnected(i%2 == 0)
		}
	}()
	go func() {
		defer writers.Done()
		for i := int64(1); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			st.SetWeight(i)
		}
	}()

	for range 10000 {
		snap := st.Snapshot()
		if !snap.ScaleConnected {
			require.Zero(t, snap.WeightGrams, "disconnected snapshot with weight: %+v", snap)
		}
	}

	close(stop)
	writers.Wait()
}

func TestPropertyDisconnectedImpliesZeroWeight(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		st, _ := NewState()
		ops := rapid.SliceOf(rapid.IntRange(0, 3)).Draw(t, "ops")
		for _, op := range ops {
			switch op {
			case 0:
				st.SetScaleConnected(true)
			case 1:
				st.SetScaleConnected(false)
			case 2:
				st.SetWeight(rapid.Int64().Draw(t, "weight"))
			case 3:
				st.SetAuxConnected(rapid.Bool().Draw(t, "aux"))
			}
			snap := st.Snapshot()
			if !snap.ScaleConnected && snap.WeightGrams != 0 {
				t.Fatalf("invariant violated: %+v", snap)
			}
			if snap.Status() != st.Status() {
				t.Fatalf("status mismatch: %+v vs %+v", snap.Status(), st.Status())
			}
		}
	})
}
