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

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_Burst(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rl := NewIPRateLimiterWithClock(clock, 60, 3)

	for i := range 3 {
		assert.True(t, rl.Allow("192.168.1.100"), "request %d within burst", i+1)
	}
	assert.False(t, rl.Allow("192.168.1.100"))

	// other clients have their own bucket
	assert.True(t, rl.Allow("192.168.1.101"))

	// one token per second at 60/min
	clock.Advance(time.Second)
	assert.True(t, rl.Allow("192.168.1.100"))
	assert.False(t, rl.Allow("192.168.1.100"))
}

func TestIPRateLimiter_Cleanup(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	rl := NewIPRateLimiterWithClock(clock, RequestsPerMinute, BurstSize)

	rl.Allow("10.0.0.1")
	clock.Advance(limiterMaxAge / 2)
	rl.Allow("10.0.0.2")
	clock.Advance(limiterMaxAge/2 + time.Second)

	rl.Cleanup()
	assert.Equal(t, 1, rl.size())
}

func TestHTTPRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	rl := NewIPRateLimiterWithClock(clockwork.NewFakeClock(), 60, 2)
	handler := HTTPRateLimitMiddleware(rl)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/status", http.NoBody)
		req.RemoteAddr = "192.168.1.50:4321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestParseRemoteIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		addr string
		want string
	}{
		{name: "ipv4 with port", addr: "192.168.1.10:5000", want: "192.168.1.10"},
		{name: "ipv6 with port", addr: "[::1]:5000", want: "::1"},
		{name: "bare ip", addr: "10.0.0.1", want: "10.0.0.1"},
		{name: "garbage", addr: "not-an-ip", want: "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseRemoteIP(tt.addr).String())
		})
	}
}

func TestIPFilter_IsAllowed(t *testing.T) {
	t.Parallel()

	filter := NewIPFilter([]string{"192.168.1.0/24", "10.0.0.5", "10.0.0.9:8080", "bogus"})

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "192.168.1.77:1234", want: true},
		{addr: "192.168.2.1:1234", want: false},
		{addr: "10.0.0.5:80", want: true},
		{addr: "10.0.0.9:80", want: true},
		{addr: "10.0.0.6:80", want: false},
		{addr: "127.0.0.1:9999", want: true},
		{addr: "[::1]:9999", want: true},
		{addr: "[::ffff:192.168.1.3]:1", want: true},
		{addr: "garbage", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, filter.IsAllowed(tt.addr))
		})
	}
}

func TestIPFilter_EmptyAllowsAll(t *testing.T) {
	t.Parallel()

	filter := NewIPFilter(nil)
	assert.True(t, filter.IsAllowed("203.0.113.7:443"))
	assert.True(t, filter.IsAllowed("garbage"))
}

func TestHTTPIPFilterMiddleware(t *testing.T) {
	t.Parallel()

	handler := HTTPIPFilterMiddleware(NewIPFilter([]string{"192.168.1.0/24"}))(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	allowed := httptest.NewRequest(http.MethodGet, "/api", http.NoBody)
	allowed.RemoteAddr = "192.168.1.20:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, allowed)
	assert.Equal(t, http.StatusOK, rec.Code)

	blocked := httptest.NewRequest(http.MethodGet, "/api", http.NoBody)
	blocked.RemoteAddr = "172.16.0.1:5555"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, blocked)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
