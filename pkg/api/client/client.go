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

// Package client talks to a running station over its WebSocket API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/config"
)

var (
	ErrRequestTimeout   = errors.New("request timed out")
	ErrInvalidParams    = errors.New("invalid params")
	ErrRequestCancelled = errors.New("request cancelled")
)

const APIPath = "/api"

// LocalURL is the WebSocket address of the service on this machine.
func LocalURL(cfg *config.Instance) string {
	u := url.URL{
		Scheme: "ws",
		Host:   net.JoinHostPort("localhost", strconv.Itoa(cfg.APIPort())),
		Path:   APIPath,
	}
	return u.String()
}

func dial(ctx context.Context, wsURL string) (*websocket.Conn, error) {
	c, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	return c, nil
}

func closeConn(c *websocket.Conn) {
	if err := c.Close(); err != nil {
		log.Debug().Err(err).Msg("error closing websocket")
	}
}

// wait blocks until done closes, the timeout passes or ctx is cancelled. A
// zero timeout uses the default API timeout, a negative one never expires.
func wait(ctx context.Context, c *websocket.Conn, done <-chan struct{}, timeout time.Duration) error {
	var timerChan <-chan time.Time
	if timeout == 0 {
		timeout = config.APIRequestTimeout
	}
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timerChan = timer.C
	}

	select {
	case <-done:
		return nil
	case <-timerChan:
		closeConn(c)
		<-done
		return ErrRequestTimeout
	case <-ctx.Done():
		closeConn(c)
		<-done
		return ErrRequestCancelled
	}
}

// Call sends one request to wsURL and returns the JSON result.
func Call(ctx context.Context, wsURL, method, params string) (string, error) {
	rawID, err := json.Marshal(uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("failed to create request id: %w", err)
	}
	id := models.RPCID{RawMessage: rawID}

	req := models.RequestObject{
		JSONRPC: "2.0",
		ID:      &id,
		Method:  method,
	}
	if params != "" {
		if !json.Valid([]byte(params)) {
			return "", ErrInvalidParams
		}
		req.Params = []byte(params)
	}

	c, err := dial(ctx, wsURL)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var resp *models.ResponseObject

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("error reading message")
				return
			}

			var m models.ResponseObject
			if err := json.Unmarshal(message, &m); err != nil {
				continue
			}
			if m.JSONRPC != "2.0" || !bytes.Equal(m.ID.RawMessage, rawID) {
				continue
			}
			resp = &m
			return
		}
	}()

	if err := c.WriteJSON(req); err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	if err := wait(ctx, c, done, 0); err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrRequestTimeout
	}
	if resp.Error != nil {
		return "", fmt.Errorf("api error %d: %s", resp.Error.Code, resp.Error.Message)
	}

	b, err := json.Marshal(resp.Result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(b), nil
}

// WaitNotification connects to wsURL and returns the params of the first
// notification with the given method.
func WaitNotification(ctx context.Context, timeout time.Duration, wsURL, method string) (string, error) {
	c, err := dial(ctx, wsURL)
	if err != nil {
		return "", err
	}
	defer closeConn(c)

	done := make(chan struct{})
	var notif *models.RequestObject

	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("error reading message")
				return
			}

			var m models.RequestObject
			if err := json.Unmarshal(message, &m); err != nil {
				continue
			}
			if m.JSONRPC != "2.0" || !m.ID.IsAbsent() || m.Method != method {
				continue
			}
			notif = &m
			return
		}
	}()

	if err := wait(ctx, c, done, timeout); err != nil {
		return "", err
	}
	if notif == nil {
		return "", ErrRequestTimeout
	}
	return string(notif.Params), nil
}
