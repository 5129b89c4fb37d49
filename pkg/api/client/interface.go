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
	"fmt"
	"time"

	"github.com/scalestation/scalestation-core/pkg/config"
)

// APIClient abstracts API communication for testability.
type APIClient interface {
	Call(ctx context.Context, method, params string) (string, error)
	WaitNotification(ctx context.Context, timeout time.Duration, method string) (string, error)
}

// LocalAPIClient talks to the service running on this machine.
type LocalAPIClient struct {
	cfg *config.Instance
}

func NewLocalAPIClient(cfg *config.Instance) *LocalAPIClient {
	return &LocalAPIClient{cfg: cfg}
}

func (c *LocalAPIClient) Call(ctx context.Context, method, params string) (string, error) {
	resp, err := Call(ctx, LocalURL(c.cfg), method, params)
	if err != nil {
		return "", fmt.Errorf("api call failed: %w", err)
	}
	return resp, nil
}

func (c *LocalAPIClient) WaitNotification(
	ctx context.Context,
	timeout time.Duration,
	method string,
) (string, error) {
	resp, err := WaitNotification(ctx, timeout, LocalURL(c.cfg), method)
	if err != nil {
		return "", fmt.Errorf("wait notification failed: %w", err)
	}
	return resp, nil
}
