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

// Package daemon runs the station in the foreground until it is told to
// stop or stops by itself.
package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Runner is a started service.
type Runner interface {
	Stop() error
	Done() <-chan struct{}
	Err() error
}

// ServiceEntry starts the service.
type ServiceEntry func() (Runner, error)

// Run starts the service and blocks until ctx is cancelled, usually by a
// signal, or the service shuts down internally.
func Run(ctx context.Context, start ServiceEntry) error {
	log.Info().Msg("starting service")

	svc, err := start()
	if err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("stopping service")
		if err := svc.Stop(); err != nil {
			return fmt.Errorf("error stopping service: %w", err)
		}
		return nil
	case <-svc.Done():
		log.Info().Msg("service shut down internally")
		if err := svc.Err(); err != nil {
			return fmt.Errorf("service failed: %w", err)
		}
		return nil
	}
}
