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

package cli

import (
	"context"
	"io"

	"github.com/scalestation/scalestation-core/pkg/api/client"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/service"
	"github.com/scalestation/scalestation-core/pkg/service/daemon"
)

// RunClient handles the client flags against the local service. It reports
// whether a client flag was given.
func (f *Flags) RunClient(ctx context.Context, cfg *config.Instance, out io.Writer) (bool, error) {
	if !*f.Watch {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, apiTimeout)
		defer cancel()
	}
	return f.Post(ctx, client.NewLocalAPIClient(cfg), out)
}

// RunService runs the station until ctx is cancelled.
func RunService(ctx context.Context, cfg *config.Instance) error {
	//nolint:wrapcheck // daemon.Run already adds context
	return daemon.Run(ctx, func() (daemon.Runner, error) {
		return service.Start(cfg)
	})
}
