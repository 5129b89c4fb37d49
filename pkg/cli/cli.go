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

// Package cli holds the command line surface shared by the station binaries.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/internal/telemetry"
	"github.com/scalestation/scalestation-core/pkg/api/client"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/helpers"
)

// apiTimeout bounds one-shot API flags.
const apiTimeout = 10 * time.Second

var ErrMissingValue = errors.New("flag requires a value")

type Flags struct {
	ConfigDir *string
	API       *string
	Daemon    *bool
	ListPorts *bool
	Version   *bool
	Status    *bool
	Watch     *bool
}

func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		ConfigDir: fs.String(
			"config",
			"",
			"directory containing config.toml",
		),
		API: fs.String(
			"api",
			"",
			"send method and params to the running service and print the response",
		),
		Daemon: fs.Bool(
			"daemon",
			false,
			"run service in foreground and also log to stderr",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"list serial ports and exit",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
		Status: fs.Bool(
			"status",
			false,
			"print the running service's device state",
		),
		Watch: fs.Bool(
			"watch",
			false,
			"print weight readings from the running service until interrupted",
		),
	}
}

// Pre handles flags that need neither config nor logging. It reports
// whether the program should exit.
func (f *Flags) Pre(out io.Writer, lister helpers.PortLister) (bool, error) {
	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "Scale Station v%s\n", config.AppVersion)
		return true, nil
	case *f.ListPorts:
		return true, PrintPorts(out, lister)
	}
	return false, nil
}

// Post handles flags that talk to a running service. It reports whether one
// was handled.
func (f *Flags) Post(ctx context.Context, api client.APIClient, out io.Writer) (bool, error) {
	switch {
	case *f.Status:
		resp, err := api.Call(ctx, models.MethodStatus, "")
		if err != nil {
			return true, fmt.Errorf("error getting status: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	case *f.Watch:
		return true, watchWeight(ctx, api, out)
	case *f.API != "":
		method, params, _ := strings.Cut(*f.API, ":")
		if method == "" {
			return true, fmt.Errorf("api: %w", ErrMissingValue)
		}
		resp, err := api.Call(ctx, method, params)
		if err != nil {
			return true, fmt.Errorf("error calling API: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	}
	return false, nil
}

func watchWeight(ctx context.Context, api client.APIClient, out io.Writer) error {
	for {
		resp, err := api.WaitNotification(ctx, -1, models.NotificationWeightReading)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			return fmt.Errorf("error waiting for reading: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
	}
}

// Setup prepares directories and logging, loads the config and turns on
// error reporting if configured.
func Setup(configDir, logDir string, defaults config.Values, writers []io.Writer) (*config.Instance, error) {
	if err := helpers.EnsureDirectories(configDir, logDir); err != nil {
		return nil, fmt.Errorf("error creating directories: %w", err)
	}

	if err := helpers.InitLogging(logDir, writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(configDir, defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	cfg.SetDebugLogging(cfg.DebugLogging())

	err = telemetry.Init(telemetry.Options{
		Enabled:    cfg.ErrorReporting(),
		DSN:        cfg.ErrorReportingDSN(),
		DeviceID:   cfg.DeviceID(),
		AppVersion: config.AppVersion,
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
