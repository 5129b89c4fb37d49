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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/internal/telemetry"
	"github.com/scalestation/scalestation-core/pkg/cli"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/helpers"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Flush()
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags(flag.CommandLine)
	flag.Parse()

	exit, err := flags.Pre(os.Stdout, helpers.ListSerialPorts)
	if exit || err != nil {
		return err
	}

	configDir := *flags.ConfigDir
	if configDir == "" {
		configDir = helpers.ConfigDir()
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg, err := cli.Setup(configDir, helpers.LogDir(), config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handled, err := flags.RunClient(ctx, cfg, os.Stdout)
	if handled {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %v\n", r)
			log.Error().Msgf("panic: %v", r)
			telemetry.Flush()
			os.Exit(2)
		}
	}()

	log.Info().Str("config", cfg.Path()).Msgf("scale station v%s starting", config.AppVersion)
	if !*flags.Daemon {
		_, _ = fmt.Printf("Scale Station v%s running, API on %s (Ctrl-C to stop)\n",
			config.AppVersion, cfg.APIListen())
	}

	err = cli.RunService(ctx, cfg)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("service exited with error")
		return err
	}
	return nil
}
