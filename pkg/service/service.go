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

// Package service wires the scale supervisor, state, API and optional
// publishers into one running station.
package service

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/readers/scale"
	"github.com/scalestation/scalestation-core/pkg/service/broker"
	"github.com/scalestation/scalestation-core/pkg/service/discovery"
	"github.com/scalestation/scalestation-core/pkg/service/printer"
	"github.com/scalestation/scalestation-core/pkg/service/publishers"
	"github.com/scalestation/scalestation-core/pkg/service/state"
	"github.com/scalestation/scalestation-core/pkg/service/status"
	"golang.org/x/sync/errgroup"
)

const publisherBufferSize = 100

type options struct {
	listener  net.Listener
	scaleOpts []scale.Option
	watchCfg  bool
}

type Option func(*options)

// WithListener serves the API on ln instead of the configured address.
func WithListener(ln net.Listener) Option {
	return func(o *options) {
		o.listener = ln
	}
}

func WithScaleOptions(opts ...scale.Option) Option {
	return func(o *options) {
		o.scaleOpts = append(o.scaleOpts, opts...)
	}
}

// WithoutConfigWatch skips reloading the config file on change.
func WithoutConfigWatch() Option {
	return func(o *options) {
		o.watchCfg = false
	}
}

// Service is a running station.
type Service struct {
	st   *state.State
	sup  *scale.Supervisor
	done chan struct{}
	addr net.Addr
	err  error
}

// Start launches every component and returns once the API is listening.
// Components run until Stop is called or one of them fails.
func Start(cfg *config.Instance, opts ...Option) (*Service, error) {
	o := options{watchCfg: true}
	for _, opt := range opts {
		opt(&o)
	}

	st, ns := state.NewState()
	ctx := st.Context()

	ln := o.listener
	if ln == nil {
		var lc net.ListenConfig
		var err error
		ln, err = lc.Listen(ctx, "tcp", cfg.APIListen())
		if err != nil {
			st.StopService()
			return nil, fmt.Errorf("failed to listen on %s: %w", cfg.APIListen(), err)
		}
	}

	notifier := status.NewNotifier(st)
	sup := scale.NewSupervisor(cfg, st, notifier, o.scaleOpts...)
	notifBroker := broker.NewBroker(ns)
	apiNotifications, _ := notifBroker.Subscribe(state.NotificationBufferSize)

	svc := &Service{
		st:   st,
		sup:  sup,
		done: make(chan struct{}),
		addr: ln.Addr(),
	}

	g, gctx := errgroup.WithContext(ctx)

	log.Info().Msg("starting notification broker")
	g.Go(func() error {
		notifBroker.Run(gctx)
		return nil
	})

	activePublishers := startPublishers(gctx, cfg, notifBroker)

	log.Info().Msg("starting api server")
	server := api.NewServer(cfg, st, notifier, func() string { return sup.Phase().String() })
	g.Go(func() error {
		return server.Serve(gctx, ln, apiNotifications)
	})

	g.Go(func() error {
		return sup.Run(gctx)
	})

	g.Go(func() error {
		return discovery.New(cfg).Run(gctx)
	})

	if path := cfg.PrinterPath(); path != "" {
		log.Info().Str("path", path).Msg("starting printer presence monitor")
		monitor := printer.NewMonitor(path, st, notifier)
		g.Go(func() error {
			if err := monitor.Run(gctx); err != nil {
				log.Warn().Err(err).Msg("printer presence monitor unavailable")
			}
			return nil
		})
	}

	if o.watchCfg {
		err := cfg.Watch(gctx, func() {
			cfg.SetDebugLogging(cfg.DebugLogging())
		})
		if err != nil {
			log.Warn().Err(err).Msg("config file changes will not be picked up")
		}
	}

	go func() {
		err := g.Wait()
		if err != nil {
			log.Error().Err(err).Msg("service component failed")
		}
		st.StopService()
		for _, p := range activePublishers {
			<-p.Done()
			p.Stop()
		}
		svc.err = err
		log.Info().Msg("service stopped")
		close(svc.done)
	}()

	return svc, nil
}

// startPublishers connects each enabled MQTT publisher to its own broker
// subscription.
func startPublishers(
	ctx context.Context,
	cfg *config.Instance,
	notifBroker *broker.Broker,
) []*publishers.MQTTPublisher {
	active := make([]*publishers.MQTTPublisher, 0)

	for _, mqttCfg := range cfg.GetMQTTPublishers() {
		if !mqttCfg.IsEnabled() {
			continue
		}

		log.Info().Msgf("starting MQTT publisher: %s (topic: %s)", mqttCfg.Broker, mqttCfg.Topic)

		ch, id := notifBroker.Subscribe(publisherBufferSize, mqttCfg.Filter...)
		publisher := publishers.NewMQTTPublisher(mqttCfg.Broker, mqttCfg.Topic, cfg.DeviceID())
		if err := publisher.Start(ctx, ch); err != nil {
			log.Error().Err(err).Msgf("failed to start MQTT publisher for %s", mqttCfg.Broker)
			notifBroker.Unsubscribe(id)
			continue
		}
		active = append(active, publisher)
	}

	if len(active) > 0 {
		log.Info().Msgf("started %d MQTT publisher(s)", len(active))
	}
	return active
}

// Addr is the address the API is served on.
func (s *Service) Addr() net.Addr {
	return s.addr
}

func (s *Service) State() *state.State {
	return s.st
}

func (s *Service) Supervisor() *scale.Supervisor {
	return s.sup
}

// Done is closed once every component has stopped.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Err is the first component failure, valid after Done is closed.
func (s *Service) Err() error {
	<-s.done
	return s.err
}

// Stop shuts everything down and waits for it to finish.
func (s *Service) Stop() error {
	s.st.StopService()
	<-s.done
	if s.err != nil && !errors.Is(s.err, context.Canceled) {
		return s.err
	}
	return nil
}
