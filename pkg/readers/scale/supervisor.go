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

// Package scale acquires weight readings from a serial scale and keeps the
// station's device state in step with the connection.
package scale

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/api/notifications"
	"github.com/scalestation/scalestation-core/pkg/config"
	"github.com/scalestation/scalestation-core/pkg/helpers"
	"github.com/scalestation/scalestation-core/pkg/readers/shared/lines"
	"github.com/scalestation/scalestation-core/pkg/readers/testutils"
	"github.com/scalestation/scalestation-core/pkg/service/state"
	"github.com/scalestation/scalestation-core/pkg/service/status"
	"go.bug.st/serial"
)

const readBufferSize = 1024

var (
	ErrOpen   = errors.New("failed to open scale")
	ErrRead   = errors.New("failed to read from scale")
	ErrPanic  = errors.New("panic in scale connection")
	ErrNoPort = errors.New("no usb serial port found")
)

type Phase int32

const (
	PhaseClosed Phase = iota
	PhaseOpening
	PhaseConnected
)

func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpening:
		return "opening"
	case PhaseConnected:
		return "connected"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

type Option func(*Supervisor)

func WithPortFactory(f testutils.SerialPortFactory) Option {
	return func(s *Supervisor) {
		s.portFactory = f
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Supervisor) {
		s.clock = c
	}
}

// WithDecoder fixes the text decoder instead of building one from the
// configured encoding on every attempt.
func WithDecoder(d *lines.Decoder) Option {
	return func(s *Supervisor) {
		s.decoder = d
	}
}

// WithPortLister replaces serial port enumeration used for auto-detection.
func WithPortLister(l helpers.PortLister) Option {
	return func(s *Supervisor) {
		s.listPorts = l
	}
}

// Supervisor owns the scale's serial connection. It opens the port, turns
// incoming lines into readings and reopens the port after any failure.
type Supervisor struct {
	clock       clockwork.Clock
	cfg         *config.Instance
	st          *state.State
	notifier    *status.Notifier
	portFactory testutils.SerialPortFactory
	listPorts   helpers.PortLister
	decoder     *lines.Decoder
	device      atomic.Value
	phase       atomic.Int32
}

func NewSupervisor(
	cfg *config.Instance,
	st *state.State,
	notifier *status.Notifier,
	opts ...Option,
) *Supervisor {
	s := &Supervisor{
		cfg:         cfg,
		st:          st,
		notifier:    notifier,
		clock:       clockwork.NewRealClock(),
		portFactory: testutils.DefaultSerialPortFactory,
		listPorts:   helpers.ListSerialPorts,
	}
	s.device.Store("")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) Phase() Phase {
	return Phase(s.phase.Load())
}

// Device is the path of the port currently open, or empty.
func (s *Supervisor) Device() string {
	v, _ := s.device.Load().(string)
	return v
}

func (s *Supervisor) setPhase(p Phase) {
	s.phase.Store(int32(p))
}

// Run keeps the scale connected until ctx is cancelled. Device errors never
// end it; each failed attempt marks the scale disconnected and waits the
// configured reconnect delay before trying again.
func (s *Supervisor) Run(ctx context.Context) error {
	log.Info().Msg("starting scale supervisor")
	defer log.Info().Msg("scale supervisor stopped")

	for {
		err := s.attempt(ctx)
		s.markDisconnected()

		if ctx.Err() != nil {
			return nil
		}

		delay := s.cfg.ScaleReconnectDelay()
		switch {
		case errors.Is(err, ErrPanic):
			log.Error().Err(err).Msgf("scale connection crashed, retrying in %s", delay)
		case err != nil:
			log.Warn().Err(err).Msgf("scale unavailable, retrying in %s", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(delay):
		}
	}
}

func (s *Supervisor) markDisconnected() {
	s.setPhase(PhaseClosed)
	s.device.Store("")
	s.st.SetScaleConnected(false)
	s.notifier.Refresh()
}

func (s *Supervisor) resolvePath() (string, error) {
	if !s.cfg.ScaleAutoDetect() {
		return s.cfg.ScalePath(), nil
	}

	ports, err := s.listPorts()
	if err != nil {
		return "", err
	}
	var exclude []string
	if p := s.cfg.PrinterPath(); p != "" {
		exclude = append(exclude, p)
	}
	path, ok := helpers.SelectScalePort(ports, exclude...)
	if !ok {
		return "", ErrNoPort
	}
	log.Info().Msgf("auto-detected scale port: %s", path)
	return path, nil
}

func (s *Supervisor) decoderFor() (*lines.Decoder, error) {
	if s.decoder != nil {
		return s.decoder, nil
	}
	d, err := lines.NewDecoder(s.cfg.ScaleEncoding())
	if err != nil {
		return nil, fmt.Errorf("failed to create line decoder: %w", err)
	}
	return d, nil
}

// attempt runs one connection from open to failure. It returns nil when ctx
// was cancelled.
func (s *Supervisor) attempt(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	if ctx.Err() != nil {
		return nil
	}

	s.setPhase(PhaseOpening)

	dec, err := s.decoderFor()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	path, err := s.resolvePath()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}

	log.Debug().Msgf("opening scale: %s", path)

	port, err := s.portFactory(path, &serial.Mode{
		BaudRate: s.cfg.ScaleBaudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}

	closePort := sync.OnceValue(port.Close)
	defer func() {
		if closeErr := closePort(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("failed to close scale port")
		}
	}()
	// closing the port interrupts a blocked read on cancellation
	stop := context.AfterFunc(ctx, func() { _ = closePort() })
	defer stop()

	if err := port.SetReadTimeout(s.cfg.ScaleReadTimeout()); err != nil {
		return fmt.Errorf("%w: failed to set read timeout on %s: %w", ErrOpen, path, err)
	}

	s.device.Store(path)
	s.setPhase(PhaseConnected)
	s.st.SetScaleConnected(true)
	s.notifier.Refresh()
	log.Info().Msgf("opened scale: %s", path)

	buf := make([]byte, readBufferSize)
	pending := ""

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, readErr := port.Read(buf)

		// bytes that came with an error are still consumed
		if n > 0 {
			pending = s.consume(dec, pending, buf[:n])
		}

		if readErr != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isNoData(readErr) {
				continue
			}
			return fmt.Errorf("%w %s: %w", ErrRead, path, readErr)
		}
	}
}

// consume decodes one chunk and publishes every valid reading in order. It
// returns the new pending buffer.
func (s *Supervisor) consume(dec *lines.Decoder, pending string, chunk []byte) string {
	ls, rest, err := dec.Decode(pending, chunk)
	if err != nil {
		log.Warn().Err(err).Int("bytes", len(chunk)).Msg("discarding scale data")
	}

	for _, line := range ls {
		reading, err := ParseReading(line)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring scale line")
			continue
		}

		if !s.st.SetWeight(reading.Grams) {
			continue
		}
		log.Debug().Int64("grams", reading.Grams).Msg("scale reading")
		notifications.WeightReading(s.st.Notifications, models.WeightReadingResponse{
			Grams: reading.Grams,
		})
	}

	return rest
}

// isNoData reports read errors that only mean nothing arrived in time.
func isNoData(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EINTR) {
		return true
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}
	return false
}
