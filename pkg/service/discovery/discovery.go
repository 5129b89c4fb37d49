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

// Package discovery advertises the station's API over mDNS so kiosks and
// dashboards on the LAN can find it without a fixed address.
package discovery

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/config"
)

// ServiceType is the DNS-SD service type of a scale station.
const ServiceType = "_scalestation._tcp"

const (
	domain = "local."

	// retryInterval is how often registration is retried while no network
	// interface is usable.
	retryInterval    = 30 * time.Second
	maxRetryDuration = 5 * time.Minute
)

var virtualInterfacePrefixes = []string{
	"docker", "br-", "veth", "virbr", "lxc", "lxd",
	"cni", "flannel", "cali", "tunl", "wg",
}

func getPreferredInterfaces() ([]net.Interface, error) {
	allIfaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list network interfaces: %w", err)
	}
	return filterInterfaces(allIfaces), nil
}

// filterInterfaces keeps interfaces that are up, multicast capable and
// neither loopback nor virtual.
func filterInterfaces(ifaces []net.Interface) []net.Interface {
	var preferred []net.Interface
	for _, iface := range ifaces {
		switch {
		case iface.Flags&net.FlagUp == 0,
			iface.Flags&net.FlagLoopback != 0,
			iface.Flags&net.FlagMulticast == 0,
			isVirtualInterface(iface.Name):
			continue
		}
		preferred = append(preferred, iface)
	}
	return preferred
}

func isVirtualInterface(name string) bool {
	lowerName := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lowerName, prefix) {
			return true
		}
	}
	return false
}

type shutdowner interface {
	Shutdown()
}

type registerFunc func(
	instance, service, domain string,
	port int,
	text []string,
	ifaces []net.Interface,
) (shutdowner, error)

func zeroconfRegister(
	instance, service, domain string,
	port int,
	text []string,
	ifaces []net.Interface,
) (shutdowner, error) {
	server, err := zeroconf.Register(instance, service, domain, port, text, ifaces)
	if err != nil {
		return nil, fmt.Errorf("zeroconf register: %w", err)
	}
	return server, nil
}

// Service advertises the API while Run is active.
type Service struct {
	cfg        *config.Instance
	clock      clockwork.Clock
	register   registerFunc
	interfaces func() ([]net.Interface, error)
	hostname   func() (string, error)
}

func New(cfg *config.Instance) *Service {
	return &Service{
		cfg:        cfg,
		clock:      clockwork.NewRealClock(),
		register:   zeroconfRegister,
		interfaces: getPreferredInterfaces,
		hostname:   os.Hostname,
	}
}

// Run registers the service and keeps it advertised until ctx is cancelled,
// sending goodbye packets on the way out. When no interface is usable yet,
// registration is retried for a while before giving up quietly.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.DiscoveryEnabled() {
		log.Info().Msg("mDNS discovery disabled by configuration")
		return nil
	}

	instanceName := s.resolveInstanceName()

	server := s.tryRegister(instanceName)
	if server == nil {
		log.Info().
			Dur("retryInterval", retryInterval).
			Dur("maxDuration", maxRetryDuration).
			Msg("mDNS registration failed, retrying in background (network may not be ready)")
		server = s.retry(ctx, instanceName)
		if server == nil {
			return nil
		}
	}

	<-ctx.Done()
	log.Debug().Msg("stopping mDNS service advertising")
	server.Shutdown()
	return nil
}

func (s *Service) retry(ctx context.Context, instanceName string) shutdowner {
	ticker := s.clock.NewTicker(retryInterval)
	defer ticker.Stop()
	deadline := s.clock.After(maxRetryDuration)

	for {
		select {
		case <-ticker.Chan():
			if server := s.tryRegister(instanceName); server != nil {
				log.Info().Msg("mDNS registration succeeded after retry")
				return server
			}
		case <-deadline:
			log.Warn().Msg("mDNS registration retry timed out, discovery will not be available")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Service) txtRecords() []string {
	return []string{
		"id=" + s.cfg.DeviceID(),
		"version=" + config.AppVersion,
		"path=/api",
	}
}

func (s *Service) tryRegister(instanceName string) shutdowner {
	ifaces, err := s.interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("failed to get network interfaces")
		return nil
	}
	if len(ifaces) == 0 {
		log.Debug().Msg("no suitable network interfaces found for mDNS")
		return nil
	}

	ifaceNames := make([]string, len(ifaces))
	for i, iface := range ifaces {
		ifaceNames[i] = iface.Name
	}

	port := s.cfg.APIPort()
	server, err := s.register(instanceName, ServiceType, domain, port, s.txtRecords(), ifaces)
	if err != nil {
		log.Debug().Err(err).Msg("mDNS registration attempt failed")
		return nil
	}

	log.Info().
		Str("instance", instanceName).
		Int("port", port).
		Str("type", ServiceType).
		Strs("interfaces", ifaceNames).
		Msg("mDNS service advertising started")
	return server
}

// resolveInstanceName prefers the configured name, then the hostname, then
// a name derived from the device ID.
func (s *Service) resolveInstanceName() string {
	if name := s.cfg.DiscoveryInstanceName(); name != "" {
		return name
	}

	hostname, err := s.hostname()
	if err == nil && hostname != "" {
		return hostname
	}
	log.Warn().Err(err).Msg("failed to get hostname, using fallback")

	deviceID := s.cfg.DeviceID()
	if len(deviceID) >= 8 {
		return config.AppName + "-" + deviceID[:8]
	}
	return config.AppName
}
