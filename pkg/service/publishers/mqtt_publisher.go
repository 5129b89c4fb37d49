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

// Package publishers forwards station notifications to external systems.
package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 250
)

type clientFactory func(opts *mqtt.ClientOptions) mqtt.Client

// MQTTPublisher publishes each notification's params to <topic>/<method>.
// Component status messages are retained so late subscribers see the
// current connectivity straight away.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient clientFactory
	done      chan struct{}
	broker    string
	topic     string
	deviceID  string
}

func NewMQTTPublisher(broker, topic, deviceID string) *MQTTPublisher {
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		deviceID:  deviceID,
		newClient: mqtt.NewClient,
		done:      make(chan struct{}),
	}
}

func (p *MQTTPublisher) clientID() string {
	id := p.deviceID
	if id == "" {
		id = uuid.New().String()
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "scalestation-" + id
}

// topicFor maps a notification method to its MQTT topic.
func (p *MQTTPublisher) topicFor(method string) string {
	return p.topic + "/" + method
}

// Start connects to the broker and forwards notifications until ctx is
// cancelled or the channel closes. An unreachable broker is not fatal: the
// client keeps retrying in the background.
func (p *MQTTPublisher) Start(ctx context.Context, notifications <-chan models.Notification) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker("tcp://" + p.broker)
	opts.SetClientID(p.clientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetWill(p.topicFor(models.NotificationComponentStatus),
		`{"scale_connected":false,"aux_connected":false}`, 0, true)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s (topic: %s)", p.broker, p.topic)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Msgf("mqtt publisher: %s not reachable yet, retrying in background", p.broker)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	go p.publishNotifications(ctx, notifications)
	return nil
}

// Done is closed when the publishing loop has exited.
func (p *MQTTPublisher) Done() <-chan struct{} {
	return p.done
}

func (p *MQTTPublisher) Stop() {
	// Disconnect also cancels a connect retry still running in the background
	// for a broker that was never reached.
	if p.client != nil {
		log.Debug().Msg("mqtt publisher: disconnecting")
		p.client.Disconnect(disconnectQuiesce)
	}
}

func (p *MQTTPublisher) publishNotifications(ctx context.Context, notifications <-chan models.Notification) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("mqtt publisher: stopping notification publisher")
			return
		case notif, ok := <-notifications:
			if !ok {
				log.Debug().Msg("mqtt publisher: notification channel closed")
				return
			}
			p.publish(notif)
		}
	}
}

func (p *MQTTPublisher) publish(notif models.Notification) {
	retained := notif.Method == models.NotificationComponentStatus
	topic := p.topicFor(notif.Method)

	token := p.client.Publish(topic, 0, retained, []byte(notif.Params))
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("topic", topic).Msg("mqtt publisher: publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("mqtt publisher: failed to publish message")
		return
	}
	log.Debug().Msgf("mqtt publisher: published %s notification", notif.Method)
}
