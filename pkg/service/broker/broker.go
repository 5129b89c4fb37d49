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

// Package broker fans station notifications out to independent consumers
// (the WebSocket API, MQTT publishers) without letting any of them stall the
// acquisition loop.
package broker

import (
	"context"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/helpers/syncutil"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
	dropped uint64
}

func (s *subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

// Broker reads from a single source queue and copies every notification to
// each matching subscriber. A full subscriber loses that notification only.
type Broker struct {
	source      <-chan models.Notification
	subscribers map[int]*subscriber
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
	closed      bool
}

func NewBroker(source <-chan models.Notification) *Broker {
	return &Broker{
		source:      source,
		subscribers: make(map[int]*subscriber),
		done:        make(chan struct{}),
	}
}

// Run blocks, broadcasting until the source closes or ctx is cancelled. All
// subscriber channels are closed on return.
func (b *Broker) Run(ctx context.Context) {
	defer close(b.done)
	defer b.closeAllSubscribers()

	for {
		select {
		case notif, ok := <-b.source:
			if !ok {
				log.Debug().Msg("broker: source channel closed")
				return
			}
			b.broadcast(notif)
		case <-ctx.Done():
			log.Debug().Msg("broker: context cancelled, shutting down")
			return
		}
	}
}

// Done is closed once Run has returned.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		if !sub.wants(notif.Method) {
			continue
		}
		select {
		case sub.ch <- notif:
		default:
			sub.dropped++
			log.Warn().
				Int("subscriber_id", id).
				Str("method", notif.Method).
				Uint64("dropped", sub.dropped).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a consumer with its own buffer. If methods is empty the
// subscriber receives every notification, otherwise only those methods.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Notification, bufferSize)
	if b.closed {
		close(ch)
		return ch, -1
	}

	id = b.nextID
	b.nextID++
	b.subscribers[id] = &subscriber{
		ch:      ch,
		methods: slices.Clone(methods),
	}

	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")

	return ch, id
}

// Unsubscribe closes the subscriber's channel. Unknown IDs are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Dropped returns how many notifications a subscriber has lost to a full buffer.
func (b *Broker) Dropped(id int) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if sub, ok := b.subscribers[id]; ok {
		return sub.dropped
	}
	return 0
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subscribers {
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber channel on shutdown")
	}
	b.subscribers = make(map[int]*subscriber)
	b.closed = true
}
