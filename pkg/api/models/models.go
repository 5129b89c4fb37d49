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

package models

import (
	"bytes"
	"encoding/json"
	"errors"
)

const (
	MethodStatus  = "status"
	MethodVersion = "version"
)

const (
	// NotificationWeightReading is sent for every reading parsed from the scale.
	NotificationWeightReading = "scale.weight"
	// NotificationComponentStatus is sent when connectivity of the scale or
	// the auxiliary device changes, and once to every new client.
	NotificationComponentStatus = "components.status"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

// ErrInvalidRPCID is returned when a request ID is an object or array.
var ErrInvalidRPCID = errors.New("JSON-RPC ID cannot be an object or array")

// RPCID keeps the raw JSON of a request ID so it is echoed back exactly.
type RPCID struct {
	json.RawMessage
}

func (id *RPCID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return ErrInvalidRPCID
	}
	id.RawMessage = append([]byte(nil), data...)
	return nil
}

func (id RPCID) MarshalJSON() ([]byte, error) {
	if len(id.RawMessage) == 0 {
		return []byte("null"), nil
	}
	return id.RawMessage, nil
}

// IsAbsent is true for JSON-RPC notifications, which carry no ID.
func (id *RPCID) IsAbsent() bool {
	return id == nil || len(id.RawMessage) == 0
}

// IsNull is true for a request that carried an explicit null ID. Such a
// request is answered, unlike a notification.
func (id *RPCID) IsNull() bool {
	return id != nil && bytes.Equal(bytes.TrimSpace(id.RawMessage), []byte("null"))
}

func (id *RPCID) IsAbsentOrNull() bool {
	return id.IsAbsent() || id.IsNull()
}

var NullRPCID = RPCID{RawMessage: []byte("null")}

type RequestObject struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RPCID          `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// UnmarshalJSON keeps "id": null distinct from a missing id. encoding/json
// leaves a pointer nil on a JSON null without consulting RPCID.
func (r *RequestObject) UnmarshalJSON(data []byte) error {
	type plain RequestObject
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	if p.ID == nil {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return err
		}
		if raw, ok := fields["id"]; ok && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			id := NullRPCID
			p.ID = &id
		}
	}

	*r = RequestObject(p)
	return nil
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// ResponseErrorObject exists for sending errors, so we can omit result from
// the response, but so nil responses are still returned when using the main
// ResponseObject.
type ResponseErrorObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      RPCID        `json:"id"`
	Error   *ErrorObject `json:"error"`
}
