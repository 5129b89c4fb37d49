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

type WeightReadingResponse struct {
	Grams int64 `json:"grams"`
}

type ComponentStatusResponse struct {
	ScaleConnected bool `json:"scale_connected"`
	AuxConnected   bool `json:"aux_connected"`
}

type StatusResponse struct {
	Phase          string `json:"phase"`
	WeightGrams    int64  `json:"weight_grams"`
	ScaleConnected bool   `json:"scale_connected"`
	AuxConnected   bool   `json:"aux_connected"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	DeviceID string `json:"device_id"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
