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

package methods

import (
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/api/models/requests"
	"github.com/scalestation/scalestation-core/pkg/service/state"
)

// StatusResponse builds the status payload shared by the WebSocket method
// and the REST endpoint.
func StatusResponse(st *state.State, phase requests.PhaseFunc) models.StatusResponse {
	snap := st.Snapshot()
	resp := models.StatusResponse{
		WeightGrams:    snap.WeightGrams,
		ScaleConnected: snap.ScaleConnected,
		AuxConnected:   snap.AuxConnected,
	}
	if phase != nil {
		resp.Phase = phase()
	}
	return resp
}

func HandleStatus(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	return StatusResponse(env.State, env.Phase), nil
}
