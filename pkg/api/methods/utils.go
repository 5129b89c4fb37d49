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
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/api/models"
	"github.com/scalestation/scalestation-core/pkg/api/models/requests"
	"github.com/scalestation/scalestation-core/pkg/config"
)

func HandleVersion(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received version request")
	return models.VersionResponse{
		Version:  config.AppVersion,
		DeviceID: env.Config.DeviceID(),
	}, nil
}

func HandleHealthCheck(_ requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	return models.HealthResponse{
		Status: "ok",
	}, nil
}
