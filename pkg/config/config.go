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

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scalestation/scalestation-core/pkg/helpers/syncutil"
	"github.com/spf13/afero"
)

const (
	SchemaVersion = 1
	CfgEnv        = "SCALESTATION_CFG"

	// Overrides kept compatible with the station's .env files.
	ScalePathEnv     = "SERIAL_PORT_BASCULA"
	ScaleBaudRateEnv = "SERIAL_BAUDRATE"
	APIPortEnv       = "PORT"
	APIHostEnv       = "HOST"
)

type Values struct {
	Scale          Scale          `toml:"scale"`
	Printer        Printer        `toml:"printer,omitempty"`
	Service        Service        `toml:"service,omitempty"`
	ErrorReporting ErrorReporting `toml:"error_reporting,omitempty"`
	ConfigSchema   int            `toml:"config_schema"`
	DebugLogging   bool           `toml:"debug_logging"`
}

type ErrorReporting struct {
	DSN     string `toml:"dsn,omitempty" validate:"omitempty,url"`
	Enabled bool   `toml:"enabled"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Scale: Scale{
		BaudRate:       DefaultScaleBaudRate,
		ReadTimeout:    DefaultScaleReadTimeout.String(),
		ReconnectDelay: DefaultScaleReconnectDelay.String(),
		Encoding:       DefaultScaleEncoding,
	},
}

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	return NewConfigWithFs(afero.NewOsFs(), configDir, defaults)
}

// NewConfigWithFs loads the config file from configDir on the given
// filesystem, writing a default config first if none exists.
//
//nolint:gocritic // config struct copied for immutability
func NewConfigWithFs(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !exists {
		log.Info().Msg("saving new default config to disk")

		err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err = cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Path returns the location of the loaded config file.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	applyEnvOverrides(&newVals)

	if err := Validate(&newVals); err != nil {
		return err
	}

	c.vals = newVals

	return nil
}

// applyEnvOverrides lets deployments keep configuring the serial port and
// listen address through the environment. Invalid numbers are ignored.
func applyEnvOverrides(vals *Values) {
	if v, ok := os.LookupEnv(ScalePathEnv); ok && v != "" {
		vals.Scale.Path = v
	}

	if v, ok := os.LookupEnv(ScaleBaudRateEnv); ok && v != "" {
		baud, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Str("env", ScaleBaudRateEnv).Msgf("invalid baud rate: %s", v)
		} else {
			vals.Scale.BaudRate = baud
		}
	}

	if v, ok := os.LookupEnv(APIPortEnv); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Warn().Str("env", APIPortEnv).Msgf("invalid api port: %s", v)
		} else {
			vals.Service.APIPort = &port
		}
	}

	if v, ok := os.LookupEnv(APIHostEnv); ok && v != "" {
		vals.Service.APIHost = v
	}
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	// generate a device id if one doesn't exist
	if c.vals.Service.DeviceID == "" {
		newID := uuid.New().String()
		c.vals.Service.DeviceID = newID
		log.Info().Msgf("generated new device id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	setLogLevel(enabled)
}

func setLogLevel(debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func (c *Instance) ErrorReporting() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.Enabled
}

func (c *Instance) ErrorReportingDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.DSN
}
