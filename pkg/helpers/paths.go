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

package helpers

import (
	"os"
	"path/filepath"

	"github.com/scalestation/scalestation-core/pkg/config"
)

func ExeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}

	return filepath.Dir(exe)
}

// HasUserDir reports whether a "user" directory sits next to the binary (or
// next to the path in the app env var). When present it holds config and
// logs for a portable install.
func HasUserDir() (string, bool) {
	exePath := os.Getenv(config.AppEnv)
	if exePath == "" {
		var err error
		exePath, err = os.Executable()
		if err != nil {
			return "", false
		}
	}

	userDir := filepath.Join(filepath.Dir(exePath), config.UserDir)
	info, err := os.Stat(userDir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return userDir, true
}

// ConfigDir is where config.toml lives.
func ConfigDir() string {
	if v, ok := HasUserDir(); ok {
		return v
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, config.AppName)
	}
	return filepath.Join(os.TempDir(), config.AppName)
}

func LogDir() string {
	if v, ok := HasUserDir(); ok {
		return filepath.Join(v, "logs")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, config.AppName, "logs")
	}
	return filepath.Join(os.TempDir(), config.AppName, "logs")
}
