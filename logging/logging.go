// Copyright 2024 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging builds the process-wide structured logger. It is
// initialized once during startup and handed to every component as an
// explicit constructor argument; nothing in this module reaches for a
// package-level logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/axiros/gridfs-fuse/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// CriticalLevel sits above slog's built-in levels so the spec's five-level
// severity set (DEBUG, INFO, WARNING, ERROR, CRITICAL) maps onto slog
// without collapsing ERROR and CRITICAL together.
const CriticalLevel = slog.Level(12)

// New builds a logger at the severity named by conf.Severity. When
// conf.FilePath is set, output is written through a rotating file sink
// sized by conf.LogRotate; otherwise it goes to stderr.
func New(conf cfg.LoggingConfig) *slog.Logger {
	var w io.Writer = os.Stderr
	if conf.FilePath != "" {
		w = &lumberjack.Logger{
			Filename:   string(conf.FilePath),
			MaxSize:    conf.LogRotate.MaxFileSizeMb,
			MaxBackups: conf.LogRotate.BackupFileCount,
			Compress:   conf.LogRotate.Compress,
		}
	}

	level := levelFromSeverity(conf.Severity)
	if DebugEnvSet() {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == CriticalLevel {
					a.Value = slog.StringValue("CRITICAL")
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

func levelFromSeverity(s cfg.LogSeverity) slog.Level {
	switch s {
	case cfg.DebugLogSeverity:
		return slog.LevelDebug
	case cfg.WarningLogSeverity:
		return slog.LevelWarn
	case cfg.ErrorLogSeverity:
		return slog.LevelError
	case cfg.CriticalLogSeverity:
		return CriticalLevel
	default:
		return slog.LevelInfo
	}
}

// DebugEnvSet reports whether GRIDFS_FUSE_DEBUG is set to a truthy value.
func DebugEnvSet() bool {
	v, ok := os.LookupEnv(cfg.DebugEnvVar)
	if !ok {
		return false
	}
	switch v {
	case "", "0", "false", "False", "FALSE":
		return false
	default:
		return true
	}
}
