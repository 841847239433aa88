// Copyright 2024 Google LLC
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

package cfg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LogSeverity represents the logging severity and can accept one of
// "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL".
type LogSeverity string

// Constants for all supported log severities.
const (
	DebugLogSeverity    LogSeverity = "DEBUG"
	InfoLogSeverity     LogSeverity = "INFO"
	WarningLogSeverity  LogSeverity = "WARNING"
	ErrorLogSeverity    LogSeverity = "ERROR"
	CriticalLogSeverity LogSeverity = "CRITICAL"
)

// severityRanking maps each level to an integer for validation and comparison.
var severityRanking = map[LogSeverity]int{
	DebugLogSeverity:    0,
	InfoLogSeverity:     1,
	WarningLogSeverity:  2,
	ErrorLogSeverity:    3,
	CriticalLogSeverity: 4,
}

func (l *LogSeverity) UnmarshalText(text []byte) error {
	level := LogSeverity(strings.ToUpper(string(text)))
	if _, ok := severityRanking[level]; !ok {
		return fmt.Errorf("invalid log severity level: %s. Must be one of [DEBUG, INFO, WARNING, ERROR, CRITICAL]", text)
	}
	*l = level
	return nil
}

// Rank returns the integer representation of the severity rank.
// Returns -1 if the severity is unknown.
func (l LogSeverity) Rank() int {
	if rank, ok := severityRanking[l]; ok {
		return rank
	}
	return -1
}

// ResolvedPath is a filesystem path that has been made absolute relative to
// the process's working directory at the time it was unmarshaled.
type ResolvedPath string

func (p *ResolvedPath) UnmarshalText(text []byte) error {
	resolved, err := GetResolvedPath(string(text))
	if err != nil {
		return err
	}
	*p = ResolvedPath(resolved)
	return nil
}

// GetResolvedPath returns path made absolute. An empty path resolves to
// itself, since "no path configured" and "current directory" are different
// things for a required flag like --mount-point.
func GetResolvedPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", path, err)
	}
	return abs, nil
}
