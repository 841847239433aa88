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

package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved configuration for a mount, after flags and
// an optional config file have been merged by viper. Environment variables
// are not read.
type Config struct {
	MongoDBURI string `yaml:"mongodb-uri"`

	Database string `yaml:"database"`

	MountPoint ResolvedPath `yaml:"mount-point"`

	// FuseOptions carries "name=value" or bare "name" mount options this
	// CLI does not itself interpret; they are forwarded verbatim into the
	// FUSE mount's option set (e.g. "allow_other", "uid=1000").
	FuseOptions []string `yaml:"fuse-options"`

	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity"`

	FilePath ResolvedPath `yaml:"file-path"`

	LogRotate LogRotateLoggingConfig `yaml:"log-rotate"`
}

type LogRotateLoggingConfig struct {
	MaxFileSizeMb int `yaml:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count"`

	Compress bool `yaml:"compress"`
}

// BindFlags registers the primary entry point's flags and binds each one
// into viper under the matching config key, so the same value can arrive
// via flag or config file.
func BindFlags(flagSet *pflag.FlagSet) error {
	var err error

	flagSet.StringP("mongodb-uri", "", DefaultMongoDBURI, "URI of the MongoDB deployment backing the filesystem.")

	err = viper.BindPFlag("mongodb-uri", flagSet.Lookup("mongodb-uri"))
	if err != nil {
		return err
	}

	flagSet.StringP("database", "", DefaultDatabase, "Name of the database holding the metadata collection and chunked object store.")

	err = viper.BindPFlag("database", flagSet.Lookup("database"))
	if err != nil {
		return err
	}

	flagSet.StringP("mount-point", "", "", "Path at which to mount the filesystem. Required.")

	err = viper.BindPFlag("mount-point", flagSet.Lookup("mount-point"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-level", "", string(DefaultLogSeverity), "One of DEBUG, INFO, WARNING, ERROR, CRITICAL.")

	err = viper.BindPFlag("logging.severity", flagSet.Lookup("log-level"))
	if err != nil {
		return err
	}

	flagSet.StringP("log-file", "", "", "Path to a log file. Rotated via lumberjack; if empty, logs go to stderr.")

	err = viper.BindPFlag("logging.file-path", flagSet.Lookup("log-file"))
	if err != nil {
		return err
	}

	flagSet.StringArrayP("fuse-option", "o", nil, "Mount option to forward verbatim to FUSE, as name or name=value. May be repeated.")

	err = viper.BindPFlag("fuse-options", flagSet.Lookup("fuse-option"))
	if err != nil {
		return err
	}

	return nil
}
