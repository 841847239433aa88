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

package cmd

import (
	"fmt"
	"os"

	"github.com/axiros/gridfs-fuse/cfg"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	MountConfig   cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "gridfs-fuse --mount-point PATH",
	Short: "Mount a MongoDB-backed chunked object store as a local file system",
	Long: `gridfs-fuse is a FUSE adapter that exposes a GridFS-style chunked
object store, backed by a MongoDB deployment, as a POSIX file system.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.ValidateConfig(&MountConfig); err != nil {
			return err
		}
		return mountFunc(cmd.Context(), &MountConfig)
	},
}

// mountFunc performs the actual mount once flags have parsed and
// validated; a package variable so tests can substitute a stub and avoid
// dialing a real MongoDB deployment.
var mountFunc = runMount

// Execute runs the primary entry point, printing any error to stderr and
// exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config-file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	// Config keys are the yaml tag names; log-rotate settings have no flags,
	// so they start from the defaults.
	MountConfig = cfg.Config{Logging: cfg.GetDefaultLoggingConfig()}
	useYAMLTags := func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }
	if cfgFile == "" {
		unmarshalErr = viper.Unmarshal(&MountConfig, useYAMLTags)
		return
	}
	resolved, err := cfg.GetResolvedPath(cfgFile)
	if err != nil {
		configFileErr = fmt.Errorf("error while resolving config file path: %w", err)
		return
	}
	viper.SetConfigFile(resolved)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("error while reading config file: %w", err)
		return
	}
	unmarshalErr = viper.Unmarshal(&MountConfig, useYAMLTags)
}
