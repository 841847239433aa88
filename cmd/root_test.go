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
	"context"
	"testing"

	"github.com/axiros/gridfs-fuse/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdRejectsPositionalArgs(t *testing.T) {
	rootCmd.SetArgs([]string{"some-arg"})
	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestRootCmdRequiresMountPoint(t *testing.T) {
	require.NoError(t, rootCmd.Flags().Set("mount-point", ""))
	rootCmd.SetArgs([]string{"--mongodb-uri=" + cfg.DefaultMongoDBURI})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mount-point")
}

func TestRootCmdBindsFlagsIntoMountConfig(t *testing.T) {
	var seen cfg.Config
	original := mountFunc
	mountFunc = func(_ context.Context, c *cfg.Config) error {
		seen = *c
		return nil
	}
	defer func() { mountFunc = original }()

	rootCmd.SetArgs([]string{
		"--mongodb-uri=mongodb://db.example.com:27017",
		"--database=mydb",
		"--mount-point=/mnt/gridfs",
		"--log-level=DEBUG",
	})
	require.NoError(t, rootCmd.Execute())

	assert.Equal(t, "mongodb://db.example.com:27017", seen.MongoDBURI)
	assert.Equal(t, "mydb", seen.Database)
	assert.Equal(t, "/mnt/gridfs", string(seen.MountPoint))
	assert.Equal(t, cfg.DebugLogSeverity, seen.Logging.Severity)
}
