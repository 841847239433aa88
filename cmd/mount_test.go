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
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetFuseMountConfigAlwaysSetsDefaultPermissions(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mountCfg := getFuseMountConfig("mydb", nil, log)

	assert.Equal(t, "gridfs_fuse", mountCfg.FSName)
	assert.Equal(t, "mydb", mountCfg.VolumeName)
	assert.Equal(t, "gridfs_fuse", mountCfg.Options["fsname"])
	_, ok := mountCfg.Options["default_permissions"]
	assert.True(t, ok)
}

func TestGetFuseMountConfigDebugLoggerFollowsEnvVar(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Setenv("GRIDFS_FUSE_DEBUG", "")
	assert.Nil(t, getFuseMountConfig("mydb", nil, log).DebugLogger)

	t.Setenv("GRIDFS_FUSE_DEBUG", "1")
	assert.NotNil(t, getFuseMountConfig("mydb", nil, log).DebugLogger)
}

func TestGetFuseMountConfigForwardsFuseOptions(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mountCfg := getFuseMountConfig("mydb", []string{"allow_other", "uid=1000"}, log)

	_, ok := mountCfg.Options["allow_other"]
	assert.True(t, ok)
	assert.Equal(t, "1000", mountCfg.Options["uid"])
}
