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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeArgsForwardsUnrecognizedOptions(t *testing.T) {
	args, err := makeArgs("mongodb://db.example.com", "/mnt/gridfs", []option{
		{Name: "allow_other"},
		{Name: "uid", Value: "1000"},
	})

	require.NoError(t, err)
	assert.Contains(t, args, "--fuse-option=allow_other")
	assert.Contains(t, args, "--fuse-option=uid=1000")
}

func TestMakeArgsTranslatesRecognizedOptions(t *testing.T) {
	args, err := makeArgs("mongodb://db.example.com", "/mnt/gridfs", []option{
		{Name: "debug"},
		{Name: "log_level", Value: "WARNING"},
	})

	require.NoError(t, err)
	assert.Contains(t, args, "--log-level=DEBUG")
	assert.Contains(t, args, "--log-level=WARNING")
	assert.NotContains(t, args, "--fuse-option=debug")
}

func TestMakeArgsRejectsUnsupportedWorkerCount(t *testing.T) {
	_, err := makeArgs("mongodb://db.example.com", "/mnt/gridfs", []option{
		{Name: "workers", Value: "4"},
	})
	assert.Error(t, err)
}

func TestSplitURISeparatesDatabaseSuffix(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantURI    string
		wantDBName string
	}{
		{
			name:       "no suffix",
			uri:        "mongodb://db.example.com:27017",
			wantURI:    "mongodb://db.example.com:27017",
			wantDBName: "",
		},
		{
			name:       "with database suffix",
			uri:        "mongodb://db.example.com:27017/mydb.files",
			wantURI:    "mongodb://db.example.com:27017",
			wantDBName: "mydb",
		},
		{
			name:       "bare IPv4 host is not mistaken for a suffix",
			uri:        "mongodb://127.0.0.1:27017",
			wantURI:    "mongodb://127.0.0.1:27017",
			wantDBName: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotURI, gotDB := splitURI(tc.uri)
			assert.Equal(t, tc.wantURI, gotURI)
			assert.Equal(t, tc.wantDBName, gotDB)
		})
	}
}

func TestParseArgsRequiresExactlyTwoPositionalArgs(t *testing.T) {
	_, _, err := parseArgs([]string{"only-one"})
	assert.Error(t, err)

	uri, mountPoint, err := parseArgs([]string{"mongodb://db.example.com", "/mnt/gridfs"})
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db.example.com", uri)
	assert.Equal(t, "/mnt/gridfs", mountPoint)
}
