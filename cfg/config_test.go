// Copyright 2025 Google LLC
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
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlagsRegistersDefaults(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)

	err := BindFlags(fs)

	require.NoError(t, err)
	assert.Equal(t, DefaultMongoDBURI, viper.GetString("mongodb-uri"))
	assert.Equal(t, DefaultDatabase, viper.GetString("database"))
	assert.Equal(t, string(DefaultLogSeverity), viper.GetString("logging.severity"))
	assert.Equal(t, "", viper.GetString("mount-point"))
}

func TestBindFlagsHonorsOverrides(t *testing.T) {
	viper.Reset()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))

	require.NoError(t, fs.Parse([]string{
		"--mongodb-uri=mongodb://db.example.com:27017",
		"--database=mydb",
		"--mount-point=/mnt/gridfs",
		"--log-level=DEBUG",
		"-o", "allow_other",
		"-o", "uid=1000",
	}))

	assert.Equal(t, "mongodb://db.example.com:27017", viper.GetString("mongodb-uri"))
	assert.Equal(t, "mydb", viper.GetString("database"))
	assert.Equal(t, "/mnt/gridfs", viper.GetString("mount-point"))
	assert.Equal(t, "DEBUG", viper.GetString("logging.severity"))
	assert.Equal(t, []string{"allow_other", "uid=1000"}, viper.GetStringSlice("fuse-options"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid",
			config: Config{
				MongoDBURI: DefaultMongoDBURI,
				Database:   DefaultDatabase,
				MountPoint: "/mnt/gridfs",
				Logging:    GetDefaultLoggingConfig(),
			},
			wantErr: false,
		},
		{
			name: "missing mount point",
			config: Config{
				MongoDBURI: DefaultMongoDBURI,
				Database:   DefaultDatabase,
				Logging:    GetDefaultLoggingConfig(),
			},
			wantErr: true,
		},
		{
			name: "missing uri",
			config: Config{
				Database:   DefaultDatabase,
				MountPoint: "/mnt/gridfs",
				Logging:    GetDefaultLoggingConfig(),
			},
			wantErr: true,
		},
		{
			name: "bad severity",
			config: Config{
				MongoDBURI: DefaultMongoDBURI,
				Database:   DefaultDatabase,
				MountPoint: "/mnt/gridfs",
				Logging:    LoggingConfig{Severity: "VERBOSE", LogRotate: GetDefaultLoggingConfig().LogRotate},
			},
			wantErr: true,
		},
		{
			name: "bad log rotate",
			config: Config{
				MongoDBURI: DefaultMongoDBURI,
				Database:   DefaultDatabase,
				MountPoint: "/mnt/gridfs",
				Logging:    LoggingConfig{Severity: InfoLogSeverity, LogRotate: LogRotateLoggingConfig{MaxFileSizeMb: 0}},
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(&tc.config)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogSeverityRank(t *testing.T) {
	assert.True(t, DebugLogSeverity.Rank() < InfoLogSeverity.Rank())
	assert.True(t, InfoLogSeverity.Rank() < WarningLogSeverity.Rank())
	assert.True(t, WarningLogSeverity.Rank() < ErrorLogSeverity.Rank())
	assert.True(t, ErrorLogSeverity.Rank() < CriticalLogSeverity.Rank())
	assert.Equal(t, -1, LogSeverity("bogus").Rank())
}

func TestLogSeverityUnmarshalText(t *testing.T) {
	var s LogSeverity
	assert.NoError(t, s.UnmarshalText([]byte("warning")))
	assert.Equal(t, WarningLogSeverity, s)

	assert.Error(t, s.UnmarshalText([]byte("verbose")))
}
