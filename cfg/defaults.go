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

const (
	// DefaultMongoDBURI is used when --mongodb-uri is not supplied.
	DefaultMongoDBURI = "mongodb://127.0.0.1:27017"

	// DefaultDatabase is used when --database is not supplied.
	DefaultDatabase = "gridfs_fuse"

	// DefaultLogSeverity is used when --log-level is not supplied.
	DefaultLogSeverity = InfoLogSeverity

	// DefaultMetadataCollection is the metadata collection name within Database.
	DefaultMetadataCollection = "metadata"

	// DefaultChunkedStorePrefix is the GridFS bucket name ("fs" yields fs.files/fs.chunks).
	DefaultChunkedStorePrefix = "fs"
)

// GetDefaultLoggingConfig returns the default configuration that is to be used
// during application startup, before the provided configuration has been
// parsed.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: DefaultLogSeverity,
		LogRotate: LogRotateLoggingConfig{
			BackupFileCount: 10,
			Compress:        true,
			MaxFileSizeMb:   512,
		},
	}
}
