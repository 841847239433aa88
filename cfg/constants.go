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

// Names of the mount-style `-o` options recognized by the secondary entry
// point. Every other option the user passes is forwarded to FUSE verbatim.
const (
	MountOptionDebug    = "debug"
	MountOptionForeground = "foreground"
	MountOptionWorkers  = "workers"
	MountOptionSingle   = "single"
	MountOptionLogLevel = "log_level"
	MountOptionLogFile  = "log_file"
)

// DebugEnvVar elevates the core logger to DEBUG when set to any truthy value.
const DebugEnvVar = "GRIDFS_FUSE_DEBUG"
