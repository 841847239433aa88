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

package backend

import "errors"

// ErrNotFound is returned by FindOne when no document matches the query.
var ErrNotFound = errors.New("backend: no matching document")

// ErrDuplicateKey is returned by InsertOne when it violates a unique
// index, distinguished from other insert failures per the backend
// adapter contract.
var ErrDuplicateKey = errors.New("backend: duplicate key")

// ErrNoSuchObject is returned by Store.Open when no chunked object exists
// for the given id, distinguished from I/O failures.
var ErrNoSuchObject = errors.New("backend: no such object")
