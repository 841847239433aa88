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

package backend_test

import (
	"context"
	"testing"

	"github.com/axiros/gridfs-fuse/backend"
	"github.com/axiros/gridfs-fuse/backend/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRunMigrations_RewritesLegacyFilenameAndTimestamps(t *testing.T) {
	meta := fake.NewCollection()
	files := fake.NewCollection()
	require.NoError(t, meta.InsertOne(context.Background(), bson.M{
		"_id":      int64(2),
		"filename": "legacy-name.txt",
		"mtime":    float64(1700000000),
	}))

	require.NoError(t, backend.RunMigrations(context.Background(), meta, files, discardLogger()))

	var doc bson.M
	require.NoError(t, meta.FindOne(context.Background(), bson.M{"_id": int64(2)}, &doc))
	assert.Equal(t, primitive.Binary{Data: []byte("legacy-name.txt")}, doc["filename"])
	assert.Equal(t, int64(1700000000*1e6), doc["mtime_ns"])
	assert.Nil(t, doc["mtime"])
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	meta := fake.NewCollection()
	files := fake.NewCollection()

	require.NoError(t, backend.RunMigrations(context.Background(), meta, files, discardLogger()))
	require.NoError(t, backend.RunMigrations(context.Background(), meta, files, discardLogger()))

	var v struct {
		Value string `bson:"value"`
	}
	require.NoError(t, meta.FindOne(context.Background(), bson.M{"_id": "version"}, &v))
	assert.Equal(t, backend.CurrentSchemaVersion, v.Value)
}

func TestRunMigrations_LeavesCurrentDocumentsUntouched(t *testing.T) {
	meta := fake.NewCollection()
	files := fake.NewCollection()
	require.NoError(t, meta.InsertOne(context.Background(), bson.M{
		"_id":      int64(3),
		"filename": primitive.Binary{Data: []byte("already-migrated")},
		"mtime_ns": int64(9000),
	}))

	require.NoError(t, backend.RunMigrations(context.Background(), meta, files, discardLogger()))

	var doc bson.M
	require.NoError(t, meta.FindOne(context.Background(), bson.M{"_id": int64(3)}, &doc))
	assert.Equal(t, int64(9000), doc["mtime_ns"])
}
