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
)

func TestCollection_InsertAndFindOne(t *testing.T) {
	coll := fake.NewCollection()
	require.NoError(t, coll.InsertOne(context.Background(), bson.M{"_id": int64(1), "value": "a"}))

	var doc bson.M
	require.NoError(t, coll.FindOne(context.Background(), bson.M{"_id": int64(1)}, &doc))
	assert.Equal(t, "a", doc["value"])
}

func TestCollection_FindOne_NotFound(t *testing.T) {
	coll := fake.NewCollection()
	var doc bson.M
	err := coll.FindOne(context.Background(), bson.M{"_id": int64(1)}, &doc)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestCollection_InsertOne_RejectsUniqueViolation(t *testing.T) {
	coll := fake.NewCollection()
	require.NoError(t, coll.CreateUniqueIndex(context.Background(), "parent_inode", "filename"))
	require.NoError(t, coll.InsertOne(context.Background(), bson.M{
		"_id": int64(1), "parent_inode": int64(1), "filename": "a",
	}))

	err := coll.InsertOne(context.Background(), bson.M{
		"_id": int64(2), "parent_inode": int64(1), "filename": "a",
	})
	assert.ErrorIs(t, err, backend.ErrDuplicateKey)
}

func TestCollection_DeleteOne(t *testing.T) {
	coll := fake.NewCollection()
	require.NoError(t, coll.InsertOne(context.Background(), bson.M{"_id": int64(1)}))

	require.NoError(t, coll.DeleteOne(context.Background(), bson.M{"_id": int64(1)}))

	var doc bson.M
	err := coll.FindOne(context.Background(), bson.M{"_id": int64(1)}, &doc)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestCollection_FindOneAndUpdate_ReturnsPreImage(t *testing.T) {
	coll := fake.NewCollection()
	require.NoError(t, coll.InsertOne(context.Background(), bson.M{"_id": "counter", "value": int64(5)}))

	var before struct {
		Value int64 `bson:"value"`
	}
	require.NoError(t, coll.FindOneAndUpdate(context.Background(),
		bson.M{"_id": "counter"},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		&before,
	))
	assert.Equal(t, int64(5), before.Value, "FindOneAndUpdate must decode the document as it stood before the update")

	var after struct {
		Value int64 `bson:"value"`
	}
	require.NoError(t, coll.FindOne(context.Background(), bson.M{"_id": "counter"}, &after))
	assert.Equal(t, int64(6), after.Value)
}

func TestCollection_FindAll(t *testing.T) {
	coll := fake.NewCollection()
	require.NoError(t, coll.InsertOne(context.Background(), bson.M{"_id": int64(1)}))
	require.NoError(t, coll.InsertOne(context.Background(), bson.M{"_id": int64(2)}))

	docs, err := coll.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}
