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

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the narrow document-store interface that every caller in
// this module is written against. The production implementation below
// wraps a *mongo.Collection; tests are written against backend/fake's
// in-memory implementation of the same interface.
type Collection interface {
	// FindOne decodes the first document matching filter into result.
	// Returns ErrNotFound if nothing matches.
	FindOne(ctx context.Context, filter bson.M, result interface{}) error

	// InsertOne inserts document. Returns ErrDuplicateKey if it violates
	// a unique index.
	InsertOne(ctx context.Context, document interface{}) error

	// UpdateOne applies update to the first document matching filter.
	UpdateOne(ctx context.Context, filter, update bson.M) error

	// DeleteOne removes the first document matching filter. Deleting
	// zero documents is not an error.
	DeleteOne(ctx context.Context, filter bson.M) error

	// FindOneAndUpdate atomically applies update to the first document
	// matching filter and decodes the document as it stood *before* the
	// update into result. Returns ErrNotFound if nothing matches.
	FindOneAndUpdate(ctx context.Context, filter, update bson.M, result interface{}) error

	// CreateUniqueIndex creates (or confirms the existence of) a sparse
	// unique index over fields, in order. Documents carrying none of the
	// fields (the reserved next_inode and version documents) are not
	// indexed, so they never collide with each other.
	CreateUniqueIndex(ctx context.Context, fields ...string) error

	// FindAll returns every document in the collection as raw bson.M,
	// used only by the startup migration scan.
	FindAll(ctx context.Context) ([]bson.M, error)
}

type mongoCollection struct {
	coll *mongo.Collection
}

// NewCollection wraps a *mongo.Collection as a Collection.
func NewCollection(coll *mongo.Collection) Collection {
	return &mongoCollection{coll: coll}
}

func (c *mongoCollection) FindOne(ctx context.Context, filter bson.M, result interface{}) error {
	err := c.coll.FindOne(ctx, filter).Decode(result)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) InsertOne(ctx context.Context, document interface{}) error {
	_, err := c.coll.InsertOne(ctx, document)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}
	return err
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter, update bson.M) error {
	_, err := c.coll.UpdateOne(ctx, filter, update)
	return err
}

func (c *mongoCollection) DeleteOne(ctx context.Context, filter bson.M) error {
	_, err := c.coll.DeleteOne(ctx, filter)
	return err
}

func (c *mongoCollection) FindOneAndUpdate(ctx context.Context, filter, update bson.M, result interface{}) error {
	// The default ReturnDocument is Before, which is exactly what inode
	// allocation needs: the pre-increment value becomes the newly
	// allocated inode.
	err := c.coll.FindOneAndUpdate(ctx, filter, update).Decode(result)
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	return err
}

func (c *mongoCollection) FindAll(ctx context.Context) ([]bson.M, error) {
	cursor, err := c.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *mongoCollection) CreateUniqueIndex(ctx context.Context, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}
