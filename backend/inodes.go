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
)

// RootInodeID is the fixed, well-known inode of the mount's root
// directory, matching the conventional root inode number of Unix
// filesystems.
const RootInodeID int64 = 1

const nextInodeDocID = "next_inode"

type nextInodeDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// AllocateInode atomically increments the next_inode document and returns
// the inode it held before the increment -- the newly allocated inode.
func AllocateInode(ctx context.Context, meta Collection) (int64, error) {
	var before nextInodeDoc
	err := meta.FindOneAndUpdate(ctx,
		bson.M{"_id": nextInodeDocID},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		&before,
	)
	if err != nil {
		return 0, err
	}
	return before.Value, nil
}

// GetEntry fetches the metadata document for inode. Returns ErrNotFound
// if it doesn't exist.
func GetEntry(ctx context.Context, meta Collection, inode int64) (*Entry, error) {
	var e Entry
	if err := meta.FindOne(ctx, bson.M{"_id": inode}, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertEntry inserts a freshly created metadata document. Returns
// ErrDuplicateKey if (parent_inode, filename) collides with an existing
// sibling.
func InsertEntry(ctx context.Context, meta Collection, e *Entry) error {
	return meta.InsertOne(ctx, e)
}

// UpdateEntry applies an arbitrary $set update to inode's document.
func UpdateEntry(ctx context.Context, meta Collection, inode int64, set bson.M) error {
	return meta.UpdateOne(ctx, bson.M{"_id": inode}, bson.M{"$set": set})
}

// DeleteEntry removes inode's metadata document outright.
func DeleteEntry(ctx context.Context, meta Collection, inode int64) error {
	return meta.DeleteOne(ctx, bson.M{"_id": inode})
}

// AddChild performs the $addToSet half of the create ordering: link
// (name, inode) into parent's childs. Must only be called after the
// child document itself has been inserted successfully.
func AddChild(ctx context.Context, meta Collection, parent int64, name []byte, inode int64) error {
	return meta.UpdateOne(ctx,
		bson.M{"_id": parent},
		bson.M{"$addToSet": bson.M{"childs": ChildRef{Filename: name, Inode: inode}}},
	)
}

// RemoveChild performs the $pull half of the delete ordering: unlink
// (name, inode) from parent's childs. Must be called before the child
// document or chunked object is deleted.
func RemoveChild(ctx context.Context, meta Collection, parent int64, name []byte, inode int64) error {
	return meta.UpdateOne(ctx,
		bson.M{"_id": parent},
		bson.M{"$pull": bson.M{"childs": ChildRef{Filename: name, Inode: inode}}},
	)
}
