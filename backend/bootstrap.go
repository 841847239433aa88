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
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RetryWritesMinVersion is the lowest MongoDB featureCompatibilityVersion
// known to support retryable writes, ported from the original implementation's
// RETRY_WRITES_MIN_VERSION check (MongoDB 3.6).
const RetryWritesMinVersion = "3.6"

// Bootstrap ensures the inode allocator document, the root inode
// document, and the (parent_inode, filename) unique index all exist,
// then runs schema migrations over meta and filesRaw. It is safe to call
// on every startup.
func Bootstrap(ctx context.Context, meta, filesRaw Collection, log *slog.Logger) error {
	if err := ensureNextInodeDoc(ctx, meta); err != nil {
		return err
	}
	if err := ensureRootInode(ctx, meta); err != nil {
		return err
	}
	if err := meta.CreateUniqueIndex(ctx, "parent_inode", "filename"); err != nil {
		return err
	}
	return RunMigrations(ctx, meta, filesRaw, log)
}

func ensureNextInodeDoc(ctx context.Context, meta Collection) error {
	err := meta.InsertOne(ctx, nextInodeDoc{ID: nextInodeDocID, Value: RootInodeID + 1})
	if errors.Is(err, ErrDuplicateKey) {
		return nil
	}
	return err
}

func ensureRootInode(ctx context.Context, meta Collection) error {
	now := time.Now().UnixNano()
	root := &Entry{
		Inode:       RootInodeID,
		ParentInode: RootInodeID,
		Filename:    []byte("/"),
		Mode:        RootDirMode,
		AtimeNs:     now,
		MtimeNs:     now,
		CtimeNs:     now,
		Childs:      []ChildRef{},
	}
	err := meta.InsertOne(ctx, root)
	if errors.Is(err, ErrDuplicateKey) {
		return nil
	}
	return err
}

// CheckRetryableWrites runs the admin-database compatibility check the
// original implementation performs before deciding whether to rely on
// the driver's retryable-writes facility, logging a warning if the
// deployment predates it.
func CheckRetryableWrites(ctx context.Context, client *mongo.Client, log *slog.Logger) error {
	var result bson.M
	err := client.Database("admin").RunCommand(ctx, bson.D{
		{Key: "getParameter", Value: 1},
		{Key: "featureCompatibilityVersion", Value: 1},
	}).Decode(&result)
	if err != nil {
		log.Warn("could not determine backend feature compatibility version; assuming retryable writes are unsupported", "error", err)
		return nil
	}

	fcv, _ := result["featureCompatibilityVersion"].(bson.M)
	version, _ := fcv["version"].(string)
	if version == "" || version < RetryWritesMinVersion {
		log.Warn("backend compatibility level does not support retryable writes; writes will not be retried on transient failures", "featureCompatibilityVersion", version)
	}
	return nil
}
