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

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CurrentSchemaVersion is written into the version document once
// migrations complete.
const CurrentSchemaVersion = "1.0.0"

const versionDocID = "version"

type versionDoc struct {
	ID    string `bson:"_id"`
	Value string `bson:"value"`
}

// RunMigrations rewrites legacy-shaped documents in metaRaw and
// filesRaw to the current schema: text filenames become opaque byte
// strings, and each atime/mtime/ctime field is replaced by a <name>_ns
// field holding its value multiplied by 10^6. It is idempotent -- documents already in the
// current shape are left untouched -- and safe to run on every startup.
func RunMigrations(ctx context.Context, metaRaw, filesRaw Collection, log *slog.Logger) error {
	var v versionDoc
	err := metaRaw.FindOne(ctx, bson.M{"_id": versionDocID}, &v)
	versionDocExists := true
	if errors.Is(err, ErrNotFound) {
		versionDocExists = false
	} else if err != nil {
		return err
	}
	if v.Value == CurrentSchemaVersion {
		return nil
	}

	for _, coll := range []Collection{filesRaw, metaRaw} {
		if err := migrateCollection(ctx, coll, log); err != nil {
			return err
		}
	}

	if !versionDocExists {
		return metaRaw.InsertOne(ctx, versionDoc{ID: versionDocID, Value: CurrentSchemaVersion})
	}
	return metaRaw.UpdateOne(ctx,
		bson.M{"_id": versionDocID},
		bson.M{"$set": bson.M{"value": CurrentSchemaVersion}},
	)
}

func migrateCollection(ctx context.Context, coll Collection, log *slog.Logger) error {
	docs, err := coll.FindAll(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		set, unset := legacyFieldRewrites(doc)
		if len(set) == 0 && len(unset) == 0 {
			continue
		}
		update := bson.M{}
		if len(set) > 0 {
			update["$set"] = set
		}
		if len(unset) > 0 {
			update["$unset"] = unset
		}
		if err := coll.UpdateOne(ctx, bson.M{"_id": doc["_id"]}, update); err != nil {
			log.Warn("migration failed for document", "id", doc["_id"], "error", err)
			return err
		}
	}
	return nil
}

// legacyFieldRewrites inspects one raw document and returns the $set/
// $unset fragments needed to bring it current, or two empty maps if it
// already is.
func legacyFieldRewrites(doc bson.M) (set, unset bson.M) {
	set, unset = bson.M{}, bson.M{}

	if name, ok := doc["filename"].(string); ok {
		set["filename"] = primitive.Binary{Data: []byte(name)}
	}

	for _, field := range []string{"atime", "mtime", "ctime"} {
		raw, present := doc[field]
		if !present {
			continue
		}
		seconds, ok := toFloat64(raw)
		if !ok {
			continue
		}
		set[field+"_ns"] = int64(seconds * 1e6)
		unset[field] = ""
	}

	return set, unset
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
