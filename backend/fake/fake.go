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

// Package fake provides in-memory implementations of backend.Collection
// and backend.Store for exercising C2-C6 without a real MongoDB
// deployment.
package fake

import (
	"bytes"
	"context"
	"sync"

	"github.com/axiros/gridfs-fuse/backend"
	"go.mongodb.org/mongo-driver/bson"
)

// Collection is an in-memory stand-in for backend.Collection. Documents
// are round-tripped through bson marshal/unmarshal so it exercises the
// same encoding the real driver would.
type Collection struct {
	mu      sync.Mutex
	docs    map[interface{}]bson.M
	uniques [][]string
}

// NewCollection returns an empty fake collection.
func NewCollection() *Collection {
	return &Collection{docs: map[interface{}]bson.M{}}
}

func toBSONM(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromBSONM(m bson.M, out interface{}) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}

func matches(doc bson.M, filter bson.M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	// bson.M marshals its keys in random order, so documents are compared
	// field by field rather than byte for byte.
	if am, ok := a.(bson.M); ok {
		bm, ok := b.(bson.M)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, v := range am {
			if !valuesEqual(v, bm[k]) {
				return false
			}
		}
		return true
	}
	ab, err1 := bson.Marshal(bson.M{"v": a})
	bb, err2 := bson.Marshal(bson.M{"v": b})
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func (c *Collection) find(filter bson.M) (interface{}, bson.M, bool) {
	for id, doc := range c.docs {
		if matches(doc, filter) {
			return id, doc, true
		}
	}
	return nil, nil, false
}

func (c *Collection) FindOne(ctx context.Context, filter bson.M, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, doc, ok := c.find(filter)
	if !ok {
		return backend.ErrNotFound
	}
	return fromBSONM(doc, result)
}

func (c *Collection) violatesUnique(doc bson.M, skipID interface{}) bool {
	for _, fields := range c.uniques {
		// Like the production index, the index is sparse: a document
		// carrying none of its fields is not indexed.
		indexed := false
		for _, f := range fields {
			if _, ok := doc[f]; ok {
				indexed = true
				break
			}
		}
		if !indexed {
			continue
		}
		for id, other := range c.docs {
			if id == skipID {
				continue
			}
			same := true
			for _, f := range fields {
				if !valuesEqual(doc[f], other[f]) {
					same = false
					break
				}
			}
			if same {
				return true
			}
		}
	}
	return false
}

func (c *Collection) InsertOne(ctx context.Context, document interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := toBSONM(document)
	if err != nil {
		return err
	}
	id := doc["_id"]
	if _, exists := c.docs[id]; exists {
		return backend.ErrDuplicateKey
	}
	if c.violatesUnique(doc, nil) {
		return backend.ErrDuplicateKey
	}
	c.docs[id] = doc
	return nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update bson.M) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, doc, ok := c.find(filter)
	if !ok {
		return nil
	}
	applyUpdate(doc, update)
	c.docs[id] = doc
	return nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, _, ok := c.find(filter)
	if ok {
		delete(c.docs, id)
	}
	return nil
}

func (c *Collection) FindOneAndUpdate(ctx context.Context, filter, update bson.M, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, doc, ok := c.find(filter)
	if !ok {
		return backend.ErrNotFound
	}
	before := bson.M{}
	for k, v := range doc {
		before[k] = v
	}
	if err := fromBSONM(before, result); err != nil {
		return err
	}
	applyUpdate(doc, update)
	c.docs[id] = doc
	return nil
}

func (c *Collection) CreateUniqueIndex(ctx context.Context, fields ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uniques = append(c.uniques, fields)
	return nil
}

func (c *Collection) FindAll(ctx context.Context) ([]bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	docs := make([]bson.M, 0, len(c.docs))
	for _, doc := range c.docs {
		copyOf := bson.M{}
		for k, v := range doc {
			copyOf[k] = v
		}
		docs = append(docs, copyOf)
	}
	return docs, nil
}

// applyUpdate implements just enough of $set/$unset/$inc/$addToSet/$pull
// to exercise the production code against.
func applyUpdate(doc bson.M, update bson.M) {
	if set, ok := update["$set"].(bson.M); ok {
		for k, v := range set {
			doc[k] = v
		}
	}
	if unset, ok := update["$unset"].(bson.M); ok {
		for k := range unset {
			delete(doc, k)
		}
	}
	if inc, ok := update["$inc"].(bson.M); ok {
		for k, v := range inc {
			cur, _ := doc[k].(int64)
			delta, _ := v.(int64)
			doc[k] = cur + delta
		}
	}
	if add, ok := update["$addToSet"].(bson.M); ok {
		for k, v := range add {
			list, _ := doc[k].(bson.A)
			elem, _ := toBSONM(v)
			if !containsElem(list, elem) {
				list = append(list, elem)
			}
			doc[k] = list
		}
	}
	if pull, ok := update["$pull"].(bson.M); ok {
		for k, v := range pull {
			list, _ := doc[k].(bson.A)
			elem, _ := toBSONM(v)
			doc[k] = removeElem(list, elem)
		}
	}
}

func containsElem(list bson.A, elem bson.M) bool {
	for _, item := range list {
		if im, ok := item.(bson.M); ok && valuesEqual(im, elem) {
			return true
		}
	}
	return false
}

func removeElem(list bson.A, elem bson.M) bson.A {
	out := bson.A{}
	for _, item := range list {
		if im, ok := item.(bson.M); ok && valuesEqual(im, elem) {
			continue
		}
		out = append(out, item)
	}
	return out
}
