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

package fake

import (
	"context"
	"io"
	"sync"

	"github.com/axiros/gridfs-fuse/backend"
)

// Store is an in-memory stand-in for backend.Store. Each id's bytes live
// in a plain slice; NewFile appends to it until Close, matching the
// append-only write model the production gridfs.Bucket enforces.
type Store struct {
	mu   sync.Mutex
	data map[int64][]byte
}

// NewStore returns an empty fake store.
func NewStore() *Store {
	return &Store{data: map[int64][]byte{}}
}

func (s *Store) NewFile(ctx context.Context, id int64, filename []byte) (backend.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = []byte{}
	return &storeWriter{store: s, id: id}, nil
}

func (s *Store) Open(ctx context.Context, id int64) (backend.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.data[id]
	if !ok {
		return nil, backend.ErrNoSuchObject
	}
	return &storeReader{content: content}, nil
}

func (s *Store) Length(ctx context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.data[id]
	if !ok {
		return 0, backend.ErrNoSuchObject
	}
	return int64(len(content)), nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return backend.ErrNoSuchObject
	}
	delete(s.data, id)
	return nil
}

type storeWriter struct {
	store    *Store
	id       int64
	position int64
}

func (w *storeWriter) Write(p []byte) (int, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.data[w.id] = append(w.store.data[w.id], p...)
	w.position += int64(len(p))
	return len(p), nil
}

func (w *storeWriter) Close() error {
	return nil
}

func (w *storeWriter) Position() int64 {
	return w.position
}

type storeReader struct {
	content  []byte
	position int64
}

func (r *storeReader) Seek(offset int64) error {
	r.position = offset
	return nil
}

func (r *storeReader) Read(p []byte) (int, error) {
	if r.position >= int64(len(r.content)) {
		return 0, io.EOF
	}
	n := copy(p, r.content[r.position:])
	r.position += int64(n)
	return n, nil
}

func (r *storeReader) Length() int64 {
	return int64(len(r.content))
}

func (r *storeReader) Close() error {
	return nil
}
