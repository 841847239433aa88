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
	"io"
	"testing"

	"github.com/axiros/gridfs-fuse/backend"
	"github.com/axiros/gridfs-fuse/backend/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteThenRead(t *testing.T) {
	store := fake.NewStore()
	w, err := store.NewFile(context.Background(), 2, []byte("greeting"))
	require.NoError(t, err)

	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = w.Write([]byte(" world"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, int64(11), w.Position())
	require.NoError(t, w.Close())

	r, err := store.Open(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(11), r.Length())

	buf := make([]byte, 11)
	readTotal := 0
	for readTotal < len(buf) {
		n, err := r.Read(buf[readTotal:])
		readTotal += n
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "hello world", string(buf[:readTotal]))
}

func TestStore_SeekThenRead(t *testing.T) {
	store := fake.NewStore()
	w, err := store.NewFile(context.Background(), 2, []byte("f"))
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := store.Open(context.Background(), 2)
	require.NoError(t, err)
	require.NoError(t, r.Seek(5))

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "567", string(buf[:n]))
}

func TestStore_OpenMissingReturnsErrNoSuchObject(t *testing.T) {
	store := fake.NewStore()
	_, err := store.Open(context.Background(), 42)
	assert.ErrorIs(t, err, backend.ErrNoSuchObject)
}

func TestStore_Delete(t *testing.T) {
	store := fake.NewStore()
	w, err := store.NewFile(context.Background(), 2, []byte("f"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, store.Delete(context.Background(), 2))

	_, err = store.Open(context.Background(), 2)
	assert.ErrorIs(t, err, backend.ErrNoSuchObject)
}

func TestStore_Length(t *testing.T) {
	store := fake.NewStore()
	w, err := store.NewFile(context.Background(), 2, []byte("f"))
	require.NoError(t, err)
	_, err = w.Write([]byte("abcde"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	length, err := store.Length(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), length)
}
