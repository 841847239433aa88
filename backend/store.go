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
	"io"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// Writer is a handle-scoped, append-only stream into the chunked object
// store. Position reports the number of bytes written so far, which is
// also the only offset the next Write call may use.
type Writer interface {
	Write(p []byte) (int, error)
	Close() error
	Position() int64
}

// Reader is a handle-scoped stream out of the chunked object store.
type Reader interface {
	Seek(offset int64) error
	Read(p []byte) (int, error)
	Length() int64
	Close() error
}

// Store is the narrow chunked-object-store interface. The production
// implementation wraps a *gridfs.Bucket.
type Store interface {
	NewFile(ctx context.Context, id int64, filename []byte) (Writer, error)
	Open(ctx context.Context, id int64) (Reader, error)
	Length(ctx context.Context, id int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type gridfsStore struct {
	bucket *gridfs.Bucket
}

// NewStore wraps a *gridfs.Bucket as a Store.
func NewStore(bucket *gridfs.Bucket) Store {
	return &gridfsStore{bucket: bucket}
}

func (s *gridfsStore) NewFile(ctx context.Context, id int64, filename []byte) (Writer, error) {
	stream, err := s.bucket.OpenUploadStreamWithID(ctx, primitive.Int64(id), string(filename))
	if err != nil {
		return nil, err
	}
	return &gridfsWriter{stream: stream}, nil
}

func (s *gridfsStore) Open(ctx context.Context, id int64) (Reader, error) {
	stream, err := s.bucket.OpenDownloadStream(ctx, primitive.Int64(id))
	if err != nil {
		if err == gridfs.ErrFileNotFound {
			return nil, ErrNoSuchObject
		}
		return nil, err
	}
	return &gridfsReader{bucket: s.bucket, id: id, stream: stream, length: stream.GetFile().Length}, nil
}

func (s *gridfsStore) Length(ctx context.Context, id int64) (int64, error) {
	cursor, err := s.bucket.Find(ctx, bson.M{"_id": primitive.Int64(id)})
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)
	if !cursor.Next(ctx) {
		return 0, ErrNoSuchObject
	}
	var file struct {
		Length int64 `bson:"length"`
	}
	if err := cursor.Decode(&file); err != nil {
		return 0, err
	}
	return file.Length, nil
}

func (s *gridfsStore) Delete(ctx context.Context, id int64) error {
	err := s.bucket.Delete(ctx, primitive.Int64(id))
	if err == gridfs.ErrFileNotFound {
		return ErrNoSuchObject
	}
	return err
}

// UpdateFilename rewrites the filename field of the fs.files document for
// id to filename, without touching the chunked content. Rename uses this
// to re-stamp the full path after moving an inode, since Store itself
// exposes no rename-of-filename operation -- only filesRaw, the raw
// Collection view of fs.files, can reach that field.
func UpdateFilename(ctx context.Context, filesRaw Collection, id int64, filename []byte) error {
	return filesRaw.UpdateOne(ctx,
		bson.M{"_id": primitive.Int64(id)},
		bson.M{"$set": bson.M{"filename": string(filename)}},
	)
}

type gridfsWriter struct {
	stream   *gridfs.UploadStream
	position int64
}

func (w *gridfsWriter) Write(p []byte) (int, error) {
	n, err := w.stream.Write(p)
	w.position += int64(n)
	return n, err
}

func (w *gridfsWriter) Close() error {
	return w.stream.Close()
}

func (w *gridfsWriter) Position() int64 {
	return w.position
}

// gridfsReader wraps a download stream and adds the arbitrary-offset Seek
// the spec requires. The driver's DownloadStream is read-forward only, so
// seeking backward reopens the stream from the start and discards bytes
// up to the requested offset; seeking forward from the current position
// discards bytes the same way. Both are uncommon on the append-only,
// read-after-close access pattern this filesystem drives (the kernel
// mostly reads sequentially), so the cost is acceptable.
type gridfsReader struct {
	bucket   *gridfs.Bucket
	id       int64
	stream   *gridfs.DownloadStream
	length   int64
	position int64
}

func (r *gridfsReader) Seek(offset int64) error {
	if offset == r.position {
		return nil
	}
	if offset < r.position {
		if err := r.stream.Close(); err != nil {
			return err
		}
		stream, err := r.bucket.OpenDownloadStream(context.Background(), primitive.Int64(r.id))
		if err != nil {
			return err
		}
		r.stream = stream
		r.position = 0
	}
	discard := offset - r.position
	buf := make([]byte, 32*1024)
	for discard > 0 {
		n := int64(len(buf))
		if discard < n {
			n = discard
		}
		read, err := r.stream.Read(buf[:n])
		r.position += int64(read)
		discard -= int64(read)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
	}
	return nil
}

func (r *gridfsReader) Read(p []byte) (int, error) {
	n, err := r.stream.Read(p)
	r.position += int64(n)
	return n, err
}

func (r *gridfsReader) Length() int64 {
	return r.length
}

func (r *gridfsReader) Close() error {
	return r.stream.Close()
}
