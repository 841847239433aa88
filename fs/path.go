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

package fs

import (
	"bytes"
	"context"

	"github.com/axiros/gridfs-fuse/backend"
)

// fullPath walks entry's parent chain up to the root inode, prepending
// each leaf name, and joins the result with '/'. The backend is passed in
// explicitly on every call; entries carry no back-reference to it.
func fullPath(ctx context.Context, meta backend.Collection, entry *backend.Entry) ([]byte, error) {
	if entry.Inode == backend.RootInodeID {
		return []byte("/"), nil
	}

	var segments [][]byte
	cur := entry
	for cur.Inode != backend.RootInodeID {
		segments = append(segments, cur.Filename)
		parent, err := backend.GetEntry(ctx, meta, cur.ParentInode)
		if err != nil {
			return nil, err
		}
		cur = parent
	}

	var buf bytes.Buffer
	for i := len(segments) - 1; i >= 0; i-- {
		buf.WriteByte('/')
		buf.Write(segments[i])
	}
	return buf.Bytes(), nil
}
