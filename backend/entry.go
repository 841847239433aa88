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

// Package backend implements the narrow interface over the metadata
// collection and the chunked object store. Other packages still import
// parts of go.mongodb.org/mongo-driver: fs and backend/fake build bson
// filters and updates, and cmd connects the client and opens the GridFS
// bucket this package wraps.
package backend

// ChildRef is one (filename, inode) pair in a directory's ordered child
// list.
type ChildRef struct {
	Filename []byte `bson:"filename"`
	Inode    int64  `bson:"inode"`
}

// Entry is the plain value record for one metadata document: a directory
// or a regular file. It carries no reference back to any backend handle;
// callers that need to resolve a full path pass the backend in explicitly
// (see fullPath in package fs).
type Entry struct {
	Inode       int64      `bson:"_id"`
	ParentInode int64      `bson:"parent_inode"`
	Filename    []byte     `bson:"filename"`
	Mode        uint32     `bson:"mode"`
	UID         uint32     `bson:"uid"`
	GID         uint32     `bson:"gid"`
	AtimeNs     int64      `bson:"atime_ns"`
	MtimeNs     int64      `bson:"mtime_ns"`
	CtimeNs     int64      `bson:"ctime_ns"`
	Childs      []ChildRef `bson:"childs,omitempty"`
}

// IsDir reports whether the entry's mode carries the directory bit.
func (e *Entry) IsDir() bool {
	return e.Mode&ModeDir != 0
}

// ChildByName performs the linear scan over Childs that the original
// implementation does; directories are not expected to be large enough
// for this to matter, and it keeps the wire format a plain ordered list
// rather than a second indexed structure to keep in sync.
func (e *Entry) ChildByName(name []byte) (inode int64, ok bool) {
	for _, c := range e.Childs {
		if string(c.Filename) == string(name) {
			return c.Inode, true
		}
	}
	return 0, false
}

// File mode bits used by this system. Mode is stored as the bit pattern
// of Go's os.FileMode (ModeDir is os.ModeDir's value) so it round-trips
// into fuseops.InodeAttributes.Mode with a plain cast; only the
// directory/regular-file type bit and the owner/group/other permission
// bits are ever set.
const (
	ModeDir     uint32 = 1 << 31
	ModeRegular uint32 = 0

	modeOwnerRWX = 0o700
	modeGroupRX  = 0o050
	modeOtherRX  = 0o005
)

// RootDirMode is the mode stamped onto the root inode by bootstrap:
// directory, owner rwx, group r-x, other r-x.
const RootDirMode = ModeDir | modeOwnerRWX | modeGroupRX | modeOtherRX
