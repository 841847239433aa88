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
	"sync"

	"github.com/axiros/gridfs-fuse/backend"
)

// maxHandle bounds the handle space to 16 bits, matching the original
// FileDescriptorFactory's allocation range.
const maxHandle = 1<<16 - 1

type readSession struct {
	inode int64
	r     backend.Reader
}

type writeSession struct {
	inode int64
	w     backend.Writer
}

// handleTable assigns 16-bit file handles to active read or write
// sessions. Allocation probes linearly from a rolling cursor, skipping
// handles already live in either map; the cursor resets to zero whenever
// the live set empties. A single mutex serializes all table mutations;
// the Reader/Writer themselves suspend on backend I/O without holding it.
type handleTable struct {
	mu     sync.Mutex
	cursor uint64
	reads  map[uint64]readSession
	writes map[uint64]writeSession
}

func newHandleTable() *handleTable {
	return &handleTable{
		reads:  make(map[uint64]readSession),
		writes: make(map[uint64]writeSession),
	}
}

func (t *handleTable) live(h uint64) bool {
	if _, ok := t.reads[h]; ok {
		return true
	}
	_, ok := t.writes[h]
	return ok
}

// allocate finds the next free handle starting at the rolling cursor. It
// must be called with t.mu held.
func (t *handleTable) allocate() uint64 {
	if len(t.reads) == 0 && len(t.writes) == 0 {
		t.cursor = 0
	}
	for {
		h := t.cursor
		t.cursor = (t.cursor + 1) & maxHandle
		if !t.live(h) {
			return h
		}
	}
}

// newRead allocates a handle bound to r for inode.
func (t *handleTable) newRead(inode int64, r backend.Reader) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.allocate()
	t.reads[h] = readSession{inode: inode, r: r}
	return h
}

// newWrite allocates a handle bound to w for inode.
func (t *handleTable) newWrite(inode int64, w backend.Writer) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.allocate()
	t.writes[h] = writeSession{inode: inode, w: w}
	return h
}

// read returns the Reader for h, or false if h is not an active read.
func (t *handleTable) read(h uint64) (backend.Reader, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.reads[h]
	return s.r, ok
}

// write returns the Writer for h, or false if h is not an active write.
func (t *handleTable) write(h uint64) (backend.Writer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.writes[h]
	return s.w, ok
}

// release drops h from whichever map holds it, returning the Reader or
// Writer so the caller can close it outside the lock.
func (t *handleTable) release(h uint64) (backend.Reader, backend.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.reads[h]; ok {
		delete(t.reads, h)
		return s.r, nil
	}
	if s, ok := t.writes[h]; ok {
		delete(t.writes, h)
		return nil, s.w
	}
	return nil, nil
}

// activeWriteForInode returns the Writer of the live write handle on
// inode, if any. Used to resolve getattr's size for a file mid-write.
func (t *handleTable) activeWriteForInode(inode int64) (backend.Writer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.writes {
		if s.inode == inode {
			return s.w, true
		}
	}
	return nil, false
}
