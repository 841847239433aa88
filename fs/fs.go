// Copyright 2015 Google Inc. All Rights Reserved.
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

// Package fs implements the FUSE operations core: a fuseutil.FileSystem
// that serves a POSIX view of the metadata collection and chunked object
// store in package backend.
package fs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/axiros/gridfs-fuse/backend"
	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"
)

// dirSize is the constant size reported for every directory, matching
// the original implementation's fixed stat() size for directories.
const dirSize = 4096

// ServerConfig bundles the backend dependencies NewServer needs to build
// the file system.
type ServerConfig struct {
	Meta backend.Collection

	// FilesRaw is the raw Collection view of the chunked store's fs.files
	// documents, used only to re-stamp the filename field on rename; all
	// other chunked-object access goes through Store.
	FilesRaw backend.Collection
	Store    backend.Store
	Log      *slog.Logger

	// Uid and Gid are recorded as the owner of every inode the file system
	// creates; attributes report the owner stored on each inode.
	Uid uint32
	Gid uint32
}

// NewServer builds a fuse.Server that serves the filesystem described by
// cfg.Meta and cfg.Store.
func NewServer(cfg *ServerConfig) (fuse.Server, error) {
	fs := &fileSystem{
		meta:       cfg.Meta,
		filesRaw:   cfg.FilesRaw,
		store:      cfg.Store,
		log:        cfg.Log,
		uid:        cfg.Uid,
		gid:        cfg.Gid,
		handles:    newHandleTable(),
		dirHandles: make(map[fuseops.HandleID]*dirHandle),
	}
	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)
	return fuseutil.NewFileSystemServer(fs), nil
}

// fileSystem implements fuseutil.FileSystem against the backend package.
// Per the single-worker-thread scheduling model, the host's own dispatch
// loop serializes calls into this type; mu guards only the directory
// handle table, which must remain consistent across the suspension points
// inside backend calls.
type fileSystem struct {
	fuseutil.NotImplementedFileSystem

	meta     backend.Collection
	filesRaw backend.Collection
	store    backend.Store
	log      *slog.Logger
	uid      uint32
	gid      uint32

	handles *handleTable

	mu            syncutil.InvariantMutex
	dirHandles    map[fuseops.HandleID]*dirHandle
	nextDirHandle fuseops.HandleID
}

// checkInvariants is run by mu on every Unlock in builds compiled with
// the appropriate debug tag; it has nothing non-trivial to check here
// since dirHandles is only ever mutated under mu itself.
func (fs *fileSystem) checkInvariants() {
	if fs.dirHandles == nil {
		panic("dirHandles is nil")
	}
}

func attributesFor(e *backend.Entry, size uint64) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  size,
		Nlink: 1,
		Mode:  os.FileMode(e.Mode),
		Atime: time.Unix(0, e.AtimeNs),
		Mtime: time.Unix(0, e.MtimeNs),
		Ctime: time.Unix(0, e.CtimeNs),
		Uid:   e.UID,
		Gid:   e.GID,
	}
}

// sizeFor resolves getattr's st_size per §4.3: an active write handle's
// current position takes priority, then the chunked object's length,
// falling back to zero if the object doesn't exist yet.
func (fs *fileSystem) sizeFor(ctx context.Context, e *backend.Entry) uint64 {
	if e.IsDir() {
		return dirSize
	}
	if w, ok := fs.handles.activeWriteForInode(e.Inode); ok {
		return uint64(w.Position())
	}
	length, err := fs.store.Length(ctx, e.Inode)
	if err != nil {
		return 0
	}
	return uint64(length)
}

func (fs *fileSystem) entryAttributes(ctx context.Context, e *backend.Entry) fuseops.InodeAttributes {
	return attributesFor(e, fs.sizeFor(ctx, e))
}

////////////////////////////////////////////////////////////////////////
// Inode operations
////////////////////////////////////////////////////////////////////////

func (fs *fileSystem) Init(op *fuseops.InitOp) error {
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) LookUpInode(op *fuseops.LookUpInodeOp) error {
	ctx := op.Context()
	parent, err := backend.GetEntry(ctx, fs.meta, int64(op.Parent))
	if err != nil {
		return fuse.ENOENT
	}

	childInode, ok := parent.ChildByName([]byte(op.Name))
	if !ok {
		return fuse.ENOENT
	}

	child, err := backend.GetEntry(ctx, fs.meta, childInode)
	if err != nil {
		return fuse.ENOENT
	}

	op.Entry.Child = fuseops.InodeID(child.Inode)
	op.Entry.Attributes = fs.entryAttributes(ctx, child)
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) error {
	ctx := op.Context()
	e, err := backend.GetEntry(ctx, fs.meta, int64(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}
	op.Attributes = fs.entryAttributes(ctx, e)
	return nil
}

// SetInodeAttributes changes the permission bits of the mode, atime and
// mtime; other fields of the op are ignored. A size change (truncation) is
// refused with EINVAL, matching the append-once write discipline (there is
// no in-place resize of a sealed chunked object).
func (fs *fileSystem) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	ctx := op.Context()
	e, err := backend.GetEntry(ctx, fs.meta, int64(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}

	if op.Size != nil {
		return fuse.EINVAL
	}

	set := bson.M{}
	if op.Mode != nil {
		// Preserve the type bit; only the permission bits are settable.
		set["mode"] = (e.Mode &^ 0o777) | uint32(*op.Mode&os.ModePerm)
	}
	if op.Atime != nil {
		set["atime_ns"] = op.Atime.UnixNano()
	}
	if op.Mtime != nil {
		set["mtime_ns"] = op.Mtime.UnixNano()
	}
	if len(set) > 0 {
		if err := backend.UpdateEntry(ctx, fs.meta, e.Inode, set); err != nil {
			return err
		}
		e, err = backend.GetEntry(ctx, fs.meta, int64(op.Inode))
		if err != nil {
			return fuse.ENOENT
		}
	}

	op.Attributes = fs.entryAttributes(ctx, e)
	return nil
}

func (fs *fileSystem) ForgetInode(op *fuseops.ForgetInodeOp) error {
	return nil
}

////////////////////////////////////////////////////////////////////////
// Creation
////////////////////////////////////////////////////////////////////////

func (fs *fileSystem) MkDir(op *fuseops.MkDirOp) error {
	ctx := op.Context()
	inode, err := backend.AllocateInode(ctx, fs.meta)
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	e := &backend.Entry{
		Inode:       inode,
		ParentInode: int64(op.Parent),
		Filename:    []byte(op.Name),
		Mode:        backend.ModeDir | uint32(op.Mode&os.ModePerm),
		UID:         fs.uid,
		GID:         fs.gid,
		AtimeNs:     now,
		MtimeNs:     now,
		CtimeNs:     now,
		Childs:      []backend.ChildRef{},
	}

	if err := backend.InsertEntry(ctx, fs.meta, e); err != nil {
		if errors.Is(err, backend.ErrDuplicateKey) {
			return fuse.EEXIST
		}
		return err
	}
	if err := backend.AddChild(ctx, fs.meta, int64(op.Parent), e.Filename, inode); err != nil {
		return err
	}

	op.Entry.Child = fuseops.InodeID(inode)
	op.Entry.Attributes = fs.entryAttributes(ctx, e)
	return nil
}

// CreateFile inserts the child document, links it into the parent, stamps
// the chunked object's path, and opens a write handle. The file enters
// the "writing" state from §4.3's state machine: only this handle may
// write to it until release.
func (fs *fileSystem) CreateFile(op *fuseops.CreateFileOp) error {
	ctx := op.Context()
	inode, err := backend.AllocateInode(ctx, fs.meta)
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	e := &backend.Entry{
		Inode:       inode,
		ParentInode: int64(op.Parent),
		Filename:    []byte(op.Name),
		Mode:        backend.ModeRegular | uint32(op.Mode&os.ModePerm),
		UID:         fs.uid,
		GID:         fs.gid,
		AtimeNs:     now,
		MtimeNs:     now,
		CtimeNs:     now,
	}

	if err := backend.InsertEntry(ctx, fs.meta, e); err != nil {
		if errors.Is(err, backend.ErrDuplicateKey) {
			return fuse.EEXIST
		}
		return err
	}
	if err := backend.AddChild(ctx, fs.meta, int64(op.Parent), e.Filename, inode); err != nil {
		return err
	}

	path, err := fullPath(ctx, fs.meta, e)
	if err != nil {
		return err
	}
	w, err := fs.store.NewFile(ctx, inode, path)
	if err != nil {
		return err
	}

	op.Entry.Child = fuseops.InodeID(inode)
	op.Entry.Attributes = fs.entryAttributes(ctx, e)
	op.Handle = fuseops.HandleID(fs.handles.newWrite(inode, w))
	return nil
}

////////////////////////////////////////////////////////////////////////
// Removal
////////////////////////////////////////////////////////////////////////

// RmDir removes an empty directory, following the unlink-then-delete
// ordering of §4.3: the parent's childs entry is pulled before the child
// document is deleted.
func (fs *fileSystem) RmDir(op *fuseops.RmDirOp) error {
	ctx := op.Context()
	parent, err := backend.GetEntry(ctx, fs.meta, int64(op.Parent))
	if err != nil {
		return fuse.ENOENT
	}
	childInode, ok := parent.ChildByName([]byte(op.Name))
	if !ok {
		return fuse.ENOENT
	}
	child, err := backend.GetEntry(ctx, fs.meta, childInode)
	if err != nil {
		return fuse.ENOENT
	}
	if !child.IsDir() {
		return fuse.ENOTDIR
	}
	if len(child.Childs) != 0 {
		return fuse.ENOTEMPTY
	}

	if err := backend.RemoveChild(ctx, fs.meta, int64(op.Parent), []byte(op.Name), childInode); err != nil {
		return err
	}
	return backend.DeleteEntry(ctx, fs.meta, childInode)
}

// Unlink removes a file following the same ordering as RmDir, additionally
// deleting the chunked object once the metadata document is gone.
func (fs *fileSystem) Unlink(op *fuseops.UnlinkOp) error {
	ctx := op.Context()
	parent, err := backend.GetEntry(ctx, fs.meta, int64(op.Parent))
	if err != nil {
		return fuse.ENOENT
	}
	childInode, ok := parent.ChildByName([]byte(op.Name))
	if !ok {
		return fuse.ENOENT
	}
	child, err := backend.GetEntry(ctx, fs.meta, childInode)
	if err != nil {
		return fuse.ENOENT
	}
	if child.IsDir() {
		return fuse.EISDIR
	}

	if err := backend.RemoveChild(ctx, fs.meta, int64(op.Parent), []byte(op.Name), childInode); err != nil {
		return err
	}
	if err := backend.DeleteEntry(ctx, fs.meta, childInode); err != nil {
		return err
	}
	if err := fs.store.Delete(ctx, childInode); err != nil && !errors.Is(err, backend.ErrNoSuchObject) {
		return err
	}
	return nil
}

////////////////////////////////////////////////////////////////////////
// Rename
////////////////////////////////////////////////////////////////////////

// Rename implements §4.3's six-step sequence. It is not atomic as a
// group; a crash mid-rename may leave the source parented to the new
// directory but still listed in the old directory's childs, which
// bootstrap does not reconcile.
func (fs *fileSystem) Rename(op *fuseops.RenameOp) error {
	ctx := op.Context()
	oldParent, err := backend.GetEntry(ctx, fs.meta, int64(op.OldParent))
	if err != nil {
		return fuse.ENOENT
	}
	srcInode, ok := oldParent.ChildByName([]byte(op.OldName))
	if !ok {
		return fuse.ENOENT
	}
	if _, err := backend.GetEntry(ctx, fs.meta, srcInode); err != nil {
		return fuse.ENOENT
	}

	newParent, err := backend.GetEntry(ctx, fs.meta, int64(op.NewParent))
	if err != nil {
		return fuse.ENOENT
	}

	if existingInode, ok := newParent.ChildByName([]byte(op.NewName)); ok && existingInode != srcInode {
		existing, err := backend.GetEntry(ctx, fs.meta, existingInode)
		if err == nil {
			if existing.IsDir() {
				if len(existing.Childs) != 0 {
					return fuse.ENOTEMPTY
				}
				return fuse.EEXIST
			}
			if err := backend.RemoveChild(ctx, fs.meta, int64(op.NewParent), []byte(op.NewName), existingInode); err != nil {
				return err
			}
			if err := backend.DeleteEntry(ctx, fs.meta, existingInode); err != nil {
				return err
			}
			if err := fs.store.Delete(ctx, existingInode); err != nil && !errors.Is(err, backend.ErrNoSuchObject) {
				return err
			}
		}
	}

	if err := backend.UpdateEntry(ctx, fs.meta, srcInode, bson.M{
		"parent_inode": int64(op.NewParent),
		"filename":     []byte(op.NewName),
	}); err != nil {
		return err
	}
	if err := backend.RemoveChild(ctx, fs.meta, int64(op.OldParent), []byte(op.OldName), srcInode); err != nil {
		return err
	}
	if err := backend.AddChild(ctx, fs.meta, int64(op.NewParent), []byte(op.NewName), srcInode); err != nil {
		return err
	}

	path, err := fullPath(ctx, fs.meta, &backend.Entry{
		Inode:       srcInode,
		ParentInode: int64(op.NewParent),
		Filename:    []byte(op.NewName),
	})
	if err != nil {
		return err
	}
	if err := backend.UpdateFilename(ctx, fs.filesRaw, srcInode, path); err != nil {
		return err
	}
	return nil
}

////////////////////////////////////////////////////////////////////////
// Directory handles
////////////////////////////////////////////////////////////////////////

// dirHandle records which directory an open directory handle refers to.
// ReadDir lists its children sorted ascending by inode, using the
// last-yielded child's inode as the resumption cursor, per §4.3.
type dirHandle struct {
	dirInode int64
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) OpenDir(op *fuseops.OpenDirOp) error {
	e, err := backend.GetEntry(op.Context(), fs.meta, int64(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}
	if !e.IsDir() {
		return fuse.ENOTDIR
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	h := fs.nextDirHandle
	fs.nextDirHandle++
	fs.dirHandles[h] = &dirHandle{dirInode: int64(op.Inode)}
	op.Handle = h
	return nil
}

// ReadDir re-fetches the directory's current child list on every call
// (there is no cache to invalidate), filters out children whose cursor is
// at or below op.Offset, and writes as many as fit in op.Dst.
func (fs *fileSystem) ReadDir(op *fuseops.ReadDirOp) error {
	fs.mu.Lock()
	dh, ok := fs.dirHandles[op.Handle]
	fs.mu.Unlock()
	if !ok {
		return fuse.EINVAL
	}

	ctx := op.Context()
	dir, err := backend.GetEntry(ctx, fs.meta, dh.dirInode)
	if err != nil {
		return fuse.ENOENT
	}

	children := append([]backend.ChildRef(nil), dir.Childs...)
	sort.Slice(children, func(i, j int) bool { return children[i].Inode < children[j].Inode })

	var n int
	for _, c := range children {
		if int64(op.Offset) >= c.Inode {
			continue
		}
		child, err := backend.GetEntry(ctx, fs.meta, c.Inode)
		if err != nil {
			// A child whose document vanished mid-iteration is silently
			// skipped.
			continue
		}
		dtype := fuseutil.DT_File
		if child.IsDir() {
			dtype = fuseutil.DT_Directory
		}
		written := fuseutil.WriteDirent(op.Dst[n:], fuseops.Dirent{
			Offset: fuseops.DirOffset(c.Inode),
			Inode:  fuseops.InodeID(c.Inode),
			Name:   string(c.Filename),
			Type:   dtype,
		})
		if written == 0 {
			break
		}
		n += written
	}
	op.BytesRead = n
	return nil
}

// LOCKS_EXCLUDED(fs.mu)
func (fs *fileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.dirHandles, op.Handle)
	return nil
}

////////////////////////////////////////////////////////////////////////
// File handles
////////////////////////////////////////////////////////////////////////

// OpenFile admits read-only opens only: any write flag gets EACCES, so a
// second writer is never admitted. It does not consult the handle table; a
// file still being written opens only if the store already exposes its
// chunked object, and yields EIO otherwise.
func (fs *fileSystem) OpenFile(op *fuseops.OpenFileOp) error {
	ctx := op.Context()
	e, err := backend.GetEntry(ctx, fs.meta, int64(op.Inode))
	if err != nil {
		return fuse.ENOENT
	}

	if !op.OpenFlags.IsReadOnly() {
		return fuse.EACCES
	}

	r, err := fs.store.Open(ctx, e.Inode)
	if err != nil {
		if errors.Is(err, backend.ErrNoSuchObject) {
			return fuse.EIO
		}
		return err
	}
	op.Handle = fuseops.HandleID(fs.handles.newRead(e.Inode, r))
	return nil
}

func (fs *fileSystem) ReadFile(op *fuseops.ReadFileOp) error {
	r, ok := fs.handles.read(uint64(op.Handle))
	if !ok {
		return fuse.EINVAL
	}

	if err := r.Seek(op.Offset); err != nil {
		return err
	}

	buf := make([]byte, op.Size)
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		if n == 0 {
			break
		}
	}
	op.Data = buf[:total]
	return nil
}

// WriteFile enforces the append-once discipline: offset must equal the
// writer's current position.
func (fs *fileSystem) WriteFile(op *fuseops.WriteFileOp) error {
	w, ok := fs.handles.write(uint64(op.Handle))
	if !ok {
		return fuse.EINVAL
	}
	if op.Offset != w.Position() {
		return fuse.EINVAL
	}
	_, err := w.Write(op.Data)
	return err
}

// ReleaseFileHandle finalizes a write (sealing the chunked object) or
// closes a read session. Never fails observably, matching the §4.3
// contract for release.
func (fs *fileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) error {
	r, w := fs.handles.release(uint64(op.Handle))
	if r != nil {
		_ = r.Close()
	}
	if w != nil {
		if err := w.Close(); err != nil {
			fs.log.Warn("failed to finalize chunked object on release", "error", err)
		}
	}
	return nil
}
