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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/axiros/gridfs-fuse/backend"
	"github.com/axiros/gridfs-fuse/cfg"
	"github.com/axiros/gridfs-fuse/fs"
	"github.com/axiros/gridfs-fuse/logging"
	"github.com/jacobsa/fuse"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// runMount is the shared body of both entry points: connect to the
// backing deployment, bootstrap its schema, build the file system server,
// and mount it, blocking until it is unmounted.
func runMount(ctx context.Context, conf *cfg.Config) error {
	log := logging.New(conf.Logging)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.MongoDBURI))
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", conf.MongoDBURI, err)
	}

	db := client.Database(conf.Database)
	meta := backend.NewCollection(db.Collection(cfg.DefaultMetadataCollection))
	filesRaw := backend.NewCollection(db.Collection(cfg.DefaultChunkedStorePrefix + ".files"))

	if err := backend.Bootstrap(ctx, meta, filesRaw, log); err != nil {
		return fmt.Errorf("bootstrapping schema: %w", err)
	}
	if err := backend.CheckRetryableWrites(ctx, client, log); err != nil {
		return fmt.Errorf("checking retryable writes support: %w", err)
	}

	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(cfg.DefaultChunkedStorePrefix))
	if err != nil {
		return fmt.Errorf("opening chunked object store: %w", err)
	}
	store := backend.NewStore(bucket)

	mfs, err := mount(string(conf.MountPoint), conf.Database, meta, filesRaw, store, conf.FuseOptions, log)
	if err != nil {
		return err
	}

	registerSIGINTHandler(string(conf.MountPoint), log)

	log.Info("mounted", "mount_point", conf.MountPoint, "database", conf.Database)
	return mfs.Join(ctx)
}

// mount builds the file system server over meta/store and mounts it at
// mountPoint, returning the mounted file system without waiting for it to
// be unmounted. fsName (runMount passes the database name) becomes the
// mount's volume name.
func mount(mountPoint, fsName string, meta, filesRaw backend.Collection, store backend.Store, fuseOptions []string, log *slog.Logger) (*fuse.MountedFileSystem, error) {
	server, err := fs.NewServer(&fs.ServerConfig{
		Meta:     meta,
		FilesRaw: filesRaw,
		Store:    store,
		Log:      log,
		Uid:      uint32(os.Getuid()),
		Gid:      uint32(os.Getgid()),
	})
	if err != nil {
		return nil, fmt.Errorf("fs.NewServer: %w", err)
	}

	mountCfg := getFuseMountConfig(fsName, fuseOptions, log)

	mfs, err := fuse.Mount(mountPoint, server, mountCfg)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	return mfs, nil
}

// getFuseMountConfig builds the fuse.MountConfig every mount uses: always
// fsname=gridfs_fuse and default_permissions, so the kernel enforces
// standard POSIX permission checks against the attributes this file
// system reports rather than trusting the caller. volumeName labels the
// mount; both entry points pass the database name. fuseOptions are additional "name=value"/"name" options forwarded
// verbatim into the mount's option set, overlaid on top of the defaults
// above so a caller can still override them if needed.
func getFuseMountConfig(volumeName string, fuseOptions []string, log *slog.Logger) *fuse.MountConfig {
	mountCfg := &fuse.MountConfig{
		FSName:     "gridfs_fuse",
		Subtype:    "gridfs_fuse",
		VolumeName: volumeName,
		Options: map[string]string{
			"fsname":              "gridfs_fuse",
			"default_permissions": "",
		},
	}
	for _, opt := range fuseOptions {
		name, value := splitFuseOption(opt)
		mountCfg.Options[name] = value
	}
	if logging.DebugEnvSet() {
		mountCfg.DebugLogger = slog.NewLogLogger(log.Handler(), slog.LevelDebug)
	}
	return mountCfg
}

// splitFuseOption splits a "name=value" mount option into its parts; a
// bare "name" option (e.g. "allow_other") returns an empty value.
func splitFuseOption(opt string) (name, value string) {
	if i := strings.IndexByte(opt, '='); i != -1 {
		return opt[:i], opt[i+1:]
	}
	return opt, ""
}

// registerSIGINTHandler starts a goroutine that unmounts mountPoint on
// SIGINT and returns immediately. If an unmount fails, the goroutine tries
// again on the next SIGINT; it stops once an unmount succeeds.
func registerSIGINTHandler(mountPoint string, log *slog.Logger) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	go func() {
		for range signalChan {
			log.Warn("received SIGINT, attempting to unmount", "mount_point", mountPoint)
			if err := fuse.Unmount(mountPoint); err != nil {
				log.Warn("failed to unmount in response to SIGINT", "error", err)
				continue
			}
			return
		}
	}()
}
