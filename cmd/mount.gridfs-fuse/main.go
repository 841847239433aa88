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

// A small helper for using gridfs-fuse with mount(8).
//
// Invoked with the command-line convention mount(8) uses for helpers:
// a device, a mount point, and zero or more "-o name=value" options. Calls
// the gridfs-fuse binary, which must be in $PATH, and waits for it to
// complete.
//
// This binary does not daemonize; it must be wrapped by something that
// performs daemonization if it is to be used directly with mount(8).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/axiros/gridfs-fuse/cfg"
)

var fOptions optionSlice

func init() {
	flag.Var(&fOptions, "o", "Mount options. May be repeated.")
}

// A 'name=value' mount option. If '=value' is absent, only Name is filled
// in.
type option struct {
	Name  string
	Value string
}

// optionSlice parses repeated, comma-joined "-o" flags into a flat list of
// options, implementing flag.Value.
type optionSlice []option

func (o *optionSlice) String() string {
	return fmt.Sprint(*o)
}

func (o *optionSlice) Set(s string) error {
	for _, p := range strings.Split(s, ",") {
		var opt option
		if i := strings.IndexByte(p, '='); i != -1 {
			opt.Name = p[:i]
			opt.Value = p[i+1:]
		} else {
			opt.Name = p
		}
		*o = append(*o, opt)
	}
	return nil
}

// parseArgs splits the device and mount point out of the mount-style
// positional arguments.
func parseArgs(args []string) (uri string, mountPoint string, err error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("expected two positional arguments, got %d", len(args))
	}
	return args[0], args[1], nil
}

// splitURI separates an optional "/database.collection" path suffix from
// the bare connection URI; the suffix's collection component is unused,
// since the metadata collection name is fixed, but the database component
// overrides --database. Only the path following the "scheme://authority"
// is considered, so dots in a bare IPv4 host (e.g. "127.0.0.1") never get
// mistaken for this suffix.
func splitURI(uri string) (connectionURI, database string) {
	schemeEnd := strings.Index(uri, "://")
	if schemeEnd == -1 {
		return uri, ""
	}
	authorityStart := schemeEnd + len("://")
	pathStart := strings.IndexByte(uri[authorityStart:], '/')
	if pathStart == -1 {
		return uri, ""
	}
	pathStart += authorityStart

	rest := uri[pathStart+1:]
	dot := strings.IndexByte(rest, '.')
	if rest == "" || dot == -1 {
		return uri, ""
	}
	return uri[:pathStart], rest[:dot]
}

// makeArgs turns mount-style options into gridfs-fuse flags. Options this
// entry point doesn't itself consume are forwarded verbatim via repeated
// --fuse-option flags, per §6's passthrough contract.
func makeArgs(connectionURI, mountPoint string, opts []option) (args []string, err error) {
	for _, opt := range opts {
		switch opt.Name {
		case cfg.MountOptionDebug:
			args = append(args, "--log-level=DEBUG")

		case cfg.MountOptionForeground:
			// gridfs-fuse always runs in the foreground; nothing to do.

		case cfg.MountOptionWorkers:
			if opt.Value != "1" {
				return nil, fmt.Errorf("unsupported workers=%s: only workers=1 is supported", opt.Value)
			}

		case cfg.MountOptionSingle:
			// Equivalent to workers=1, the only supported worker count.

		case cfg.MountOptionLogLevel:
			args = append(args, "--log-level="+opt.Value)

		case cfg.MountOptionLogFile:
			args = append(args, "--log-file="+opt.Value)

		default:
			// Anything this helper doesn't itself consume is forwarded
			// verbatim to the primary binary's FUSE option set.
			if opt.Value == "" {
				args = append(args, "--fuse-option="+opt.Name)
			} else {
				args = append(args, "--fuse-option="+opt.Name+"="+opt.Value)
			}
		}
	}

	args = append(args, "--mongodb-uri="+connectionURI)
	args = append(args, "--mount-point="+mountPoint)
	return args, nil
}

func main() {
	flag.Parse()

	uri, mountPoint, err := parseArgs(flag.Args())
	if err != nil {
		log.Fatalf("parseArgs: %v", err)
	}

	connectionURI, database := splitURI(uri)

	args, err := makeArgs(connectionURI, mountPoint, fOptions)
	if err != nil {
		log.Fatalf("makeArgs: %v", err)
	}
	if database != "" {
		args = append(args, "--database="+database)
	}

	cmd := exec.Command("gridfs-fuse", args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		log.Fatalf("gridfs-fuse failed or failed to run: %v", err)
	}
}
