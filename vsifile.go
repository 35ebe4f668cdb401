// Copyright 2021 Airbus Defence and Space
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

package gdalbridge

import (
	"fmt"
	"io"

	"github.com/airbusgeo/gdalbridge/native"
)

// VSIFile is a handle to a file of one of the engine's filesystems
// (/vsimem/, local files, or a prefix registered with RegisterVSIHandler)
type VSIFile struct {
	bridge *Bridge
	handle native.VirtualHandle
}

var _ io.ReadCloser = &VSIFile{}

// VSIOpen opens path for reading. path can be virtual, eg beginning with /vsimem/.
//
// The returned error matches syscall.ENOENT (and fs.ErrNotExist) when the engine
// reports that path does not exist.
func (b *Bridge) VSIOpen(path string, opts ...VSIOpenOption) (*VSIFile, error) {
	vo := vsiOpenOpts{}
	for _, o := range opts {
		o.setVSIOpenOpt(&vo)
	}
	var hndl native.VirtualHandle
	errno, err := b.callErrno(nil, vo.errorHandler, func(cc *callContext) {
		hndl = b.engine.VSIOpen(cc.thread, path, "rb")
		if hndl == nil {
			cc.forceError()
		}
	})
	if err != nil {
		if hndl != nil {
			hndl.Close()
		}
		return nil, withErrno(err, errno)
	}
	return &VSIFile{bridge: b, handle: hndl}, nil
}

// Close closes the VSIFile. Must be called exactly once.
func (vf *VSIFile) Close() error {
	if vf.handle == nil {
		return fmt.Errorf("already closed")
	}
	hndl := vf.handle
	vf.handle = nil
	return vf.bridge.call(nil, nil, func(cc *callContext) {
		if ret := hndl.Close(); ret != 0 {
			cc.forceError()
		}
	})
}

// VSIUnlink deletes path
func (b *Bridge) VSIUnlink(path string, opts ...VSIUnlinkOption) error {
	vo := vsiUnlinkOpts{}
	for _, o := range opts {
		o.setVSIUnlinkOpt(&vo)
	}
	errno, err := b.callErrno(nil, vo.errorHandler, func(cc *callContext) {
		if ret := b.engine.VSIUnlink(cc.thread, path); ret != 0 {
			cc.forceError()
		}
	})
	return withErrno(err, errno)
}

// Read is the standard io.Reader interface
func (vf *VSIFile) Read(buf []byte) (int, error) {
	if vf.handle == nil {
		return 0, fmt.Errorf("read on closed file")
	}
	if len(buf) == 0 {
		return 0, nil
	}
	n := 0
	err := vf.bridge.call(nil, nil, func(cc *callContext) {
		n = vf.handle.Read(cc.thread, buf, 1, len(buf))
		if n < len(buf) && !vf.handle.Eof() {
			cc.forceError()
		}
	})
	if err != nil {
		return n, err
	}
	if n != len(buf) {
		return n, io.EOF
	}
	return n, nil
}
