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
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/airbusgeo/gdalbridge/native"
	"golang.org/x/sync/errgroup"
)

// KeySizerReaderAt is the interface expected when calling RegisterVSIHandler
//
// ReadAt() is a standard io.ReaderAt that takes a key (i.e. filename) as argument.
//
// Size() is used as a check to determine wether the given key exists, and should return
// an error if no such key exists. The actual file size may or may not be effectively used
// depending on the underlying driver opening the file.
//
// It may also optionally implement KeyMultiReader which will be used (only?) by
// the GTiff driver when reading pixels. If not provided, this
// VSI implementation will concurrently call ReadAt(key,[]byte,int64)
type KeySizerReaderAt interface {
	ReadAt(key string, buf []byte, off int64) (int, error)
	Size(key string) (int64, error)
}

// KeyMultiReader is an optional interface that can be implemented by KeySizerReaderAt that
// will be used (only?) by the GTiff driver when reading pixels. If not provided, this
// VSI implementation will concurrently call ReadAt(key,[]byte,int64)
//
// ReadAtMulti returns the number of bytes read into each buffer. Any buffer left
// partially filled fails the read, even if the returned error is nil or io.EOF.
type KeyMultiReader interface {
	ReadAtMulti(key string, bufs [][]byte, offs []int64) ([]int, error)
}

type vsiHandlerOpts struct {
	bufferSize, cacheSize int
	stripPrefix           bool
	errorHandler          ErrorHandler
}

// VSIHandlerOption is an option that can be passed to RegisterVSIHandler
//
// Available VSIHandlerOptions are:
//
// • VSIHandlerBufferSize
//
// • VSIHandlerCacheSize
//
// • VSIHandlerStripPrefix
//
// • ErrLogger
type VSIHandlerOption interface {
	setVSIHandlerOpt(v *vsiHandlerOpts)
}

type bufferSizeOpt struct {
	b int
}

type cacheSizeOpt struct {
	b int
}

type stripPrefixOpt struct {
	v bool
}

func (b bufferSizeOpt) setVSIHandlerOpt(v *vsiHandlerOpts) {
	v.bufferSize = b.b
}
func (b cacheSizeOpt) setVSIHandlerOpt(v *vsiHandlerOpts) {
	v.cacheSize = b.b
}
func (sp stripPrefixOpt) setVSIHandlerOpt(v *vsiHandlerOpts) {
	v.stripPrefix = sp.v
}

// VSIHandlerBufferSize sets the size of the engine-native block size used for caching. Must be positive,
// can be set to 0 to disable this behavior (not recommended).
//
// Defaults to 64Kb
func VSIHandlerBufferSize(s int) VSIHandlerOption {
	return bufferSizeOpt{s}
}

// VSIHandlerCacheSize sets the total number of engine-native bytes used as cache *per handle*.
// Defaults to 128Kb. It is raised to the buffer size if smaller.
func VSIHandlerCacheSize(s int) VSIHandlerOption {
	return cacheSizeOpt{s}
}

// VSIHandlerStripPrefix instructs the handler to strip the registered prefix from the
// filename before calling the KeySizerReaderAt. Defaults to true, i.e. opening
// "scheme://bucket/file.tif" results in calls with key "bucket/file.tif".
func VSIHandlerStripPrefix(v bool) VSIHandlerOption {
	return stripPrefixOpt{v}
}

// RegisterVSIHandler registers keySizerReaderAt on the given prefix.
// When registering a reader with
//
//	RegisterVSIHandler("scheme://",handler)
//
// calling Open("scheme://myfile.txt") will result in the engine making calls to
//
//	handler.ReadAt("myfile.txt", buf, offset)
//
// Files served by the handler are read-only. A prefix can only be registered once,
// and not on a prefix the engine already handles (e.g. /vsimem/).
func (b *Bridge) RegisterVSIHandler(prefix string, keySizerReaderAt KeySizerReaderAt, opts ...VSIHandlerOption) error {
	opt := vsiHandlerOpts{
		bufferSize:  64 * 1024,
		cacheSize:   2 * 64 * 1024,
		stripPrefix: true,
	}
	for _, o := range opts {
		o.setVSIHandlerOpt(&opt)
	}
	if opt.cacheSize < opt.bufferSize {
		opt.cacheSize = opt.bufferSize
	}
	b.vsiMu.Lock()
	defer b.vsiMu.Unlock()
	return b.call(nil, opt.errorHandler, func(cc *callContext) {
		for _, p := range b.engine.FilesystemPrefixes() {
			if p == prefix {
				cc.raise("handler already registered on prefix")
				return
			}
		}
		h := &vsiHandler{
			bridge:      b,
			prefix:      prefix,
			reader:      keySizerReaderAt,
			bufferSize:  opt.bufferSize,
			cacheSize:   opt.cacheSize,
			stripPrefix: opt.stripPrefix,
		}
		if err := b.engine.InstallFilesystemHandler(prefix, h); err != nil {
			cc.raise(err.Error())
			return
		}
		b.vsiHandlers[prefix] = h
	})
}

// vsiHandler exposes a KeySizerReaderAt to the engine as a read-only filesystem
type vsiHandler struct {
	bridge                *Bridge
	prefix                string
	reader                KeySizerReaderAt
	bufferSize, cacheSize int
	stripPrefix           bool
}

var _ native.FilesystemHandler = (*vsiHandler)(nil)

func (h *vsiHandler) key(filename string) string {
	if h.stripPrefix {
		return strings.TrimPrefix(filename, h.prefix)
	}
	return filename
}

// guard converts a panic raised by caller-supplied code into an error, as it must
// not unwind through engine frames
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("vsi reader panic: %v", r)
		}
	}()
	return fn()
}

func (h *vsiHandler) size(key string) (int64, error) {
	var size int64
	err := guard(func() error {
		var err error
		size, err = h.reader.Size(key)
		return err
	})
	if err != nil {
		return -1, err
	}
	if size < 0 {
		return -1, syscall.ENOENT
	}
	return size, nil
}

func (h *vsiHandler) read(key string, buf []byte, off int64) (int, error) {
	n := 0
	err := guard(func() error {
		var err error
		n, err = h.reader.ReadAt(key, buf, off)
		return err
	})
	if errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

// readMulti fills every bufs[i] from offs[i]
func (h *vsiHandler) readMulti(key string, bufs [][]byte, offs []int64) error {
	if len(bufs) == 0 {
		return nil
	}
	if mr, ok := h.reader.(KeyMultiReader); ok {
		var ns []int
		err := guard(func() error {
			var err error
			ns, err = mr.ReadAtMulti(key, bufs, offs)
			return err
		})
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		// io.EOF is only acceptable if every range was filled anyway
		for i := range bufs {
			n := 0
			if i < len(ns) {
				n = ns[i]
			}
			if n < len(bufs[i]) {
				return shortRead(key, offs[i], n, len(bufs[i]))
			}
		}
		return nil
	}
	var g errgroup.Group
	for i := range bufs {
		i := i
		g.Go(func() error {
			n, err := h.read(key, bufs[i], offs[i])
			if err != nil {
				return err
			}
			if n != len(bufs[i]) {
				return shortRead(key, offs[i], n, len(bufs[i]))
			}
			return nil
		})
	}
	return g.Wait()
}

func shortRead(key string, off int64, got, want int) error {
	return fmt.Errorf("short read on %s at offset %d: got %d bytes instead of %d", key, off, got, want)
}

func (h *vsiHandler) Open(t native.Thread, filename, access string, setError bool) native.VirtualHandle {
	if strings.ContainsAny(access, "wa+") {
		t.Error(native.Failure, native.AppDefined, "Only read-only mode is supported")
		return nil
	}
	key := h.key(filename)
	size, err := h.size(key)
	if err != nil {
		if setError {
			t.Error(native.Failure, native.AppDefined, err.Error())
		}
		t.SetErrno(syscall.ENOENT)
		return nil
	}
	var vh native.VirtualHandle = &vsiHandle{handler: h, key: key, size: size}
	if h.bufferSize > 0 {
		vh = h.bridge.engine.CreateCachedFile(vh, h.bufferSize, h.cacheSize)
	}
	return vh
}

func (h *vsiHandler) Stat(t native.Thread, filename string, flags native.StatFlags) (native.StatBuf, int) {
	size, err := h.size(h.key(filename))
	if err != nil {
		if flags&native.StatSetErrorFlag != 0 {
			t.Error(native.Failure, native.AppDefined, err.Error())
			t.SetErrno(syscall.ENOENT)
		}
		return native.StatBuf{}, -1
	}
	sb := native.StatBuf{}
	if flags&native.StatSizeFlag != 0 {
		sb.Size = size
	}
	return sb, 0
}

// SiblingFiles reports that no file lives next to a bridged one, so that the engine
// never looks up sidecar files through the key reader
func (h *vsiHandler) SiblingFiles(t native.Thread, filename string) []string {
	return []string{}
}

func (h *vsiHandler) HasOptimizedReadMultiRange(filename string) bool {
	return true
}

// vsiHandle is a read-only file served by a vsiHandler
type vsiHandle struct {
	handler   *vsiHandler
	key       string
	cur, size int64
	eof       bool
}

var _ native.VirtualHandle = (*vsiHandle)(nil)

func (vh *vsiHandle) Seek(off int64, whence int) int {
	switch whence {
	case io.SeekStart:
		vh.cur = off
	case io.SeekCurrent:
		vh.cur += off
	default:
		vh.cur = vh.size
	}
	vh.eof = false
	return 0
}

func (vh *vsiHandle) Tell() int64 {
	return vh.cur
}

func (vh *vsiHandle) Read(t native.Thread, buf []byte, size, count int) int {
	want := size * count
	if want == 0 {
		return 0
	}
	n, err := vh.handler.read(vh.key, buf[:want], vh.cur)
	if err != nil {
		t.Error(native.Failure, native.FileIO, err.Error())
		t.SetErrno(syscall.EIO)
		return 0
	}
	if n < want {
		vh.eof = true
	}
	elems := n / size
	vh.cur += int64(elems * size)
	return elems
}

func (vh *vsiHandle) ReadMultiRange(t native.Thread, bufs [][]byte, offsets []int64) int {
	rb := rangeBatch{bufs: bufs, offsets: offsets}
	err := rb.readRanges(func(bufs [][]byte, offsets []int64) error {
		return vh.handler.readMulti(vh.key, bufs, offsets)
	})
	if err != nil {
		t.Error(native.Failure, native.FileIO, err.Error())
		t.SetErrno(syscall.EIO)
		return -1
	}
	return 0
}

func (vh *vsiHandle) RangeStatus(off, length int64) native.RangeStatus {
	return native.RangeStatusUnknown
}

func (vh *vsiHandle) Eof() bool {
	return vh.eof
}

func (vh *vsiHandle) Write(t native.Thread, buf []byte, size, count int) int {
	t.Error(native.Failure, native.NotSupported, "Write not supported on read-only handle")
	return 0
}

func (vh *vsiHandle) Flush(t native.Thread) int {
	t.Error(native.Failure, native.NotSupported, "Flush not supported on read-only handle")
	return -1
}

func (vh *vsiHandle) Truncate(t native.Thread, size int64) int {
	t.Error(native.Failure, native.NotSupported, "Truncate not supported on read-only handle")
	return -1
}

func (vh *vsiHandle) Close() int {
	return 0
}
