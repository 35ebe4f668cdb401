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

package memengine

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/airbusgeo/gdalbridge/native"
)

const memPrefix = "/vsimem/"

type accessMode struct {
	read, write, create, truncate, append bool
}

func parseAccess(access string) accessMode {
	var m accessMode
	switch {
	case strings.HasPrefix(access, "w"):
		m.write, m.create, m.truncate = true, true, true
	case strings.HasPrefix(access, "a"):
		m.write, m.create, m.append = true, true, true
	default:
		m.read = true
	}
	if strings.Contains(access, "+") {
		m.read, m.write = true, true
	}
	return m
}

// strerror renders errno the way the C library does
func strerror(errno syscall.Errno) string {
	s := errno.Error()
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	if errors.Is(err, fs.ErrNotExist) {
		return syscall.ENOENT
	}
	return syscall.EIO
}

type memFile struct {
	mu   sync.RWMutex
	data []byte
}

// memFS serves /vsimem/ paths
type memFS struct {
	mu    sync.RWMutex
	files map[string]*memFile
}

var (
	_ native.FilesystemHandler = (*memFS)(nil)
	_ native.Unlinker          = (*memFS)(nil)
)

func newMemFS() *memFS {
	return &memFS{files: make(map[string]*memFile)}
}

func (m *memFS) put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &memFile{data: append([]byte(nil), data...)}
}

func (m *memFS) get(path string) ([]byte, bool) {
	m.mu.RLock()
	f, ok := m.files[path]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]byte(nil), f.data...), true
}

func (m *memFS) Open(t native.Thread, filename, access string, setError bool) native.VirtualHandle {
	mode := parseAccess(access)
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filename]
	if !ok {
		if !mode.create {
			if setError {
				failf(t, native.OpenFailed, "%s: %s", filename, strerror(syscall.ENOENT))
			}
			t.SetErrno(syscall.ENOENT)
			return nil
		}
		f = &memFile{}
		m.files[filename] = f
	}
	h := &memHandle{file: f, writable: mode.write}
	if mode.truncate {
		f.mu.Lock()
		f.data = f.data[:0]
		f.mu.Unlock()
	}
	if mode.append {
		f.mu.RLock()
		h.cur = int64(len(f.data))
		f.mu.RUnlock()
	}
	return h
}

func (m *memFS) Stat(t native.Thread, filename string, flags native.StatFlags) (native.StatBuf, int) {
	m.mu.RLock()
	f, ok := m.files[filename]
	m.mu.RUnlock()
	if !ok {
		if flags&native.StatSetErrorFlag != 0 {
			failf(t, native.FileIO, "%s: %s", filename, strerror(syscall.ENOENT))
		}
		t.SetErrno(syscall.ENOENT)
		return native.StatBuf{}, -1
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return native.StatBuf{Mode: 0o644, Size: int64(len(f.data))}, 0
}

func (m *memFS) SiblingFiles(t native.Thread, filename string) []string {
	return nil
}

func (m *memFS) HasOptimizedReadMultiRange(filename string) bool {
	return false
}

func (m *memFS) Unlink(t native.Thread, filename string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[filename]; !ok {
		t.SetErrno(syscall.ENOENT)
		return -1
	}
	delete(m.files, filename)
	return 0
}

type memHandle struct {
	file     *memFile
	cur      int64
	eof      bool
	writable bool
}

func (h *memHandle) Seek(off int64, whence int) int {
	switch whence {
	case io.SeekStart:
		h.cur = off
	case io.SeekCurrent:
		h.cur += off
	case io.SeekEnd:
		h.file.mu.RLock()
		h.cur = int64(len(h.file.data)) + off
		h.file.mu.RUnlock()
	default:
		return -1
	}
	h.eof = false
	return 0
}

func (h *memHandle) Tell() int64 {
	return h.cur
}

func (h *memHandle) Read(t native.Thread, buf []byte, size, count int) int {
	want := size * count
	if want == 0 {
		return 0
	}
	h.file.mu.RLock()
	defer h.file.mu.RUnlock()
	n := 0
	if h.cur < int64(len(h.file.data)) {
		n = copy(buf[:want], h.file.data[h.cur:])
	}
	h.cur += int64(n)
	if n < want {
		h.eof = true
	}
	return n / size
}

func (h *memHandle) ReadMultiRange(t native.Thread, bufs [][]byte, offsets []int64) int {
	h.file.mu.RLock()
	defer h.file.mu.RUnlock()
	for i := range bufs {
		if offsets[i] < 0 || offsets[i]+int64(len(bufs[i])) > int64(len(h.file.data)) {
			return -1
		}
		copy(bufs[i], h.file.data[offsets[i]:])
	}
	return 0
}

func (h *memHandle) RangeStatus(off, length int64) native.RangeStatus {
	return native.RangeStatusData
}

func (h *memHandle) Eof() bool {
	return h.eof
}

func (h *memHandle) Write(t native.Thread, buf []byte, size, count int) int {
	if !h.writable {
		failf(t, native.NoWriteAccess, "write not permitted on read-only handle")
		return 0
	}
	want := size * count
	if want == 0 {
		return 0
	}
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	end := h.cur + int64(want)
	if end > int64(len(h.file.data)) {
		grown := make([]byte, end)
		copy(grown, h.file.data)
		h.file.data = grown
	}
	copy(h.file.data[h.cur:end], buf[:want])
	h.cur = end
	return count
}

func (h *memHandle) Flush(t native.Thread) int {
	return 0
}

func (h *memHandle) Truncate(t native.Thread, size int64) int {
	if !h.writable {
		failf(t, native.NoWriteAccess, "truncate not permitted on read-only handle")
		return -1
	}
	h.file.mu.Lock()
	defer h.file.mu.Unlock()
	if size <= int64(len(h.file.data)) {
		h.file.data = h.file.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, h.file.data)
		h.file.data = grown
	}
	return 0
}

func (h *memHandle) Close() int {
	return 0
}

// localFS serves every path that no prefix handler claims
type localFS struct{}

var (
	_ native.FilesystemHandler = (*localFS)(nil)
	_ native.Unlinker          = (*localFS)(nil)
)

func (localFS) Open(t native.Thread, filename, access string, setError bool) native.VirtualHandle {
	mode := parseAccess(access)
	flag := os.O_RDONLY
	switch {
	case mode.read && mode.write:
		flag = os.O_RDWR
	case mode.write:
		flag = os.O_WRONLY
	}
	if mode.create {
		flag |= os.O_CREATE
	}
	if mode.truncate {
		flag |= os.O_TRUNC
	}
	if mode.append {
		flag |= os.O_APPEND
	}
	f, err := os.OpenFile(filename, flag, 0o644)
	if err != nil {
		errno := errnoOf(err)
		if setError {
			failf(t, native.OpenFailed, "%s: %s", filename, strerror(errno))
		}
		t.SetErrno(errno)
		return nil
	}
	return &localHandle{f: f, appending: mode.append}
}

func (localFS) Stat(t native.Thread, filename string, flags native.StatFlags) (native.StatBuf, int) {
	st, err := os.Stat(filename)
	if err != nil {
		errno := errnoOf(err)
		if flags&native.StatSetErrorFlag != 0 {
			failf(t, native.FileIO, "%s: %s", filename, strerror(errno))
		}
		t.SetErrno(errno)
		return native.StatBuf{}, -1
	}
	return native.StatBuf{Mode: st.Mode(), Size: st.Size()}, 0
}

func (localFS) SiblingFiles(t native.Thread, filename string) []string {
	return nil
}

func (localFS) HasOptimizedReadMultiRange(filename string) bool {
	return false
}

func (localFS) Unlink(t native.Thread, filename string) int {
	if err := os.Remove(filename); err != nil {
		t.SetErrno(errnoOf(err))
		return -1
	}
	return 0
}

type localHandle struct {
	f         *os.File
	cur       int64
	eof       bool
	appending bool
}

func (h *localHandle) Seek(off int64, whence int) int {
	switch whence {
	case io.SeekStart:
		h.cur = off
	case io.SeekCurrent:
		h.cur += off
	case io.SeekEnd:
		st, err := h.f.Stat()
		if err != nil {
			return -1
		}
		h.cur = st.Size() + off
	default:
		return -1
	}
	h.eof = false
	return 0
}

func (h *localHandle) Tell() int64 {
	return h.cur
}

func (h *localHandle) Read(t native.Thread, buf []byte, size, count int) int {
	want := size * count
	if want == 0 {
		return 0
	}
	n, err := h.f.ReadAt(buf[:want], h.cur)
	h.cur += int64(n)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			failf(t, native.FileIO, "read: %v", err)
			t.SetErrno(errnoOf(err))
			return n / size
		}
		h.eof = true
	}
	return n / size
}

func (h *localHandle) ReadMultiRange(t native.Thread, bufs [][]byte, offsets []int64) int {
	for i := range bufs {
		if _, err := h.f.ReadAt(bufs[i], offsets[i]); err != nil {
			return -1
		}
	}
	return 0
}

func (h *localHandle) RangeStatus(off, length int64) native.RangeStatus {
	return native.RangeStatusUnknown
}

func (h *localHandle) Eof() bool {
	return h.eof
}

func (h *localHandle) Write(t native.Thread, buf []byte, size, count int) int {
	want := size * count
	if want == 0 {
		return 0
	}
	var n int
	var err error
	if h.appending {
		n, err = h.f.Write(buf[:want])
	} else {
		n, err = h.f.WriteAt(buf[:want], h.cur)
	}
	h.cur += int64(n)
	if err != nil {
		failf(t, native.FileIO, "write: %v", err)
		t.SetErrno(errnoOf(err))
	}
	return n / size
}

func (h *localHandle) Flush(t native.Thread) int {
	if err := h.f.Sync(); err != nil {
		return -1
	}
	return 0
}

func (h *localHandle) Truncate(t native.Thread, size int64) int {
	if err := h.f.Truncate(size); err != nil {
		failf(t, native.FileIO, "truncate: %v", err)
		return -1
	}
	return 0
}

func (h *localHandle) Close() int {
	if err := h.f.Close(); err != nil {
		return -1
	}
	return 0
}
