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

package vsicache

import (
	"io"
	"syscall"
	"testing"

	"github.com/airbusgeo/gdalbridge/native"
	"github.com/stretchr/testify/assert"
)

type nopThread struct{ errs []string }

func (t *nopThread) PushErrorHandler(native.ErrorHandler) {}
func (t *nopThread) PopErrorHandler()                     {}
func (t *nopThread) Error(_ native.CPLErr, _ native.ErrorNum, msg string) {
	t.errs = append(t.errs, msg)
}
func (t *nopThread) Debug(string, string)              {}
func (t *nopThread) SetConfigOption(string, string)    {}
func (t *nopThread) UnsetConfigOption(string)          {}
func (t *nopThread) ConfigOption(_, def string) string { return def }
func (t *nopThread) SetErrno(syscall.Errno)            {}
func (t *nopThread) Errno() syscall.Errno              { return 0 }
func (t *nopThread) Detach()                           {}

type bytesHandle struct {
	data   []byte
	cur    int64
	eof    bool
	reads  int
	multis int
	fail   bool
	closed bool
}

func (b *bytesHandle) Seek(off int64, whence int) int {
	switch whence {
	case io.SeekStart:
		b.cur = off
	case io.SeekCurrent:
		b.cur += off
	case io.SeekEnd:
		b.cur = int64(len(b.data)) + off
	}
	b.eof = false
	return 0
}
func (b *bytesHandle) Tell() int64 { return b.cur }
func (b *bytesHandle) Read(t native.Thread, buf []byte, size, count int) int {
	b.reads++
	if b.fail {
		t.Error(native.Failure, native.FileIO, "read failed")
		return 0
	}
	want := size * count
	if b.cur >= int64(len(b.data)) {
		b.eof = true
		return 0
	}
	n := copy(buf[:want], b.data[b.cur:])
	b.cur += int64(n)
	if n < want {
		b.eof = true
	}
	return n / size
}
func (b *bytesHandle) ReadMultiRange(t native.Thread, bufs [][]byte, offsets []int64) int {
	b.multis++
	for i := range bufs {
		copy(bufs[i], b.data[offsets[i]:])
	}
	return 0
}
func (b *bytesHandle) RangeStatus(int64, int64) native.RangeStatus { return native.RangeStatusData }
func (b *bytesHandle) Eof() bool                                   { return b.eof }
func (b *bytesHandle) Write(native.Thread, []byte, int, int) int   { return 0 }
func (b *bytesHandle) Flush(native.Thread) int                     { return 0 }
func (b *bytesHandle) Truncate(native.Thread, int64) int           { return -1 }
func (b *bytesHandle) Close() int {
	b.closed = true
	return 0
}

func testData(n int) []byte {
	d := make([]byte, n)
	for i := range d {
		d[i] = byte(i % 251)
	}
	return d
}

func TestCachedReads(t *testing.T) {
	th := &nopThread{}
	src := &bytesHandle{data: testData(100)}
	h := New(src, 16, 64)

	buf := make([]byte, 10)
	assert.Equal(t, 10, h.Read(th, buf, 1, 10))
	assert.Equal(t, src.data[:10], buf)
	assert.Equal(t, 1, src.reads)

	// same chunk, served from cache
	assert.Equal(t, 0, h.Seek(2, io.SeekStart))
	assert.Equal(t, 5, h.Read(th, buf[:5], 1, 5))
	assert.Equal(t, src.data[2:7], buf[:5])
	assert.Equal(t, 1, src.reads)

	// straddles two chunks
	assert.Equal(t, 0, h.Seek(12, io.SeekStart))
	assert.Equal(t, 10, h.Read(th, buf, 1, 10))
	assert.Equal(t, src.data[12:22], buf)
	assert.Equal(t, 2, src.reads)
	assert.EqualValues(t, 22, h.Tell())
	assert.False(t, h.Eof())
}

func TestCachedElementCount(t *testing.T) {
	th := &nopThread{}
	src := &bytesHandle{data: testData(10)}
	h := New(src, 4, 4)
	buf := make([]byte, 12)
	// 10 bytes available, 3 elements of 4 requested: 2 whole elements
	assert.Equal(t, 2, h.Read(th, buf, 4, 3))
	assert.True(t, h.Eof())
	assert.Equal(t, src.data, buf[:10])
}

func TestCachedEOF(t *testing.T) {
	th := &nopThread{}
	src := &bytesHandle{data: testData(20)}
	h := New(src, 16, 64)
	assert.Equal(t, 0, h.Seek(0, io.SeekEnd))
	assert.EqualValues(t, 20, h.Tell())
	buf := make([]byte, 8)
	assert.Equal(t, 0, h.Read(th, buf, 1, 8))
	assert.True(t, h.Eof())

	assert.Equal(t, 0, h.Seek(-4, io.SeekEnd))
	assert.False(t, h.Eof())
	assert.Equal(t, 4, h.Read(th, buf, 1, 8))
	assert.Equal(t, src.data[16:], buf[:4])
	assert.True(t, h.Eof())
}

func TestCachedFailure(t *testing.T) {
	th := &nopThread{}
	src := &bytesHandle{data: testData(20), fail: true}
	h := New(src, 16, 64)
	buf := make([]byte, 8)
	assert.Equal(t, 0, h.Read(th, buf, 1, 8))
	assert.False(t, h.Eof())
	assert.Equal(t, []string{"read failed"}, th.errs)

	// failures are not cached
	src.fail = false
	assert.Equal(t, 8, h.Read(th, buf, 1, 8))
	assert.Equal(t, src.data[:8], buf)
}

func TestMultiRangeBypassesCache(t *testing.T) {
	th := &nopThread{}
	src := &bytesHandle{data: testData(100)}
	h := New(src, 16, 64)
	bufs := [][]byte{make([]byte, 4), make([]byte, 4)}
	assert.Equal(t, 0, h.ReadMultiRange(th, bufs, []int64{0, 50}))
	assert.Equal(t, 1, src.multis)
	assert.Equal(t, 0, src.reads)
	assert.Equal(t, src.data[50:54], bufs[1])

	assert.Equal(t, 0, h.Close())
	assert.True(t, src.closed)
}
