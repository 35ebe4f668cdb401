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

package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"

	"github.com/airbusgeo/gdalbridge"
	"github.com/airbusgeo/gdalbridge/internal/envopts"
	"github.com/airbusgeo/gdalbridge/memengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Parse(t *testing.T) {
	b, o := s3parse("bucket/path/to/obj.tif")
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "path/to/obj.tif", o)
	b, o = s3parse("/bucket/obj")
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "obj", o)
	_, o = s3parse("bucket")
	assert.Equal(t, "", o)
}

func TestTotalSize(t *testing.T) {
	sz, ok := totalSize("bytes 0-9/1234")
	assert.True(t, ok)
	assert.Equal(t, int64(1234), sz)
	_, ok = totalSize("bytes 0-9/*")
	assert.False(t, ok)
	_, ok = totalSize("")
	assert.False(t, ok)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv(envopts.BlockSizeVar, "")
	t.Setenv(envopts.NumBlocksVar, "")
	t.Setenv(envopts.SplitRangesVar, "")
	assert.Empty(t, OptionsFromEnv())

	t.Setenv(envopts.BlockSizeVar, "64k")
	t.Setenv(envopts.NumBlocksVar, "8")
	h := &Handler{}
	for _, o := range OptionsFromEnv() {
		o(h)
	}
	assert.Equal(t, 64*1024, h.blockSize)
	assert.Equal(t, 8, h.maxCachedBlocks)
	assert.False(t, h.splitRanges)
}

func TestOptionPanics(t *testing.T) {
	assert.Panics(t, func() { BlockSize(-1) })
	assert.Panics(t, func() { MaxCachedBlocks(0) })
	assert.Panics(t, func() { MaxCachedMetadatas(0) })
	assert.Panics(t, func() { VSIHandleBuffer(1) })
	assert.Panics(t, func() { VSIHandleCache(1) })
}

type fakeS3 struct {
	data  []byte
	heads int32
	gets  int32
}

func s3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/bucket/obj.bin" {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		s3Error(w, http.StatusNotFound, "NoSuchKey")
		return
	}
	size := int64(len(f.data))
	switch r.Method {
	case http.MethodHead:
		atomic.AddInt32(&f.heads, 1)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		atomic.AddInt32(&f.gets, 1)
		rng, ok := strings.CutPrefix(r.Header.Get("Range"), "bytes=")
		if !ok {
			w.Write(f.data)
			return
		}
		first, last, _ := strings.Cut(rng, "-")
		start, _ := strconv.ParseInt(first, 10, 64)
		end, _ := strconv.ParseInt(last, 10, 64)
		if start >= size {
			s3Error(w, http.StatusRequestedRangeNotSatisfiable, "InvalidRange")
			return
		}
		if end >= size {
			end = size - 1
		}
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(f.data[start : end+1])
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFake(t *testing.T) (*fakeS3, Config) {
	f := &fakeS3{data: make([]byte, 3000)}
	for i := range f.data {
		f.data[i] = byte(i % 251)
	}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, Config{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "SECRETTEST",
		ForcePathStyle:  true,
	}
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	f, cfg := newFake(t)
	h, err := NewHandler(ctx, WithConfig(cfg), BlockSize(1024))
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := h.ReadAt("bucket/obj.bin", buf, 1500)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, f.data[1500:1510], buf)

	// the size is learnt from the ranged response
	sz, err := h.Size("bucket/obj.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), sz)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.heads))

	buf = make([]byte, 100)
	n, err = h.ReadAt("bucket/obj.bin", buf, 2950)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 50, n)
	assert.Equal(t, f.data[2950:], buf[:50])

	_, err = h.ReadAt("bucket/obj.bin", buf, 3000)
	assert.ErrorIs(t, err, io.EOF)

	bufs := [][]byte{make([]byte, 4), make([]byte, 4)}
	ns, err := h.ReadAtMulti("bucket/obj.bin", bufs, []int64{0, 2048})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, ns)
	assert.Equal(t, f.data[0:4], bufs[0])
	assert.Equal(t, f.data[2048:2052], bufs[1])
}

func TestHandlerMissing(t *testing.T) {
	ctx := context.Background()
	f, cfg := newFake(t)
	h, err := NewHandler(ctx, WithConfig(cfg))
	require.NoError(t, err)

	_, err = h.Size("bucket/missing.bin")
	assert.ErrorIs(t, err, syscall.ENOENT)
	_, err = h.ReadAt("bucket/missing.bin", make([]byte, 4), 0)
	assert.ErrorIs(t, err, syscall.ENOENT)
	_, err = h.Size("bucket")
	assert.ErrorIs(t, err, syscall.ENOENT)

	sz, err := h.Size("bucket/obj.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), sz)
	_, _ = h.Size("bucket/obj.bin")
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.heads))
}

func TestRegisterOnBridge(t *testing.T) {
	ctx := context.Background()
	f, cfg := newFake(t)
	b := gdalbridge.New(memengine.New())
	require.NoError(t, RegisterHandler(ctx, b, Prefix("fakes3://"), WithConfig(cfg)))
	err := RegisterHandler(ctx, b, Prefix("fakes3://"), WithConfig(cfg))
	assert.EqualError(t, err, "handler already registered on prefix")

	vf, err := b.VSIOpen("fakes3://bucket/obj.bin")
	require.NoError(t, err)
	defer vf.Close()
	data, err := io.ReadAll(vf)
	require.NoError(t, err)
	assert.Equal(t, f.data, data)

	_, err = b.VSIOpen("fakes3://bucket/missing.bin")
	assert.ErrorIs(t, err, syscall.ENOENT)
}
