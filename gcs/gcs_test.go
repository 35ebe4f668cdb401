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

package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/gdalbridge"
	"github.com/airbusgeo/gdalbridge/internal/envopts"
	"github.com/airbusgeo/gdalbridge/memengine"
	"github.com/airbusgeo/gdalbridge/pkg/blockcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestGCSParse(t *testing.T) {
	b, o := gcsparse("bucket/path/to/obj.tif")
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "path/to/obj.tif", o)
	b, o = gcsparse("/bucket/obj")
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "obj", o)
	b, o = gcsparse("bucket")
	assert.Equal(t, "bucket", b)
	assert.Equal(t, "", o)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv(envopts.BlockSizeVar, "")
	t.Setenv(envopts.NumBlocksVar, "")
	t.Setenv(envopts.SplitRangesVar, "")
	assert.Empty(t, OptionsFromEnv())

	t.Setenv(envopts.BlockSizeVar, "2M")
	t.Setenv(envopts.NumBlocksVar, "32")
	t.Setenv(envopts.SplitRangesVar, "1")
	h := &Handler{}
	for _, o := range OptionsFromEnv() {
		o(h)
	}
	assert.Equal(t, 2*1024*1024, h.blockSize)
	assert.Equal(t, 32, h.maxCachedBlocks)
	assert.True(t, h.splitRanges)
}

func TestOptionPanics(t *testing.T) {
	assert.Panics(t, func() { BlockSize(0) })
	assert.Panics(t, func() { MaxCachedBlocks(0) })
	assert.Panics(t, func() { MaxCachedMetadatas(0) })
	assert.Panics(t, func() { VSIHandleBuffer(12) })
	assert.Panics(t, func() { VSIHandleCache(12) })
	assert.NotPanics(t, func() { VSIHandleBuffer(0) })
}

// fakeMetadataServer answers object metadata requests of the JSON API
func fakeMetadataServer(t *testing.T, calls *int32) *storage.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/storage/v1/b/bucket/o/obj.tif":
			_, _ = w.Write([]byte(`{"bucket":"bucket","name":"obj.tif","size":"1234"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
		}
	}))
	t.Cleanup(srv.Close)
	cl, err := storage.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication())
	require.NoError(t, err)
	return cl
}

func TestSizeCache(t *testing.T) {
	var calls int32
	h, err := NewHandler(context.Background(), Client(fakeMetadataServer(t, &calls)))
	require.NoError(t, err)

	sz, err := h.Size("bucket/obj.tif")
	assert.NoError(t, err)
	assert.Equal(t, int64(1234), sz)
	sz, _ = h.Size("bucket/obj.tif")
	assert.Equal(t, int64(1234), sz)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = h.Size("bucket/missing.tif")
	assert.ErrorIs(t, err, syscall.ENOENT)
	_, err = h.Size("bucket/missing.tif")
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	_, err = h.Size("bucket")
	assert.ErrorIs(t, err, syscall.ENOENT)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	// known sizes and missing objects are answered without reaching the storage API
	_, err = h.ReadAt("bucket/missing.tif", make([]byte, 4), 0)
	assert.ErrorIs(t, err, syscall.ENOENT)
	_, err = h.ReadAt("bucket/obj.tif", make([]byte, 4), 1234)
	assert.ErrorIs(t, err, io.EOF)
	_, err = h.ReadAtMulti("bucket/obj.tif", [][]byte{make([]byte, 4), make([]byte, 4)}, []int64{0, 2000})
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRegisterOnBridge(t *testing.T) {
	var calls int32
	b := gdalbridge.New(memengine.New())
	cl := fakeMetadataServer(t, &calls)
	require.NoError(t, RegisterHandler(context.Background(), b, Prefix("fakegs://"), Client(cl)))
	err := RegisterHandler(context.Background(), b, Prefix("fakegs://"), Client(cl))
	assert.EqualError(t, err, "handler already registered on prefix")

	_, err = b.VSIOpen("fakegs://bucket/missing.tif")
	assert.ErrorIs(t, err, syscall.ENOENT)
}

func isTIFF(data []byte) bool {
	return len(data) == 4 && (string(data) == "II*\x00" || string(data) == "MM\x00*")
}

func TestVSIGCS(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewClient(ctx, option.WithoutAuthentication())
	if err != nil {
		t.Skipf("failed to create gcs client: %v", err)
	}
	h, err := NewHandler(ctx, Client(st))
	require.NoError(t, err)
	if _, err := h.Size("godal-ci-data/test.tif"); err != nil {
		t.Skipf("skip test on unreachable bucket: %v", err)
	}

	b := gdalbridge.New(memengine.New())
	cacher, _ := blockcache.NewCache(10)
	require.NoError(t, RegisterHandler(ctx, b, Prefix("gdalgs://"), Client(st), Cacher(cacher)))
	vf, err := b.VSIOpen("gdalgs://godal-ci-data/test.tif")
	require.NoError(t, err)
	defer vf.Close()
	magic := make([]byte, 4)
	_, err = io.ReadFull(vf, magic)
	assert.NoError(t, err)
	assert.True(t, isTIFF(magic), "%q", magic)

	_, err = b.VSIOpen("gdalgs://godal-ci-data/gdd/doesnotexist.tif")
	assert.True(t, errors.Is(err, syscall.ENOENT), "ENOENT not raised: %v", err)
	_, err = b.VSIOpen("gdalgs://godal-fake-test/gdaltesdata/doesnotexist.tif")
	assert.Error(t, err)
}

func TestVSIGCSOSIO(t *testing.T) {
	ctx := context.Background()
	st, err := storage.NewClient(ctx, option.WithoutAuthentication())
	if err != nil {
		t.Skipf("failed to create gcs client: %v", err)
	}
	if _, err := st.Bucket("godal-ci-data").Object("test.tif").Attrs(ctx); err != nil {
		t.Skipf("skip test on unreachable bucket: %v", err)
	}
	b := gdalbridge.New(memengine.New())
	require.NoError(t, RegisterOSIOHandler(ctx, b, "osiogs://", st))
	vf, err := b.VSIOpen("osiogs://godal-ci-data/test.tif")
	require.NoError(t, err)
	defer vf.Close()
	magic := make([]byte, 4)
	_, err = io.ReadFull(vf, magic)
	assert.NoError(t, err)
	assert.True(t, isTIFF(magic), "%q", magic)
}
