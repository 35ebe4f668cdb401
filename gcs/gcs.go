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

// Package gcs serves Google Cloud Storage objects to a gdalbridge.Bridge, i.e.
// opening "gs://bucket/path/to/object.tif" reads the object through the storage API.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/airbusgeo/gdalbridge"
	"github.com/airbusgeo/gdalbridge/internal/blockcache"
	"github.com/airbusgeo/gdalbridge/internal/envopts"
	"github.com/airbusgeo/osio"
	osiogcs "github.com/airbusgeo/osio/gcs"
	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/api/googleapi"
)

// Handler is a gdalbridge.KeySizerReaderAt and gdalbridge.KeyMultiReader reading
// "bucket/object" keys
type Handler struct {
	ctx                context.Context
	prefix             string
	client             *storage.Client
	cacher             blockcache.Cacher
	blockSize          int
	maxCachedBlocks    int
	maxCachedMetadatas int
	handleBufferSize   int
	handleCacheSize    int
	blockCache         *blockcache.BlockCache
	sizecache          *lru.Cache
	billingProjectID   string
	splitRanges        bool
}

var (
	_ gdalbridge.KeySizerReaderAt = (*Handler)(nil)
	_ gdalbridge.KeyMultiReader   = (*Handler)(nil)
)

//Option is an option that can be passed to RegisterHandler
type Option func(o *Handler)

// Prefix is the prefix that a file must have in order to be handled by this handler
// Defaults to "gs://", i.e. this handler will be used when calling bridge.Open("gs://mybucket/myfile.tif")
func Prefix(prefix string) Option {
	return func(o *Handler) {
		o.prefix = prefix
	}
}

// Client sets the cloud.google.com/go/storage.Client that will be used
// by the handler
func Client(cl *storage.Client) Option {
	return func(o *Handler) {
		o.client = cl
	}
}

// Cacher allows to plugin a custom cache mechanism instead of the default in
// memory lru cache (see the pkg/blockcache package). MaxCachedBlocks() will not be
// honored if you provide your own cacher, it is up to your cacher implementation
// to handle block eviction
func Cacher(cacher blockcache.Cacher) Option {
	return func(o *Handler) {
		o.cacher = cacher
	}
}

// BlockSize sets the size of requests that will go out to the storage API.
// Defaults to 1Mb
func BlockSize(bs int) Option {
	if bs < 1 {
		panic("invalid blocksize")
	}
	return func(o *Handler) {
		o.blockSize = bs
	}
}

// MaxCachedBlocks sets the number of blocks to keep in the lru cache.
// Defaults to 1000
func MaxCachedBlocks(n int) Option {
	if n < 1 {
		panic("invalid max cached blocks")
	}
	return func(o *Handler) {
		o.maxCachedBlocks = n
	}
}

// VSIHandleBuffer sets gdalbridge.VSIHandlerBufferSize. 0 disables engine side caching.
func VSIHandleBuffer(n int) Option {
	if n != 0 && n < 1024 {
		panic("invalid handle buffer")
	}
	return func(o *Handler) {
		o.handleBufferSize = n
	}
}

// VSIHandleCache sets gdalbridge.VSIHandlerCacheSize
func VSIHandleCache(n int) Option {
	if n != 0 && n < 1024 {
		panic("invalid handle cache")
	}
	return func(o *Handler) {
		o.handleCacheSize = n
	}
}

// BillingProject sets the project name which should be billed for the requests.
// This is mandatory if the bucket is in requester-pays mode.
func BillingProject(projectID string) Option {
	return func(o *Handler) {
		o.billingProjectID = projectID
	}
}

//SplitConsecutiveRanges forces multiple parallel requests for individual blocks
//when a requested chunk spans multiple blocks, instead of emitting a single request
//spanning multiple blocks. Can be useful for e.g. a tile server processing concurrent
//requests on neighbouring image regions.
func SplitConsecutiveRanges(split bool) Option {
	return func(o *Handler) {
		o.splitRanges = split
	}
}

//MaxCachedMetadatas sets the number of filenames whose size will be kept in cache.
//This also accounts for non-existing files (i.e. calling Open() twice on a non-exisiting file
//will not result in an API call going to the storage endpoint the second time
func MaxCachedMetadatas(n int) Option {
	if n < 1 {
		panic("invalid max cached metadatas")
	}
	return func(o *Handler) {
		o.maxCachedMetadatas = n
	}
}

// OptionsFromEnv returns the options set through the GODAL_BLOCKSIZE, GODAL_NUMBLOCKS
// and GODAL_SPLIT_CONSECUTIVE_RANGES environment variables
func OptionsFromEnv() []Option {
	opts := []Option{}
	if bs := envopts.BlockSize(); bs > 0 {
		opts = append(opts, BlockSize(bs))
	}
	if nb := envopts.NumBlocks(0); nb > 0 {
		opts = append(opts, MaxCachedBlocks(nb))
	}
	if envopts.SplitRanges() {
		opts = append(opts, SplitConsecutiveRanges(true))
	}
	return opts
}

// NewHandler creates a Handler. A storage client is created with default credentials
// unless one is given with the Client option.
func NewHandler(ctx context.Context, opts ...Option) (*Handler, error) {
	handler := &Handler{
		ctx:                ctx,
		prefix:             "gs://",
		blockSize:          1024 * 1024,
		maxCachedBlocks:    1000,
		handleBufferSize:   64 * 1024,
		handleCacheSize:    64 * 1024 * 2,
		maxCachedMetadatas: 10000,
	}
	for _, o := range opts {
		o(handler)
	}
	handler.sizecache, _ = lru.New(handler.maxCachedMetadatas)
	if handler.client == nil {
		cl, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage.newclient: %w", err)
		}
		handler.client = cl
	}
	if handler.cacher == nil {
		handler.cacher, _ = blockcache.NewCache(uint(handler.maxCachedBlocks))
	}
	handler.blockCache = blockcache.New(gcsSource{handler}, handler.cacher, uint(handler.blockSize), handler.splitRanges)
	return handler, nil
}

// RegisterHandler registers a handler on b in order to use cloud.google.com/go/storage
// APIs to access objects on cloud storage buckets
func RegisterHandler(ctx context.Context, b *gdalbridge.Bridge, opts ...Option) error {
	handler, err := NewHandler(ctx, opts...)
	if err != nil {
		return err
	}
	return b.RegisterVSIHandler(handler.prefix, handler,
		gdalbridge.VSIHandlerBufferSize(handler.handleBufferSize),
		gdalbridge.VSIHandlerCacheSize(handler.handleCacheSize))
}

// RegisterOSIOHandler registers an osio adapter over GCS on prefix. Block size and
// count are read from GODAL_BLOCKSIZE (default 512k) and GODAL_NUMBLOCKS (default 1024).
func RegisterOSIOHandler(ctx context.Context, b *gdalbridge.Bridge, prefix string, client *storage.Client) error {
	if client == nil {
		var err error
		if client, err = storage.NewClient(ctx); err != nil {
			return fmt.Errorf("storage.newclient: %w", err)
		}
	}
	gcsh, err := osiogcs.Handle(ctx, osiogcs.GCSClient(client))
	if err != nil {
		return fmt.Errorf("osio gcs handle: %w", err)
	}
	adapter, err := osio.NewAdapter(gcsh,
		osio.BlockSize(envopts.BlockSizeString("512k")),
		osio.NumCachedBlocks(envopts.NumBlocks(1024)))
	if err != nil {
		return fmt.Errorf("osio.newadapter: %w", err)
	}
	return b.RegisterVSIHandler(prefix, adapter)
}

func gcsparse(gsUri string) (bucket, object string) {
	gsUri = strings.TrimPrefix(gsUri, "/")
	bucket, object, _ = strings.Cut(gsUri, "/")
	return
}

func (gcs *Handler) precheck(key string, offs ...int64) error {
	s, ok := gcs.sizecache.Get(key)
	if !ok {
		return nil
	}
	s64 := s.(int64)
	if s64 == -1 {
		return syscall.ENOENT
	}
	for _, off := range offs {
		if off >= s64 {
			return io.EOF
		}
	}
	return nil
}

func (gcs *Handler) bucket(name string) *storage.BucketHandle {
	gbucket := gcs.client.Bucket(name)
	if gcs.billingProjectID != "" {
		gbucket = gbucket.UserProject(gcs.billingProjectID)
	}
	return gbucket
}

// Size returns the size of the object, and an error wrapping syscall.ENOENT if it
// does not exist. Sizes and missing objects are cached.
func (gcs *Handler) Size(key string) (int64, error) {
	if s, ok := gcs.sizecache.Get(key); ok {
		if s.(int64) == -1 {
			return -1, fmt.Errorf("gs://%s: %w", key, syscall.ENOENT)
		}
		return s.(int64), nil
	}
	bucket, object := gcsparse(key)
	if len(bucket) == 0 || len(object) == 0 {
		return -1, fmt.Errorf("invalid key %q: %w", key, syscall.ENOENT)
	}
	attrs, err := gcs.bucket(bucket).Object(object).Attrs(gcs.ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			gcs.sizecache.Add(key, int64(-1))
			return -1, fmt.Errorf("gs://%s: %w", key, syscall.ENOENT)
		}
		return -1, fmt.Errorf("attrs gs://%s: %w", key, err)
	}
	gcs.sizecache.Add(key, attrs.Size)
	return attrs.Size, nil
}

// ReadAt reads from the block cache
func (gcs *Handler) ReadAt(key string, p []byte, off int64) (int, error) {
	if err := gcs.precheck(key, off); err != nil {
		return 0, err
	}
	return gcs.blockCache.ReadAt(key, p, off)
}

// ReadAtMulti reads every range from the block cache
func (gcs *Handler) ReadAtMulti(key string, bufs [][]byte, offs []int64) ([]int, error) {
	if err := gcs.precheck(key, offs...); err != nil {
		return nil, err
	}
	return gcs.blockCache.ReadAtMulti(key, bufs, offs)
}

// gcsSource feeds the block cache with ranged reads
type gcsSource struct {
	gcs *Handler
}

func (src gcsSource) ReadAt(key string, p []byte, off int64) (int, error) {
	gcs := src.gcs
	bucket, object := gcsparse(key)
	if len(bucket) == 0 || len(object) == 0 {
		return 0, fmt.Errorf("invalid key")
	}
	r, err := gcs.bucket(bucket).Object(object).NewRangeReader(gcs.ctx, off, int64(len(p)))
	if err != nil {
		var gerr *googleapi.Error
		if off > 0 && errors.As(err, &gerr) && gerr.Code == 416 {
			return 0, io.EOF
		}
		if errors.Is(err, storage.ErrObjectNotExist) {
			gcs.sizecache.Add(key, int64(-1))
			return 0, syscall.ENOENT
		}
		return 0, fmt.Errorf("new reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()
	if sz := r.Attrs.Size; sz > 0 {
		gcs.sizecache.Add(key, sz)
	}
	n, err := io.ReadFull(r, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}
