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

// Package s3 serves Amazon S3 (or S3-compatible) objects to a gdalbridge.Bridge, i.e.
// opening "s3://bucket/path/to/object.tif" reads the object through the S3 API.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"syscall"

	"github.com/airbusgeo/gdalbridge"
	"github.com/airbusgeo/gdalbridge/internal/blockcache"
	"github.com/airbusgeo/gdalbridge/internal/envopts"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	lru "github.com/hashicorp/golang-lru"
)

// Config holds the settings used to build an S3 client when none is given with
// the Client option
type Config struct {
	Region          string
	Endpoint        string // For MinIO or other S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool // Required for MinIO
}

// Handler is a gdalbridge.KeySizerReaderAt and gdalbridge.KeyMultiReader reading
// "bucket/key" keys
type Handler struct {
	ctx                context.Context
	prefix             string
	client             *s3.Client
	config             Config
	cacher             blockcache.Cacher
	blockSize          int
	maxCachedBlocks    int
	maxCachedMetadatas int
	handleBufferSize   int
	handleCacheSize    int
	blockCache         *blockcache.BlockCache
	sizecache          *lru.Cache
	requestPayer       bool
	splitRanges        bool
}

var (
	_ gdalbridge.KeySizerReaderAt = (*Handler)(nil)
	_ gdalbridge.KeyMultiReader   = (*Handler)(nil)
)

// Option is an option that can be passed to NewHandler or RegisterHandler
type Option func(o *Handler)

// Prefix defaults to "s3://"
func Prefix(prefix string) Option {
	return func(o *Handler) {
		o.prefix = prefix
	}
}

// Client sets the S3 client. Config is ignored when a client is provided.
func Client(cl *s3.Client) Option {
	return func(o *Handler) {
		o.client = cl
	}
}

// WithConfig sets how the S3 client is built
func WithConfig(cfg Config) Option {
	return func(o *Handler) {
		o.config = cfg
	}
}

// Cacher replaces the default in memory lru block cache
func Cacher(cacher blockcache.Cacher) Option {
	return func(o *Handler) {
		o.cacher = cacher
	}
}

// BlockSize sets the size of the requests sent to S3. Defaults to 512k
func BlockSize(bs int) Option {
	if bs < 1 {
		panic("invalid blocksize")
	}
	return func(o *Handler) {
		o.blockSize = bs
	}
}

// MaxCachedBlocks sets the number of blocks kept by the default cacher. Defaults to 1024
func MaxCachedBlocks(n int) Option {
	if n < 1 {
		panic("invalid max cached blocks")
	}
	return func(o *Handler) {
		o.maxCachedBlocks = n
	}
}

// MaxCachedMetadatas sets the number of object sizes kept in cache, missing objects included
func MaxCachedMetadatas(n int) Option {
	if n < 1 {
		panic("invalid max cached metadatas")
	}
	return func(o *Handler) {
		o.maxCachedMetadatas = n
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

// RequestPayer flags every request as accepting the charges of a requester-pays bucket
func RequestPayer() Option {
	return func(o *Handler) {
		o.requestPayer = true
	}
}

// SplitConsecutiveRanges issues one request per block instead of one per run of blocks
func SplitConsecutiveRanges(split bool) Option {
	return func(o *Handler) {
		o.splitRanges = split
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

func newClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// NewHandler creates a Handler
func NewHandler(ctx context.Context, opts ...Option) (*Handler, error) {
	handler := &Handler{
		ctx:                ctx,
		prefix:             "s3://",
		blockSize:          512 * 1024,
		maxCachedBlocks:    1024,
		maxCachedMetadatas: 10000,
		handleBufferSize:   64 * 1024,
		handleCacheSize:    64 * 1024 * 2,
	}
	for _, o := range opts {
		o(handler)
	}
	handler.sizecache, _ = lru.New(handler.maxCachedMetadatas)
	if handler.client == nil {
		cl, err := newClient(ctx, handler.config)
		if err != nil {
			return nil, err
		}
		handler.client = cl
	}
	if handler.cacher == nil {
		handler.cacher, _ = blockcache.NewCache(uint(handler.maxCachedBlocks))
	}
	handler.blockCache = blockcache.New(s3Source{handler}, handler.cacher, uint(handler.blockSize), handler.splitRanges)
	return handler, nil
}

// RegisterHandler creates a Handler and registers it on b
func RegisterHandler(ctx context.Context, b *gdalbridge.Bridge, opts ...Option) error {
	handler, err := NewHandler(ctx, opts...)
	if err != nil {
		return err
	}
	return b.RegisterVSIHandler(handler.prefix, handler,
		gdalbridge.VSIHandlerBufferSize(handler.handleBufferSize),
		gdalbridge.VSIHandlerCacheSize(handler.handleCacheSize))
}

func s3parse(key string) (bucket, object string) {
	key = strings.TrimPrefix(key, "/")
	bucket, object, _ = strings.Cut(key, "/")
	return
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

func isInvalidRange(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRange"
}

func (h *Handler) payer() types.RequestPayer {
	if h.requestPayer {
		return types.RequestPayerRequester
	}
	return ""
}

func (h *Handler) precheck(key string, offs ...int64) error {
	s, ok := h.sizecache.Get(key)
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

// Size returns the size of the object, and an error wrapping syscall.ENOENT if it
// does not exist. Sizes and missing objects are cached.
func (h *Handler) Size(key string) (int64, error) {
	if s, ok := h.sizecache.Get(key); ok {
		if s.(int64) == -1 {
			return -1, fmt.Errorf("s3://%s: %w", key, syscall.ENOENT)
		}
		return s.(int64), nil
	}
	bucket, object := s3parse(key)
	if bucket == "" || object == "" {
		return -1, fmt.Errorf("invalid key %q: %w", key, syscall.ENOENT)
	}
	out, err := h.client.HeadObject(h.ctx, &s3.HeadObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(object),
		RequestPayer: h.payer(),
	})
	if err != nil {
		if isNotFound(err) {
			h.sizecache.Add(key, int64(-1))
			return -1, fmt.Errorf("s3://%s: %w", key, syscall.ENOENT)
		}
		return -1, fmt.Errorf("head s3://%s: %w", key, err)
	}
	size := aws.ToInt64(out.ContentLength)
	h.sizecache.Add(key, size)
	return size, nil
}

// ReadAt reads from the block cache
func (h *Handler) ReadAt(key string, p []byte, off int64) (int, error) {
	if err := h.precheck(key, off); err != nil {
		return 0, err
	}
	return h.blockCache.ReadAt(key, p, off)
}

// ReadAtMulti reads every range from the block cache
func (h *Handler) ReadAtMulti(key string, bufs [][]byte, offs []int64) ([]int, error) {
	if err := h.precheck(key, offs...); err != nil {
		return nil, err
	}
	return h.blockCache.ReadAtMulti(key, bufs, offs)
}

// totalSize extracts the object size from a "bytes 0-9/1234" content range
func totalSize(contentRange string) (int64, bool) {
	_, total, ok := strings.Cut(contentRange, "/")
	if !ok || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	return n, err == nil
}

// s3Source feeds the block cache with ranged GetObject requests
type s3Source struct {
	h *Handler
}

func (src s3Source) ReadAt(key string, p []byte, off int64) (int, error) {
	h := src.h
	bucket, object := s3parse(key)
	if bucket == "" || object == "" {
		return 0, fmt.Errorf("invalid key")
	}
	if len(p) == 0 {
		return 0, nil
	}
	out, err := h.client.GetObject(h.ctx, &s3.GetObjectInput{
		Bucket:       aws.String(bucket),
		Key:          aws.String(object),
		Range:        aws.String(fmt.Sprintf("bytes=%d-%d", off, off+int64(len(p))-1)),
		RequestPayer: h.payer(),
	})
	if err != nil {
		if off > 0 && isInvalidRange(err) {
			return 0, io.EOF
		}
		if isNotFound(err) {
			h.sizecache.Add(key, int64(-1))
			return 0, syscall.ENOENT
		}
		return 0, fmt.Errorf("get s3://%s/%s: %w", bucket, object, err)
	}
	defer out.Body.Close()
	if sz, ok := totalSize(aws.ToString(out.ContentRange)); ok {
		h.sizecache.Add(key, sz)
	}
	n, err := io.ReadFull(out.Body, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}
