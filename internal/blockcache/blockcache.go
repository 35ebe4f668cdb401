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

// Package blockcache serves ReadAt requests from fixed-size blocks of a keyed source,
// keeping blocks in a Cacher and making sure that concurrent requests for the same
// block only result in a single call to the source.
package blockcache

import (
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/vburenin/nsync"
	"golang.org/x/sync/errgroup"
)

// KeyReaderAt is the interface that wraps the basic ReadAt method for the specified key
//
// ReadAt reads len(p) bytes from the resource identified by key into p
// starting at offset off. It returns the number of bytes read (0 <= n <= len(p)) and
// any error encountered, with the same semantics as io.ReaderAt.
//
// Clients of ReadAt can execute parallel ReadAt calls on the same input source.
// Implementations must not retain p.
type KeyReaderAt interface {
	ReadAt(key string, p []byte, off int64) (int, error)
}

// Cacher is the interface that wraps block caching functionality
//
// Add inserts data to the cache for the given key and blockID.
//
// Get fetches the data for the given key and blockID. It returns
// the data and wether the data was found in the cache or not
//
// PurgeKey drops every block of the given key, Purge drops everything
type Cacher interface {
	Add(key string, blockID uint, data []byte)
	Get(key string, blockID uint) ([]byte, bool)
	PurgeKey(key string)
	Purge()
}

// NamedOnceMutex is a locker on arbitrary lock names.
type NamedOnceMutex interface {
	//Lock tries to acquire a lock on a keyed resource. If the keyed resource is not already locked,
	//Lock aquires a lock to the resource and returns true. If the keyed resource is already locked,
	//Lock waits until the resource has been unlocked and returns false
	Lock(key interface{}) bool
	//Unlock a keyed resource. Should be called by a client whose call to Lock returned true once the
	//resource is ready for consumption by other clients
	Unlock(key interface{})
}

// BlockCache caches fixed-sized chunks of a KeyReaderAt, and exposes a KeyReaderAt
// that feeds primarily from its internal cache.
//
// Keys are namespaced before reaching the Cacher, so that one Cacher can be shared
// by several BlockCaches reading from different sources.
type BlockCache struct {
	blockSize   int64
	blmu        NamedOnceMutex
	cache       Cacher
	reader      KeyReaderAt
	splitRanges bool
	ns          string
}

// New creates a BlockCache reading blockSize chunks from reader. When split is true,
// a request spanning several missing blocks issues one request per block instead of
// a single request per run of consecutive blocks.
func New(reader KeyReaderAt, cache Cacher, blockSize uint, split bool) *BlockCache {
	if blockSize == 0 {
		panic("invalid block size")
	}
	return &BlockCache{
		blmu:        nsync.NewNamedOnceMutex(),
		cache:       cache,
		blockSize:   int64(blockSize),
		reader:      reader,
		splitRanges: split,
		ns:          uuid.NewString() + "/",
	}
}

// SetLocker replaces the default in-process block locker
func (b *BlockCache) SetLocker(mu NamedOnceMutex) {
	b.blmu = mu
}

// PurgeKey drops the cached blocks of key
func (b *BlockCache) PurgeKey(key string) {
	b.cache.PurgeKey(b.ns + key)
}

// Purge empties the underlying Cacher, including blocks added by other BlockCaches
func (b *BlockCache) Purge() {
	b.cache.Purge()
}

type blockRange struct {
	start int64
	end   int64
}

// blockLock identifies a block being fetched
type blockLock struct {
	key uint64
	id  int64
}

func (b *BlockCache) blockKey(key string, id int64) blockLock {
	return blockLock{key: xxhash.Sum64String(key), id: id}
}

func (b *BlockCache) getRange(key string, rng blockRange) ([][]byte, error) {
	blocks := make([][]byte, rng.end-rng.start+1)
	if rng.start == rng.end {
		var err error
		blocks[0], err = b.getBlock(key, rng.start)
		return blocks, err
	}
	done := make(chan struct{})
	defer close(done)
	for i := rng.start; i <= rng.end; i++ {
		go func() {
			blockID := b.blockKey(key, i)
			if b.blmu.Lock(blockID) {
				<-done
				b.blmu.Unlock(blockID)
			}
		}()
	}
	buf := make([]byte, (rng.end-rng.start+1)*b.blockSize)
	n, err := b.reader.ReadAt(key, buf, rng.start*b.blockSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	left := int64(n)
	for bid := int64(0); bid <= rng.end-rng.start && left > 0; bid++ {
		ll := min(left, b.blockSize)
		blocks[bid] = make([]byte, ll)
		copy(blocks[bid], buf[bid*b.blockSize:bid*b.blockSize+ll])
		left -= ll
		b.cache.Add(b.ns+key, uint(rng.start+bid), blocks[bid])
	}
	return blocks, nil
}

// applyBlock copies the parts of block that overlap the requested buffers
func (b *BlockCache) applyBlock(mu *sync.Mutex, block int64, data []byte, written []int, bufs [][]byte, offsets []int64) {
	if len(data) == 0 {
		return
	}
	blockStart := block * b.blockSize
	blockEnd := blockStart + int64(len(data))
	for ibuf := range bufs {
		bufEnd := offsets[ibuf] + int64(len(bufs[ibuf]))
		if blockStart >= bufEnd || blockEnd <= offsets[ibuf] {
			continue
		}
		from, to := max(blockStart, offsets[ibuf]), min(blockEnd, bufEnd)
		mu.Lock()
		written[ibuf] += copy(bufs[ibuf][from-offsets[ibuf]:], data[from-blockStart:to-blockStart])
		mu.Unlock()
	}
}

func (b *BlockCache) blockIDs(bufs [][]byte, offsets []int64) []int64 {
	var ids []int64
	for ibuf := range bufs {
		if len(bufs[ibuf]) == 0 {
			continue
		}
		first := offsets[ibuf] / b.blockSize
		last := (offsets[ibuf] + int64(len(bufs[ibuf])) - 1) / b.blockSize
		for id := first; id <= last; id++ {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// consecutive groups sorted block ids into runs
func consecutive(ids []int64) []blockRange {
	var rngs []blockRange
	for i, id := range ids {
		if i > 0 && id == ids[i-1]+1 {
			rngs[len(rngs)-1].end = id
			continue
		}
		rngs = append(rngs, blockRange{start: id, end: id})
	}
	return rngs
}

// ReadAtMulti fills every bufs[i] from offsets[i]. It returns the number of bytes
// written in each buffer, and io.EOF if any of them could not be filled entirely.
func (b *BlockCache) ReadAtMulti(key string, bufs [][]byte, offsets []int64) ([]int, error) {
	written := make([]int, len(bufs))
	mu := &sync.Mutex{}
	var g errgroup.Group

	ids := b.blockIDs(bufs, offsets)
	if b.splitRanges {
		for _, id := range ids {
			g.Go(func() error {
				data, err := b.getBlock(key, id)
				if err != nil {
					return err
				}
				b.applyBlock(mu, id, data, written, bufs, offsets)
				return nil
			})
		}
	} else {
		missing := make([]int64, 0, len(ids))
		for _, id := range ids {
			if data, ok := b.cache.Get(b.ns+key, uint(id)); ok {
				b.applyBlock(mu, id, data, written, bufs, offsets)
			} else {
				missing = append(missing, id)
			}
		}
		for _, rng := range consecutive(missing) {
			g.Go(func() error {
				blocks, err := b.getRange(key, rng)
				if err != nil {
					return err
				}
				for ib := range blocks {
					b.applyBlock(mu, rng.start+int64(ib), blocks[ib], written, bufs, offsets)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return written, err
	}
	for i, buf := range bufs {
		if written[i] != len(buf) {
			return written, io.EOF
		}
	}
	return written, nil
}

// ReadAt reads len(p) bytes at off, see ReadAtMulti
func (b *BlockCache) ReadAt(key string, p []byte, off int64) (int, error) {
	written, err := b.ReadAtMulti(key, [][]byte{p}, []int64{off})
	return written[0], err
}

func (b *BlockCache) getBlock(key string, id int64) ([]byte, error) {
	blockID := b.blockKey(key, id)
	for {
		if data, ok := b.cache.Get(b.ns+key, uint(id)); ok {
			return data, nil
		}
		if !b.blmu.Lock(blockID) {
			// fetched concurrently, recheck from cache
			continue
		}
		buf := make([]byte, b.blockSize)
		n, err := b.reader.ReadAt(key, buf, id*b.blockSize)
		if err != nil && !errors.Is(err, io.EOF) {
			b.blmu.Unlock(blockID)
			return nil, err
		}
		if n > 0 {
			buf = buf[0:n]
		} else {
			buf = nil
		}
		b.cache.Add(b.ns+key, uint(id), buf)
		b.blmu.Unlock(blockID)
		return buf, nil
	}
}
