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

// Package vsicache provides the caching decorator the engines wrap around virtual
// file handles. Sequential reads are served from fixed-size chunks kept in an LRU;
// multi-range reads bypass the cache and go straight to the wrapped handle.
package vsicache

import (
	"io"

	"github.com/airbusgeo/gdalbridge/native"
	lru "github.com/hashicorp/golang-lru"
)

// Handle is a native.VirtualHandle that caches chunks of the handle it wraps
type Handle struct {
	h         native.VirtualHandle
	chunkSize int64
	chunks    *lru.Cache
	cur       int64
	size      int64
	eof       bool
}

var _ native.VirtualHandle = (*Handle)(nil)

// New wraps h. chunkSize is the read-ahead granularity and cacheSize the number of
// bytes kept in memory, rounded up to at least one chunk.
func New(h native.VirtualHandle, chunkSize, cacheSize int) *Handle {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	n := cacheSize / chunkSize
	if n < 1 {
		n = 1
	}
	c, _ := lru.New(n) // only fails for n <= 0
	return &Handle{
		h:         h,
		chunkSize: int64(chunkSize),
		chunks:    c,
		size:      -1,
	}
}

func (c *Handle) chunk(t native.Thread, id int64) ([]byte, bool) {
	if d, ok := c.chunks.Get(id); ok {
		return d.([]byte), true
	}
	if c.h.Seek(id*c.chunkSize, io.SeekStart) != 0 {
		return nil, false
	}
	buf := make([]byte, c.chunkSize)
	n := c.h.Read(t, buf, 1, len(buf))
	if n < len(buf) && !c.h.Eof() {
		// wrapped handle failed and already emitted its diagnostic
		return nil, false
	}
	buf = buf[:n]
	c.chunks.Add(id, buf)
	return buf, true
}

// Seek moves the cursor. Seeking past the end is allowed.
func (c *Handle) Seek(off int64, whence int) int {
	switch whence {
	case io.SeekStart:
		c.cur = off
	case io.SeekCurrent:
		c.cur += off
	case io.SeekEnd:
		if c.size < 0 {
			if c.h.Seek(0, io.SeekEnd) != 0 {
				return -1
			}
			c.size = c.h.Tell()
		}
		c.cur = c.size + off
	default:
		return -1
	}
	c.eof = false
	return 0
}

func (c *Handle) Tell() int64 {
	return c.cur
}

func (c *Handle) Read(t native.Thread, buf []byte, size, count int) int {
	want := int64(size) * int64(count)
	if want == 0 {
		return 0
	}
	done := int64(0)
	for done < want {
		pos := c.cur + done
		id := pos / c.chunkSize
		data, ok := c.chunk(t, id)
		if !ok {
			break
		}
		inChunk := pos - id*c.chunkSize
		if inChunk >= int64(len(data)) {
			c.eof = true
			break
		}
		n := int64(copy(buf[done:want], data[inChunk:]))
		done += n
		if int64(len(data)) < c.chunkSize && inChunk+n >= int64(len(data)) && done < want {
			c.eof = true
			break
		}
	}
	c.cur += done
	return int(done / int64(size))
}

// ReadMultiRange is not cached
func (c *Handle) ReadMultiRange(t native.Thread, bufs [][]byte, offsets []int64) int {
	return c.h.ReadMultiRange(t, bufs, offsets)
}

func (c *Handle) RangeStatus(off, length int64) native.RangeStatus {
	return c.h.RangeStatus(off, length)
}

func (c *Handle) Eof() bool {
	return c.eof
}

func (c *Handle) Write(t native.Thread, buf []byte, size, count int) int {
	return c.h.Write(t, buf, size, count)
}

func (c *Handle) Flush(t native.Thread) int {
	return c.h.Flush(t)
}

func (c *Handle) Truncate(t native.Thread, size int64) int {
	return c.h.Truncate(t, size)
}

// Close drops every cached chunk and closes the wrapped handle
func (c *Handle) Close() int {
	c.chunks.Purge()
	return c.h.Close()
}
