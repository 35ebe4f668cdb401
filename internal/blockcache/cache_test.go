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

package blockcache_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/airbusgeo/gdalbridge/internal/blockcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache(t *testing.T) {
	_, err := blockcache.NewCache(0)
	assert.Error(t, err)
	c, err := blockcache.NewCache(1)
	require.NoError(t, err)
	_, ok := c.Get("k", 0)
	assert.False(t, ok)
}

func TestCacheEviction(t *testing.T) {
	c, _ := blockcache.NewCache(2)
	c.Add("k", 0, []byte("a"))
	c.Add("k", 1, []byte("b"))
	// touch block 0 so block 1 is the least recently used
	_, ok := c.Get("k", 0)
	assert.True(t, ok)
	c.Add("k", 2, []byte("c"))

	_, ok = c.Get("k", 1)
	assert.False(t, ok)
	d, ok := c.Get("k", 0)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), d)
	d, ok = c.Get("k", 2)
	assert.True(t, ok)
	assert.Equal(t, []byte("c"), d)
}

func TestCachePurgeKey(t *testing.T) {
	c, _ := blockcache.NewCache(10)
	for _, k := range []string{"a/b", "a/bc", "a/b/c", "a"} {
		c.Add(k, 0, []byte(k))
		c.Add(k, 3, []byte(k))
	}
	c.PurgeKey("a/b")
	for _, id := range []uint{0, 3} {
		_, ok := c.Get("a/b", id)
		assert.False(t, ok)
	}
	// prefixes and extensions of the purged key survive
	for _, k := range []string{"a/bc", "a/b/c", "a"} {
		for _, id := range []uint{0, 3} {
			d, ok := c.Get(k, id)
			assert.True(t, ok, "%s:%d", k, id)
			assert.Equal(t, k, string(d))
		}
	}
	c.PurgeKey("unknown")
	_, ok := c.Get("a", 0)
	assert.True(t, ok)

	c.Purge()
	_, ok = c.Get("a/bc", 0)
	assert.False(t, ok)
}

// keyRecorder remembers the keys a BlockCache hands to its Cacher
type keyRecorder struct {
	*blockcache.Cache
	mu   sync.Mutex
	keys map[string]bool
}

func (kr *keyRecorder) Add(key string, id uint, data []byte) {
	kr.mu.Lock()
	kr.keys[key] = true
	kr.mu.Unlock()
	kr.Cache.Add(key, id, data)
}

func TestNamespacedKeys(t *testing.T) {
	c, _ := blockcache.NewCache(100)
	kr := &keyRecorder{Cache: c, keys: map[string]bool{}}
	r1, r2 := &countingReader{}, &countingReader{}
	bc1 := blockcache.New(r1, kr, 8, false)
	bc2 := blockcache.New(r2, kr, 8, false)

	buf := make([]byte, 8)
	_, err := bc1.ReadAt("obj", buf, 0)
	require.NoError(t, err)
	_, err = bc2.ReadAt("obj", buf, 0)
	require.NoError(t, err)

	require.Len(t, kr.keys, 2)
	seen := []string{}
	for k := range kr.keys {
		assert.True(t, strings.HasSuffix(k, "/obj"), k)
		assert.NotEqual(t, "obj", k)
		seen = append(seen, strings.TrimSuffix(k, "obj"))
	}
	assert.NotEqual(t, seen[0], seen[1])

	// the raw key is not what the cacher holds
	c.PurgeKey("obj")
	_, _ = bc1.ReadAt("obj", buf, 0)
	_, _ = bc2.ReadAt("obj", buf, 0)
	assert.Equal(t, 1, r1.calls)
	assert.Equal(t, 1, r2.calls)

	// the namespaced key is
	for k := range kr.keys {
		c.PurgeKey(k)
	}
	_, _ = bc1.ReadAt("obj", buf, 0)
	_, _ = bc2.ReadAt("obj", buf, 0)
	assert.Equal(t, 2, r1.calls)
	assert.Equal(t, 2, r2.calls)
}
