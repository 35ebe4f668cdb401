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

// Package blockcache exposes the block Cacher used by the cloud storage handlers, so
// that callers can size it or share one instance between several handlers.
package blockcache

import "github.com/airbusgeo/gdalbridge/internal/blockcache"

// Cacher stores blocks of data per key, see gcs.Cacher and s3.Cacher
type Cacher = blockcache.Cacher

// Cache is an in-memory LRU Cacher
type Cache = blockcache.Cache

var _ Cacher = &Cache{}

// NewCache creates a Cache holding at most entries blocks. Blocks are the size
// configured on the handler using the cache.
func NewCache(entries uint) (*Cache, error) {
	return blockcache.NewCache(entries)
}
