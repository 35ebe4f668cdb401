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
	"sort"
	"strings"
	"sync"

	"github.com/airbusgeo/gdalbridge/native"
)

// object implements native.MajorObject. Metadata items keep their insertion order.
type object struct {
	mu   sync.RWMutex
	desc string
	md   map[string][]string
}

func (o *object) Description() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.desc
}

func (o *object) SetDescription(t native.Thread, desc string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.desc = desc
}

func (o *object) MetadataItem(key, domain string) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, kv := range o.md[domain] {
		if k, v, ok := strings.Cut(kv, "="); ok && strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (o *object) Metadata(domain string) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.md[domain]) == 0 {
		return nil
	}
	return append([]string(nil), o.md[domain]...)
}

func (o *object) MetadataDomains() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	var ret []string
	for d, items := range o.md {
		if len(items) > 0 {
			ret = append(ret, d)
		}
	}
	sort.Strings(ret)
	return ret
}

func (o *object) SetMetadataItem(t native.Thread, key, value, domain string) native.CPLErr {
	if key == "" || strings.Contains(key, "=") {
		failf(t, native.IllegalArg, "invalid metadata key %q", key)
		return native.Failure
	}
	o.setItem(key, value, domain)
	return native.None
}

func (o *object) setItem(key, value, domain string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.md == nil {
		o.md = make(map[string][]string)
	}
	items := o.md[domain]
	for i, kv := range items {
		if k, _, _ := strings.Cut(kv, "="); strings.EqualFold(k, key) {
			items[i] = key + "=" + value
			return
		}
	}
	o.md[domain] = append(items, key+"="+value)
}

func (o *object) SetMetadata(t native.Thread, md []string, domain string) native.CPLErr {
	for _, kv := range md {
		if k, _, ok := strings.Cut(kv, "="); !ok || k == "" {
			failf(t, native.IllegalArg, "invalid metadata entry %q", kv)
			return native.Failure
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.md == nil {
		o.md = make(map[string][]string)
	}
	if md == nil {
		delete(o.md, domain)
		return native.None
	}
	o.md[domain] = append([]string(nil), md...)
	return native.None
}
