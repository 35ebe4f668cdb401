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

package gdalbridge

import "github.com/airbusgeo/gdalbridge/native"

// Histogram is a band's histogram.
type Histogram struct {
	min, max float64
	counts   []uint64
}

// Bucket is a histogram entry. It spans [Min,Max] and contains Count entries.
type Bucket struct {
	Min, Max float64
	Count    uint64
}

// Len returns the number of buckets contained in the histogram
func (h Histogram) Len() int {
	return len(h.counts)
}

// Bucket returns the i'th bucket of the histogram
func (h Histogram) Bucket(i int) Bucket {
	width := (h.max - h.min) / float64(len(h.counts))
	return Bucket{
		Min:   h.min + width*float64(i),
		Max:   h.min + width*float64(i+1),
		Count: h.counts[i],
	}
}

// Histogram returns or computes the bands histogram
func (band Band) Histogram(opts ...HistogramOption) (Histogram, error) {
	hopt := histogramOpts{}
	for _, o := range opts {
		o.setHistogramOpt(&hopt)
	}
	var h Histogram
	err := band.bridge.call(nil, hopt.errorHandler, func(cc *callContext) {
		if hopt.buckets < 0 {
			cc.raise("invalid histogram bucket count")
			return
		}
		min, max, counts, ret := band.handle.Histogram(cc.thread, hopt.min, hopt.max, hopt.buckets,
			hopt.includeOutside, hopt.approx)
		if ret != native.None {
			cc.forceCPLError(ret)
			return
		}
		h = Histogram{min: min, max: max, counts: counts}
	})
	return h, err
}
