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
	"math"
	"strconv"

	"github.com/airbusgeo/gdalbridge/native"
)

// Metadata items holding computed statistics
const (
	statMin  = "STATISTICS_MINIMUM"
	statMax  = "STATISTICS_MAXIMUM"
	statMean = "STATISTICS_MEAN"
	statStd  = "STATISTICS_STDDEV"
)

// pixels calls fn with every pixel of the band that is neither nodata nor NaN
func (b *memBand) pixels(t native.Thread, fn func(v float64)) bool {
	rows, order, ok := b.rows(t, 0, b.ysize)
	if !ok {
		return false
	}
	ps := b.dtype.Size()
	for off := 0; off+ps <= len(rows); off += ps {
		v, _ := getPixel(b.dtype, order, rows[off:])
		if math.IsNaN(v) || (b.hasNoData && v == b.nodata) {
			continue
		}
		fn(v)
	}
	return true
}

func (b *memBand) statistics(t native.Thread) (native.Statistics, native.CPLErr) {
	st := native.Statistics{Min: math.Inf(1), Max: math.Inf(-1)}
	var n, sum, sum2 float64
	if !b.pixels(t, func(v float64) {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		sum += v
		sum2 += v * v
		n++
	}) {
		return native.Statistics{}, native.Failure
	}
	if n == 0 {
		failf(t, native.AppDefined, "Failed to compute statistics, no valid pixels found in sampling.")
		return native.Statistics{}, native.Failure
	}
	st.Mean = sum / n
	st.Std = math.Sqrt(math.Max(0, sum2/n-st.Mean*st.Mean))
	return st, native.None
}

// ComputeStatistics always scans every pixel, approxOK is ignored. The result is
// kept in the band's metadata, where GetStatistics finds it.
func (b *memBand) ComputeStatistics(t native.Thread, approxOK bool) (native.Statistics, native.CPLErr) {
	b.ds.engine.count("ComputeStatistics")
	st, ret := b.statistics(t)
	if ret != native.None {
		return st, ret
	}
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	b.setItem(statMin, ftoa(st.Min), "")
	b.setItem(statMax, ftoa(st.Max), "")
	b.setItem(statMean, ftoa(st.Mean), "")
	b.setItem(statStd, ftoa(st.Std), "")
	return st, native.None
}

func (b *memBand) GetStatistics(t native.Thread, approxOK bool) (native.Statistics, bool, native.CPLErr) {
	b.ds.engine.count("GetStatistics")
	var vals [4]float64
	for i, key := range []string{statMin, statMax, statMean, statStd} {
		v, err := strconv.ParseFloat(b.MetadataItem(key, ""), 64)
		if err != nil {
			return native.Statistics{}, false, native.None
		}
		vals[i] = v
	}
	return native.Statistics{Min: vals[0], Max: vals[1], Mean: vals[2], Std: vals[3]}, true, native.None
}

func (b *memBand) Histogram(t native.Thread, min, max float64, buckets int, includeOutOfRange, approxOK bool) (float64, float64, []uint64, native.CPLErr) {
	b.ds.engine.count("Histogram")
	if buckets == 0 {
		buckets = 256
		if b.dtype == native.Byte {
			min, max = -0.5, 255.5
		} else {
			st, ret := b.statistics(t)
			if ret != native.None {
				return 0, 0, nil, ret
			}
			half := (st.Max - st.Min) / float64(2*(buckets-1))
			if half == 0 {
				half = 0.5
			}
			min, max = st.Min-half, st.Max+half
		}
	}
	if buckets < 0 || !(max > min) {
		failf(t, native.IllegalArg, "invalid histogram of %d buckets over [%g,%g]", buckets, min, max)
		return 0, 0, nil, native.Failure
	}
	counts := make([]uint64, buckets)
	scale := float64(buckets) / (max - min)
	if !b.pixels(t, func(v float64) {
		idx := math.Floor((v - min) * scale)
		switch {
		case idx < 0:
			if !includeOutOfRange {
				return
			}
			idx = 0
		case idx >= float64(buckets):
			if !includeOutOfRange {
				return
			}
			idx = float64(buckets - 1)
		}
		counts[int(idx)]++
	}) {
		return 0, 0, nil, native.Failure
	}
	return min, max, counts, native.None
}
