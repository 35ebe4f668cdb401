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

// rangeBatch is the set of byte ranges requested by one ReadMultiRange call.
// bufs[i] is filled from offsets[i].
type rangeBatch struct {
	bufs    [][]byte
	offsets []int64
}

// mergedRun is a read covering the adjacent ranges first..last of a batch
type mergedRun struct {
	off         int64
	buf         []byte
	first, last int
}

// countRuns returns the number of maximal runs of consecutive ranges where each
// range starts exactly where the previous one ends
func (rb rangeBatch) countRuns() int {
	if len(rb.bufs) == 0 {
		return 0
	}
	runs := 1
	for i := 1; i < len(rb.bufs); i++ {
		if !rb.adjacent(i) {
			runs++
		}
	}
	return runs
}

func (rb rangeBatch) adjacent(i int) bool {
	return rb.offsets[i-1]+int64(len(rb.bufs[i-1])) == rb.offsets[i]
}

// mergeRanges returns one run per group of adjacent ranges, each with a buffer
// large enough to hold the whole group
func (rb rangeBatch) mergeRanges() []mergedRun {
	runs := make([]mergedRun, 0, rb.countRuns())
	for i := 0; i < len(rb.bufs); i++ {
		if i == 0 || !rb.adjacent(i) {
			runs = append(runs, mergedRun{off: rb.offsets[i], first: i, last: i})
			continue
		}
		runs[len(runs)-1].last = i
	}
	for r := range runs {
		size := 0
		for i := runs[r].first; i <= runs[r].last; i++ {
			size += len(rb.bufs[i])
		}
		runs[r].buf = make([]byte, size)
	}
	return runs
}

// scatter copies the content of each run back into the ranges it covers
func (rb rangeBatch) scatter(runs []mergedRun) {
	for _, run := range runs {
		pos := 0
		for i := run.first; i <= run.last; i++ {
			pos += copy(rb.bufs[i], run.buf[pos:])
		}
	}
}

// readRanges fills every range of the batch through read, issuing one request per
// run of adjacent ranges. When no ranges are adjacent the batch is passed unchanged
// and read may have partially filled the destinations on failure. Otherwise the
// destinations are only written once every run has been read.
func (rb rangeBatch) readRanges(read func(bufs [][]byte, offsets []int64) error) error {
	if rb.countRuns() == len(rb.bufs) {
		return read(rb.bufs, rb.offsets)
	}
	runs := rb.mergeRanges()
	bufs := make([][]byte, len(runs))
	offsets := make([]int64, len(runs))
	for i, run := range runs {
		bufs[i] = run.buf
		offsets[i] = run.off
	}
	if err := read(bufs, offsets); err != nil {
		return err
	}
	rb.scatter(runs)
	return nil
}
