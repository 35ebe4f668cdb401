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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRead struct {
	offsets []int64
	sizes   []int
}

// source returns a read function serving bytes of data and recording every call
func source(data []byte, calls *[]recordedRead, fail error) func([][]byte, []int64) error {
	return func(bufs [][]byte, offsets []int64) error {
		rr := recordedRead{offsets: append([]int64(nil), offsets...)}
		for i := range bufs {
			rr.sizes = append(rr.sizes, len(bufs[i]))
		}
		*calls = append(*calls, rr)
		for i := range bufs {
			copy(bufs[i], data[offsets[i]:])
		}
		return fail
	}
}

func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestCountRuns(t *testing.T) {
	mk := func(offs []int64, sizes []int) rangeBatch {
		rb := rangeBatch{offsets: offs}
		for _, s := range sizes {
			rb.bufs = append(rb.bufs, make([]byte, s))
		}
		return rb
	}
	assert.Equal(t, 0, mk(nil, nil).countRuns())
	assert.Equal(t, 1, mk([]int64{5}, []int{3}).countRuns())
	assert.Equal(t, 1, mk([]int64{0, 10, 15}, []int{10, 5, 1}).countRuns())
	assert.Equal(t, 3, mk([]int64{0, 11, 16}, []int{10, 5, 1}).countRuns())
	assert.Equal(t, 2, mk([]int64{0, 10, 20}, []int{10, 5, 1}).countRuns())
	// overlapping and backwards ranges are not adjacent
	assert.Equal(t, 2, mk([]int64{0, 5}, []int{10, 5}).countRuns())
	assert.Equal(t, 2, mk([]int64{10, 0}, []int{5, 10}).countRuns())
}

func TestReadRangesPassThrough(t *testing.T) {
	data := testData(100)
	var calls []recordedRead
	rb := rangeBatch{
		bufs:    [][]byte{make([]byte, 4), make([]byte, 4)},
		offsets: []int64{10, 50},
	}
	require.NoError(t, rb.readRanges(source(data, &calls, nil)))
	require.Len(t, calls, 1)
	assert.Equal(t, []int64{10, 50}, calls[0].offsets)
	assert.Equal(t, []int{4, 4}, calls[0].sizes)
	assert.Equal(t, data[10:14], rb.bufs[0])
	assert.Equal(t, data[50:54], rb.bufs[1])
}

func TestReadRangesMerge(t *testing.T) {
	data := testData(100)
	var calls []recordedRead
	rb := rangeBatch{
		bufs:    [][]byte{make([]byte, 5), make([]byte, 3), make([]byte, 2), make([]byte, 10), make([]byte, 1)},
		offsets: []int64{0, 5, 8, 40, 50},
	}
	require.NoError(t, rb.readRanges(source(data, &calls, nil)))
	require.Len(t, calls, 1)
	assert.Equal(t, []int64{0, 40}, calls[0].offsets)
	assert.Equal(t, []int{10, 11}, calls[0].sizes)
	assert.Equal(t, data[0:5], rb.bufs[0])
	assert.Equal(t, data[5:8], rb.bufs[1])
	assert.Equal(t, data[8:10], rb.bufs[2])
	assert.Equal(t, data[40:50], rb.bufs[3])
	assert.Equal(t, data[50:51], rb.bufs[4])
}

func TestReadRangesMergeFailure(t *testing.T) {
	data := testData(100)
	var calls []recordedRead
	rb := rangeBatch{
		bufs:    [][]byte{make([]byte, 5), make([]byte, 5)},
		offsets: []int64{20, 25},
	}
	boom := errors.New("boom")
	err := rb.readRanges(source(data, &calls, boom))
	assert.ErrorIs(t, err, boom)
	require.Len(t, calls, 1)
	assert.Equal(t, []int{10}, calls[0].sizes)
	// merged reads are only scattered on success
	assert.Equal(t, make([]byte, 5), rb.bufs[0])
	assert.Equal(t, make([]byte, 5), rb.bufs[1])
}

func TestReadRangesEmpty(t *testing.T) {
	var calls []recordedRead
	rb := rangeBatch{}
	require.NoError(t, rb.readRanges(source(nil, &calls, nil)))
	assert.Len(t, calls, 1)
	assert.Empty(t, calls[0].offsets)
}
