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

package envopts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	for in, exp := range map[string]int{
		"512":    512,
		"512k":   512 * 1024,
		" 2MB ":  2 * 1024 * 1024,
		"1.5kib": 1536,
		"1G":     1 << 30,
		"10b":    10,
	} {
		n, err := ParseSize(in)
		assert.NoError(t, err, in)
		assert.Equal(t, exp, n, in)
	}
	for _, in := range []string{"", "0", "-1", "abc", "12X", "0.1b", "k"} {
		_, err := ParseSize(in)
		assert.Error(t, err, in)
	}
}

func TestEnv(t *testing.T) {
	t.Setenv(BlockSizeVar, "")
	t.Setenv(NumBlocksVar, "")
	t.Setenv(SplitRangesVar, "")
	assert.Equal(t, 0, BlockSize())
	assert.Equal(t, "512k", BlockSizeString("512k"))
	assert.Equal(t, 64, NumBlocks(64))
	assert.False(t, SplitRanges())

	t.Setenv(BlockSizeVar, "256k")
	t.Setenv(NumBlocksVar, "12")
	t.Setenv(SplitRangesVar, "yes")
	assert.Equal(t, 256*1024, BlockSize())
	assert.Equal(t, "256k", BlockSizeString("512k"))
	assert.Equal(t, 12, NumBlocks(64))
	assert.True(t, SplitRanges())

	t.Setenv(BlockSizeVar, "lots")
	t.Setenv(NumBlocksVar, "-3")
	t.Setenv(SplitRangesVar, "false")
	assert.Equal(t, 0, BlockSize())
	assert.Equal(t, 64, NumBlocks(64))
	assert.False(t, SplitRanges())
}
