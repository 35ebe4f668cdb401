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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata(t *testing.T) {
	b, _ := newTestBridge(t)
	ds, err := b.Create(Memory, "", 2, Byte, 4, 4)
	require.NoError(t, err)

	assert.Nil(t, ds.MetadataDomains())
	assert.Nil(t, ds.Metadatas())

	require.NoError(t, ds.SetMetadata("foo", "bar"))
	require.NoError(t, ds.SetMetadata("baz", "qux", Domain("other")))
	require.NoError(t, ds.SetMetadata("foo", "bar2"))
	assert.Equal(t, "bar2", ds.Metadata("foo"))
	assert.Equal(t, "bar2", ds.Metadata("FOO"))
	assert.Equal(t, "", ds.Metadata("baz"))
	assert.Equal(t, "qux", ds.Metadata("baz", Domain("other")))
	assert.Equal(t, map[string]string{"foo": "bar2"}, ds.Metadatas())
	assert.Equal(t, []string{"", "other"}, ds.MetadataDomains())

	err = ds.SetMetadata("a=b", "c")
	assert.EqualError(t, err, `invalid metadata key "a=b"`)
	el := &errLogger{thresh: CE_Fatal}
	err = ds.SetMetadata("", "c", ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Equal(t, []string{`invalid metadata key ""`, "unknown cpl error 3"}, el.msg)

	require.NoError(t, ds.ClearMetadata(Domain("other")))
	assert.Equal(t, []string{""}, ds.MetadataDomains())

	bnd := ds.Bands()[1]
	require.NoError(t, bnd.SetMetadata("STATISTICS_MAXIMUM", "12"))
	assert.Equal(t, "12", bnd.Metadata("STATISTICS_MAXIMUM"))
	assert.Equal(t, "", ds.Bands()[0].Metadata("STATISTICS_MAXIMUM"))

	require.NoError(t, ds.SetDescription("my dataset"))
	assert.Equal(t, "my dataset", ds.Description())
	require.NoError(t, bnd.SetDescription("band 2"))
	assert.Equal(t, "band 2", bnd.Description())

	require.NoError(t, ds.Close())
	assert.EqualError(t, ds.SetMetadata("k", "v"), nullHandleMsg)
	assert.EqualError(t, ds.ClearMetadata(), nullHandleMsg)
	assert.EqualError(t, ds.SetDescription("d"), nullHandleMsg)
	assert.Equal(t, "", ds.Metadata("foo"))
	assert.Nil(t, ds.Metadatas())
	assert.Nil(t, ds.MetadataDomains())
	assert.Equal(t, "", ds.Description())
}
