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
	"encoding/binary"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/airbusgeo/gdalbridge/memengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDataset creates a testW x testH x testNB Byte MEM dataset holding the pixels of gobrFile
func memDataset(t *testing.T, b *Bridge) *Dataset {
	t.Helper()
	ds, err := b.Create(Memory, "", testNB, Byte, testW, testH)
	require.NoError(t, err)
	buf := make([]byte, testW*testH*testNB)
	for y := 0; y < testH; y++ {
		for x := 0; x < testW; x++ {
			for bnd := 0; bnd < testNB; bnd++ {
				buf[(y*testW+x)*testNB+bnd] = pixel(bnd, x, y)
			}
		}
	}
	require.NoError(t, ds.Write(0, 0, buf, testW, testH))
	return ds
}

func TestCreate(t *testing.T) {
	b, _ := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	st := ds.Structure()
	assert.Equal(t, DatasetStructure{
		BandStructure: BandStructure{
			SizeX: testW, SizeY: testH,
			BlockSizeX: testW, BlockSizeY: 1,
			Scale: 1, Offset: 0,
			DataType: Byte,
		},
		NBands: testNB,
	}, st)

	buf := make([]byte, testW*testH*testNB)
	require.NoError(t, ds.Read(0, 0, buf, testW, testH))
	checkPixels(t, buf)

	bands := ds.Bands()
	require.Len(t, bands, testNB)
	fbuf := make([]float32, testW*testH)
	require.NoError(t, bands[1].Read(0, 0, fbuf, testW, testH))
	for y := 0; y < testH; y++ {
		for x := 0; x < testW; x++ {
			assert.Equal(t, float32(pixel(1, x, y)), fbuf[y*testW+x])
		}
	}

	assert.NoError(t, ds.Close())
	assert.EqualError(t, ds.Close(), "close called more than once")
}

func TestCreateErrors(t *testing.T) {
	b, eng := newTestBridge(t)

	_, err := b.Create(Memory, "", 1, Unknown, 10, 10)
	assert.EqualError(t, err, "MEM: invalid data type 0")
	_, err = b.Create(Memory, "", -1, Byte, 10, 10)
	assert.EqualError(t, err, "invalid dataset dimensions: 10x10x-1")
	_, err = b.Create(DriverName("FOO"), "", 1, Byte, 10, 10)
	assert.EqualError(t, err, "failed to get driver FOO")
	_, err = b.Create(GeoJSON, "", 1, Byte, 10, 10)
	assert.EqualError(t, err, "GeoJSON does not support raster creation")
	_, err = b.Create(GOBR, "", 1, Byte, 10, 10)
	assert.EqualError(t, err, "GOBR driver does not support creation")
	_, err = b.CreateVector(GOBR, "")
	assert.EqualError(t, err, "GOBR does not support vector creation")

	closes := eng.CallCount("Close")
	_, err = b.Create(Memory, "", 1, Byte, 10, 10, CreationOption("FOO=BAR"))
	assert.EqualError(t, err, "driver MEM does not support creation option FOO")
	// the dataset created with warnings is released
	assert.Equal(t, closes+1, eng.CallCount("Close"))

	ds, err := b.Create(Memory, "", 1, Byte, 10, 10, CreationOption("FOO=BAR"), ConfigOption("GDAL_VALIDATE_CREATION_OPTIONS=NO"))
	require.NoError(t, err)
	_ = ds.Close()

	ds, err = b.Create(Memory, "", 1, Byte, 10, 10, CreationOption("INTERLEAVE=BAND", "FOO"), ErrLogger(SkipWarnings))
	require.NoError(t, err)
	_ = ds.Close()
}

func TestIOErrors(t *testing.T) {
	b, _ := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	buf := make([]byte, testW*testH*testNB)
	err := ds.Read(5, 5, buf, testW, testH)
	assert.EqualError(t, err, "Access window out of range in RasterIO().  Requested (5,5) of size 10x8 on raster of 10x8.")
	err = ds.Read(0, 0, buf[:10], testW, testH)
	assert.EqualError(t, err, "buffer len=10 less than min=240")
	err = ds.Read(0, 0, make([]int, 240), testW, testH)
	assert.EqualError(t, err, "unsupported buffer type []int")
	err = ds.Read(0, 0, buf, testW, testH, Bands(4))
	assert.EqualError(t, err, "RasterIO: illegal band index 4")

	bnd := ds.Bands()[0]
	err = bnd.Read(0, 0, buf, testW+1, testH)
	assert.EqualError(t, err, "Access window out of range in RasterIO().  Requested (0,0) of size 11x8 on raster of 10x8.")
	err = bnd.Read(0, 0, buf[:2], testW, testH)
	assert.EqualError(t, err, "buffer len=2 less than min=80")

	nods, err := b.CreateVector(Memory, "")
	require.NoError(t, err)
	defer nods.Close()
	assert.EqualError(t, nods.Read(0, 0, buf, 1, 1), "cannot perform io on dataset with no bands")
}

func TestDebugLogging(t *testing.T) {
	b, _ := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	el := &errLogger{thresh: CE_Warning}
	err := ds.Read(0, 0, []byte{}, 0, 0, ErrLogger(el.ErrorHandler), ConfigOption("CPL_DEBUG=ON"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"MEM: RasterIO: zero-sized buffer, nothing to do"}, el.msg)

	el.msg = nil
	err = ds.Read(0, 0, []byte{}, 0, 0, ErrLogger(el.ErrorHandler))
	assert.NoError(t, err)
	assert.Empty(t, el.msg)

	el.msg = nil
	err = ds.Read(0, 0, []byte{}, 0, 0, ErrLogger(el.ErrorHandler), ConfigOption("CPL_DEBUG=GOBR"))
	assert.NoError(t, err)
	assert.Empty(t, el.msg)
}

func TestIOSpacing(t *testing.T) {
	b, _ := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	// band interleaved
	buf := make([]byte, testW*testH*testNB)
	require.NoError(t, ds.Read(0, 0, buf, testW, testH, BandInterleaved()))
	for bnd := 0; bnd < testNB; bnd++ {
		assert.Equal(t, pixel(bnd, 3, 2), buf[bnd*testW*testH+2*testW+3])
	}

	// explicit spacings reproducing band interleaving
	buf2 := make([]byte, len(buf))
	require.NoError(t, ds.Read(0, 0, buf2, testW, testH, PixelSpacing(1), LineSpacing(testW), BandSpacing(testW*testH)))
	assert.Equal(t, buf, buf2)

	// two bands into a 4 byte stride, leaving gaps untouched
	for i := range buf {
		buf[i] = 0xff
	}
	require.NoError(t, ds.Read(0, 0, buf, testW, 1, Bands(3, 1), PixelSpacing(4), BandSpacing(1)))
	for x := 0; x < testW; x++ {
		assert.Equal(t, pixel(2, x, 0), buf[x*4])
		assert.Equal(t, pixel(0, x, 0), buf[x*4+1])
		assert.Equal(t, byte(0xff), buf[x*4+2])
	}

	// nearest neighbour decimation
	small := make([]byte, 5*4)
	require.NoError(t, ds.Bands()[0].Read(0, 0, small, 5, 4, Window(testW, testH)))
	for j := 0; j < 4; j++ {
		for i := 0; i < 5; i++ {
			assert.Equal(t, pixel(0, 2*i, 2*j), small[j*5+i])
		}
	}

	// sub window
	win := make([]uint16, 2*3)
	require.NoError(t, ds.Bands()[2].Read(4, 5, win, 2, 3))
	assert.Equal(t, []uint16{
		uint16(pixel(2, 4, 5)), uint16(pixel(2, 5, 5)),
		uint16(pixel(2, 4, 6)), uint16(pixel(2, 5, 6)),
		uint16(pixel(2, 4, 7)), uint16(pixel(2, 5, 7)),
	}, win)

	// line spacing on band io
	lines := make([]byte, 2*12)
	require.NoError(t, ds.Bands()[0].Read(0, 0, lines, testW, 2, LineSpacing(12)))
	assert.Equal(t, pixel(0, 9, 1), lines[12+9])
	assert.Equal(t, byte(0), lines[10])

	// writes follow the same layout
	require.NoError(t, ds.Bands()[0].Write(4, 5, []byte{1, 2, 3, 4, 5, 6}, 2, 3))
	require.NoError(t, ds.Bands()[0].Read(4, 5, buf[:6], 2, 3))
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buf[:6])
}

func TestFill(t *testing.T) {
	b, _ := newTestBridge(t)
	ds, err := b.Create(Memory, "", 1, Int16, 7, 5)
	require.NoError(t, err)
	defer ds.Close()
	bnd := ds.Bands()[0]
	require.NoError(t, bnd.Fill(-12, 0))
	buf := make([]int16, 7*5)
	require.NoError(t, bnd.Read(0, 0, buf, 7, 5))
	for i := range buf {
		assert.Equal(t, int16(-12), buf[i])
	}
}

func TestNoDataAndScale(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	require.NoError(t, ds.SetNoData(5))
	for _, bnd := range ds.Bands() {
		nd, ok := bnd.NoData()
		assert.True(t, ok)
		assert.Equal(t, 5.0, nd)
	}
	bnd := ds.Bands()[1]
	require.NoError(t, bnd.ClearNoData())
	_, ok := bnd.NoData()
	assert.False(t, ok)
	err := bnd.SetNoData(300)
	assert.EqualError(t, err, "nodata value 300 cannot be represented as Byte")
	assert.NoError(t, bnd.SetNoData(255))

	require.NoError(t, ds.SetScaleOffset(2, 3))
	for _, bnd := range ds.Bands() {
		st := bnd.Structure()
		assert.Equal(t, 2.0, st.Scale)
		assert.Equal(t, 3.0, st.Offset)
	}
	assert.Equal(t, 2.0, ds.Structure().Scale)
	require.NoError(t, bnd.ClearScaleOffset())
	assert.Equal(t, 1.0, bnd.Structure().Scale)
	assert.Equal(t, 0.0, bnd.Structure().Offset)

	vds, err := b.CreateVector(Memory, "")
	require.NoError(t, err)
	defer vds.Close()
	nodatas, scales, masks := eng.CallCount("SetNoDataValue"), eng.CallCount("SetScale"), eng.CallCount("CreateMaskBand")
	assert.EqualError(t, vds.SetNoData(0), "cannot set nodata value on dataset with no raster bands")
	assert.EqualError(t, vds.SetScaleOffset(1, 0), "cannot set scale/offset on dataset with no raster bands")
	_, err = vds.CreateMaskBand(0x02)
	assert.EqualError(t, err, "cannot create mask band on dataset with no bands")
	// bandless datasets are rejected before reaching the engine
	assert.Equal(t, nodatas, eng.CallCount("SetNoDataValue"))
	assert.Equal(t, scales, eng.CallCount("SetScale"))
	assert.Equal(t, masks, eng.CallCount("CreateMaskBand"))
}

func openGOBR(t *testing.T, b *Bridge, eng *memengine.Engine, name string, opts memengine.GOBROptions) *Dataset {
	t.Helper()
	eng.PutFile(name, gobrFile(t, opts))
	ds, err := b.Open(name)
	require.NoError(t, err)
	return ds
}

func TestReadOnlySetters(t *testing.T) {
	b, eng := newTestBridge(t)
	nd := 7.0
	ds := openGOBR(t, b, eng, "/vsimem/ro.gobr", memengine.GOBROptions{NoData: &nd})
	defer ds.Close()
	for _, bnd := range ds.Bands() {
		v, ok := bnd.NoData()
		assert.True(t, ok)
		assert.Equal(t, 7.0, v)
	}

	// every band is attempted
	calls := eng.CallCount("SetNoDataValue")
	err := ds.SetNoData(5)
	assert.EqualError(t, err, "GOBR: band is read-only\nGOBR: band is read-only\nGOBR: band is read-only")
	assert.Equal(t, calls+testNB, eng.CallCount("SetNoDataValue"))

	// the failure is reported even if no diagnostic is treated as an error
	el := &errLogger{thresh: CE_Fatal}
	err = ds.SetNoData(5, ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Len(t, el.msg, testNB+1)

	scales, offsets := eng.CallCount("SetScale"), eng.CallCount("SetOffset")
	err = ds.SetScaleOffset(2, 3, ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Equal(t, scales+testNB, eng.CallCount("SetScale"))
	assert.Equal(t, offsets, eng.CallCount("SetOffset"))

	_, err = ds.CreateMaskBand(0x02)
	assert.EqualError(t, err, "GOBR: cannot create mask band on read-only dataset")
	assert.Error(t, ds.Bands()[0].Write(0, 0, make([]byte, 1), 1, 1))
	assert.Error(t, ds.Bands()[0].Fill(1, 0))
}

func TestMasks(t *testing.T) {
	b, eng := newTestBridge(t)
	nd := float64(pixel(0, 3, 2))
	ds := openGOBR(t, b, eng, "/vsimem/mask.gobr", memengine.GOBROptions{NoData: &nd, Compression: memengine.CompressionZSTD})
	defer ds.Close()

	bnd := ds.Bands()[0]
	assert.Equal(t, 0x08, bnd.MaskFlags())
	mask := bnd.MaskBand()
	assert.Equal(t, Byte, mask.Structure().DataType)
	buf := make([]byte, testW*testH)
	require.NoError(t, mask.Read(0, 0, buf, testW, testH))
	for y := 0; y < testH; y++ {
		for x := 0; x < testW; x++ {
			want := byte(255)
			if x == 3 && y == 2 {
				want = 0
			}
			assert.Equal(t, want, buf[y*testW+x], "%d,%d", x, y)
		}
	}
	assert.EqualError(t, mask.Fill(0, 0), "GOBR: band is read-only")

	mds := memDataset(t, b)
	defer mds.Close()
	mbnd := mds.Bands()[0]
	assert.Equal(t, 0x01, mbnd.MaskFlags())
	dmask, err := mds.CreateMaskBand(0x02)
	require.NoError(t, err)
	for _, bnd := range mds.Bands() {
		assert.Equal(t, 0x02, bnd.MaskFlags())
	}
	require.NoError(t, dmask.Write(0, 0, []byte{0, 0}, 2, 1))
	require.NoError(t, mds.Bands()[2].MaskBand().Read(0, 0, buf[:3], 3, 1))
	assert.Equal(t, []byte{0, 0, 255}, buf[:3])

	bmask, err := mbnd.CreateMask(0x00)
	require.NoError(t, err)
	assert.Equal(t, 0x00, mbnd.MaskFlags())
	assert.Equal(t, 0x02, mds.Bands()[1].MaskFlags())
	require.NoError(t, bmask.Read(0, 0, buf[:2], 2, 1))
	assert.Equal(t, []byte{255, 255}, buf[:2])
}

func TestBlocks(t *testing.T) {
	st := BandStructure{SizeX: 10, SizeY: 8, BlockSizeX: 4, BlockSizeY: 3}
	nx, ny := st.BlockCount()
	assert.Equal(t, 3, nx)
	assert.Equal(t, 3, ny)
	w, h := st.ActualBlockSize(2, 2)
	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	w, h = st.ActualBlockSize(3, 0)
	assert.Equal(t, 0, w)
	assert.Equal(t, 0, h)

	var blocks []Block
	for blk, ok := st.FirstBlock(), true; ok; blk, ok = blk.Next() {
		blocks = append(blocks, blk)
	}
	require.Len(t, blocks, 9)
	assert.Equal(t, 0, blocks[0].X0)
	assert.Equal(t, 4, blocks[1].X0)
	assert.Equal(t, 0, blocks[3].X0)
	assert.Equal(t, 3, blocks[3].Y0)
	last := blocks[8]
	assert.Equal(t, [4]int{8, 6, 2, 2}, [4]int{last.X0, last.Y0, last.W, last.H})

	pixels := 0
	for blk, ok := BlockIterator(10, 8, 4, 3), true; ok; blk, ok = blk.Next() {
		pixels += blk.W * blk.H
	}
	assert.Equal(t, 80, pixels)

	b, _ := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()
	bst := ds.Bands()[0].Structure()
	rows := 0
	buf := make([]byte, testW)
	for blk, ok := bst.FirstBlock(), true; ok; blk, ok = blk.Next() {
		require.NoError(t, ds.Bands()[0].Read(blk.X0, blk.Y0, buf, blk.W, blk.H))
		assert.Equal(t, pixel(0, 0, blk.Y0), buf[0])
		rows++
	}
	assert.Equal(t, testH, rows)
}

func TestOpen(t *testing.T) {
	b, eng := newTestBridge(t)
	eng.PutFile("/vsimem/s.gobr", gobrFile(t, memengine.GOBROptions{Metadata: map[string]string{"FROM": "header"}}))
	aux, err := memengine.EncodeAux(map[string]map[string]string{"": {"AUX": "yes"}})
	require.NoError(t, err)
	eng.PutFile("/vsimem/s.gobr.aux.cbor", aux)

	ds, err := b.Open("/vsimem/s.gobr")
	require.NoError(t, err)
	assert.Equal(t, "header", ds.Metadata("FROM"))
	assert.Equal(t, "", ds.Metadata("AUX"))
	_ = ds.Close()

	for _, opt := range []OpenOption{SiblingFiles(), SiblingFiles("s.gobr.aux.cbor")} {
		ds, err = b.Open("/vsimem/s.gobr", opt)
		require.NoError(t, err)
		assert.Equal(t, "yes", ds.Metadata("AUX"))
		_ = ds.Close()
	}

	ds, err = b.Open("/vsimem/s.gobr", RasterOnly(), Drivers("GOBR"), DriverOpenOption("NUM_THREADS=2"))
	require.NoError(t, err)
	_ = ds.Close()

	_, err = b.Open("/vsimem/s.gobr", Drivers("MEM", "GeoJSON"))
	assert.EqualError(t, err, "`/vsimem/s.gobr' not recognized as a supported file format.")
	_, err = b.Open("/vsimem/s.gobr", VectorOnly())
	assert.EqualError(t, err, "`/vsimem/s.gobr' not recognized as a supported file format.")
	_, err = b.Open("/vsimem/s.gobr", Update())
	assert.EqualError(t, err, "GOBR driver does not support update access to existing datasets.")

	closes := eng.CallCount("Close")
	_, err = b.Open("/vsimem/s.gobr", DriverOpenOption("FOO=BAR"))
	assert.EqualError(t, err, "driver GOBR does not support open option FOO")
	assert.Equal(t, closes+1, eng.CallCount("Close"))
	ds, err = b.Open("/vsimem/s.gobr", DriverOpenOption("FOO=BAR"), ErrLogger(SkipWarnings))
	require.NoError(t, err)
	_ = ds.Close()
	// open options are validated whatever GDAL_VALIDATE_CREATION_OPTIONS
	_, err = b.Open("/vsimem/s.gobr", DriverOpenOption("FOO=BAR"), ConfigOption("GDAL_VALIDATE_CREATION_OPTIONS=NO"))
	assert.Error(t, err)

	_, err = b.Open("/vsimem/noent.gobr")
	assert.EqualError(t, err, "/vsimem/noent.gobr: No such file or directory")
	assert.ErrorIs(t, err, syscall.ENOENT)

	noent := filepath.Join(t.TempDir(), "noent.gobr")
	_, err = b.Open(noent)
	assert.ErrorIs(t, err, os.ErrNotExist)

	eng.PutFile("/vsimem/garbage.bin", []byte("not a dataset"))
	_, err = b.Open("/vsimem/garbage.bin")
	assert.EqualError(t, err, "`/vsimem/garbage.bin' not recognized as a supported file format.")

	corrupt := gobrFile(t, memengine.GOBROptions{})
	binary.LittleEndian.PutUint32(corrupt[4:8], 0)
	eng.PutFile("/vsimem/corrupt.gobr", corrupt)
	_, err = b.Open("/vsimem/corrupt.gobr")
	assert.EqualError(t, err, "GOBR: /vsimem/corrupt.gobr: invalid header length 0")

	_, err = b.Open("")
	assert.EqualError(t, err, "empty dataset name")

	// failures without any diagnostic are still reported
	_, err = b.Open("/vsimem/noent.gobr", ErrLogger(func(ec ErrorCategory, code int, msg string) error { return nil }))
	assert.EqualError(t, err, "unknown error")
	assert.ErrorIs(t, err, syscall.ENOENT)
}

func TestOpenLocalFile(t *testing.T) {
	b, _ := newTestBridge(t)
	dir := t.TempDir()
	fname := filepath.Join(dir, "local.gobr")
	require.NoError(t, os.WriteFile(fname, gobrFile(t, memengine.GOBROptions{Compression: memengine.CompressionLZ4}), 0o644))
	aux, err := memengine.EncodeAux(map[string]map[string]string{"": {"AUX": "local"}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fname+".aux.cbor", aux, 0o644))

	ds, err := b.Open(fname, SiblingFiles())
	require.NoError(t, err)
	defer ds.Close()
	assert.Equal(t, "local", ds.Metadata("AUX"))
	buf := make([]byte, testW*testH*testNB)
	require.NoError(t, ds.Read(0, 0, buf, testW, testH))
	checkPixels(t, buf)
	assert.Equal(t, fname, ds.Description())
}
