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
	"encoding/binary"

	"github.com/airbusgeo/gdalbridge/native"
)

// Mask flags
const (
	gmfAllValid   = 0x01
	gmfPerDataset = 0x02
	gmfAlpha      = 0x04
	gmfNoData     = 0x08
)

// rowSource serves band pixels for datasets whose pixels are not held in memory
type rowSource interface {
	// rows returns, for each of the 1-based bands, the pixels of rows [y0,y1) and
	// the byte order they are stored in
	rows(t native.Thread, bands []int, y0, y1 int) ([][]byte, binary.ByteOrder, bool)
	close() int
}

type memDataset struct {
	object
	engine *Engine
	driver *driver

	width, height int
	bands         []*memBand
	src           rowSource
	readOnly      bool

	geoTransform *[6]float64
	projection   string

	layers    []*memLayer
	maxLayers int
	onClose   func(t native.Thread) native.CPLErr
	closed    bool
}

var _ native.Dataset = (*memDataset)(nil)

func (ds *memDataset) RasterXSize() int { return ds.width }
func (ds *memDataset) RasterYSize() int { return ds.height }
func (ds *memDataset) RasterCount() int { return len(ds.bands) }

func (ds *memDataset) RasterBand(i int) native.Band {
	if i < 1 || i > len(ds.bands) {
		return nil
	}
	return ds.bands[i-1]
}

func (ds *memDataset) CreateMaskBand(t native.Thread, flags int) native.CPLErr {
	ds.engine.count("CreateMaskBand")
	if ds.readOnly {
		failf(t, native.NoWriteAccess, "%s: cannot create mask band on read-only dataset", ds.driver.name)
		return native.Failure
	}
	if len(ds.bands) == 0 {
		failf(t, native.IllegalArg, "cannot create mask band on dataset with no bands")
		return native.Failure
	}
	mask := newMaskBand(ds, ds.width, ds.height)
	for _, b := range ds.bands {
		b.mask = mask
		b.maskFlags = flags | gmfPerDataset
	}
	return native.None
}

func (ds *memDataset) RasterIO(t native.Thread, rw native.RWFlag, x, y, w, h int, buf []byte, bufW, bufH int,
	dtype native.DataType, bands []int, pixelSpace, lineSpace, bandSpace int) native.CPLErr {
	ds.engine.count("RasterIO")
	if bufW == 0 || bufH == 0 {
		debugf(t, ds.driver.name, "RasterIO: zero-sized buffer, nothing to do")
		return native.None
	}
	if !checkWindow(t, x, y, w, h, ds.width, ds.height) {
		return native.Failure
	}
	for _, b := range bands {
		if b < 1 || b > len(ds.bands) {
			failf(t, native.IllegalArg, "RasterIO: illegal band index %d", b)
			return native.Failure
		}
	}
	if pixelSpace == 0 {
		pixelSpace = dtype.Size()
	}
	if lineSpace == 0 {
		lineSpace = pixelSpace * bufW
	}
	if bandSpace == 0 {
		bandSpace = lineSpace * bufH
	}
	win := window{x: x, y: y, w: w, h: h, bufW: bufW, bufH: bufH, dtype: dtype, pixelSp: pixelSpace, lineSp: lineSpace}
	if rw == native.Write {
		for i, b := range bands {
			win.buf = buf[i*bandSpace:]
			if ret := ds.bands[b-1].write(t, win); ret != native.None {
				return ret
			}
		}
		return native.None
	}
	var rows [][]byte
	var order binary.ByteOrder = binary.NativeEndian
	if ds.src != nil {
		var ok bool
		if rows, order, ok = ds.src.rows(t, bands, y, y+h); !ok {
			return native.Failure
		}
	} else {
		for _, b := range bands {
			rows = append(rows, ds.bands[b-1].memRows(y, y+h))
		}
	}
	for i, b := range bands {
		win.buf = buf[i*bandSpace:]
		readWindow(rows[i], ds.width, ds.bands[b-1].dtype, order, win)
	}
	return native.None
}

func checkWindow(t native.Thread, x, y, w, h, xsize, ysize int) bool {
	if x < 0 || y < 0 || w < 1 || h < 1 || x+w > xsize || y+h > ysize {
		failf(t, native.IllegalArg,
			"Access window out of range in RasterIO().  Requested (%d,%d) of size %dx%d on raster of %dx%d.",
			x, y, w, h, xsize, ysize)
		return false
	}
	return true
}

func (ds *memDataset) LayerCount() int {
	return len(ds.layers)
}

func (ds *memDataset) Layer(i int) native.Layer {
	if i < 0 || i >= len(ds.layers) {
		return nil
	}
	return ds.layers[i]
}

func (ds *memDataset) LayerByName(name string) native.Layer {
	for _, l := range ds.layers {
		if l.name == name {
			return l
		}
	}
	return nil
}

func (ds *memDataset) CreateLayer(t native.Thread, name string, gtype native.GeometryType, options []string) native.Layer {
	ds.engine.count("CreateLayer")
	if !ds.driver.vector {
		failf(t, native.NotSupported, "%s driver does not support layer creation", ds.driver.name)
		return nil
	}
	if ds.readOnly {
		failf(t, native.NoWriteAccess, "%s: cannot create layer on read-only dataset", ds.driver.name)
		return nil
	}
	if ds.maxLayers > 0 && len(ds.layers) >= ds.maxLayers {
		failf(t, native.NotSupported, "%s driver does not support more than %d layer(s)", ds.driver.name, ds.maxLayers)
		return nil
	}
	if ds.LayerByName(name) != nil {
		failf(t, native.AppDefined, "layer %s already exists", name)
		return nil
	}
	ds.driver.validateOptions(t, "layer creation", ds.driver.layerOptions, options)
	l := newLayer(ds.engine, name, gtype, false)
	ds.layers = append(ds.layers, l)
	return l
}

func (ds *memDataset) Close(t native.Thread) native.CPLErr {
	ds.engine.count("Close")
	if ds.closed {
		return native.None
	}
	ds.closed = true
	ret := native.None
	if ds.onClose != nil {
		ret = ds.onClose(t)
	}
	if ds.src != nil && ds.src.close() != 0 && ret == native.None {
		failf(t, native.FileIO, "%s: failed to close file", ds.Description())
		ret = native.Failure
	}
	ds.bands = nil
	ds.layers = nil
	return ret
}

type memBand struct {
	object
	ds            *memDataset
	index         int
	xsize, ysize  int
	dtype         native.DataType
	data          []byte
	nodata        float64
	hasNoData     bool
	scale, offset float64
	ctInterp      native.PaletteInterp
	ctEntries     [][4]int16

	mask      *memBand
	maskFlags int
	implicit  *memBand
	// maskOf is set on implicit masks, whose pixels derive from the nodata of maskOf
	maskOf *memBand
}

var _ native.Band = (*memBand)(nil)

func newBand(ds *memDataset, index int, dtype native.DataType, inMemory bool) *memBand {
	b := &memBand{
		ds:     ds,
		index:  index,
		xsize:  ds.width,
		ysize:  ds.height,
		dtype:  dtype,
		scale:  1,
		offset: 0,
	}
	if inMemory {
		b.data = make([]byte, ds.width*ds.height*dtype.Size())
	}
	return b
}

func newMaskBand(ds *memDataset, w, h int) *memBand {
	m := &memBand{ds: ds, xsize: w, ysize: h, dtype: native.Byte, scale: 1}
	m.data = make([]byte, w*h)
	for i := range m.data {
		m.data[i] = 255
	}
	return m
}

func (b *memBand) XSize() int                   { return b.xsize }
func (b *memBand) YSize() int                   { return b.ysize }
func (b *memBand) BlockSize() (int, int)        { return b.xsize, 1 }
func (b *memBand) DataType() native.DataType    { return b.dtype }
func (b *memBand) NoDataValue() (float64, bool) { return b.nodata, b.hasNoData }
func (b *memBand) Scale() float64               { return b.scale }
func (b *memBand) Offset() float64              { return b.offset }

func (b *memBand) writable(t native.Thread) bool {
	if b.ds.readOnly || b.maskOf != nil {
		failf(t, native.NoWriteAccess, "%s: band is read-only", b.ds.driver.name)
		return false
	}
	return true
}

func (b *memBand) SetNoDataValue(t native.Thread, nd float64) native.CPLErr {
	b.ds.engine.count("SetNoDataValue")
	if !b.writable(t) {
		return native.Failure
	}
	if !representable(b.dtype, nd) {
		failf(t, native.IllegalArg, "nodata value %g cannot be represented as %s", nd, b.dtype)
		return native.Failure
	}
	b.nodata, b.hasNoData = nd, true
	return native.None
}

func (b *memBand) DeleteNoDataValue(t native.Thread) native.CPLErr {
	b.ds.engine.count("DeleteNoDataValue")
	if !b.writable(t) {
		return native.Failure
	}
	b.nodata, b.hasNoData = 0, false
	return native.None
}

func (b *memBand) SetScale(t native.Thread, scale float64) native.CPLErr {
	b.ds.engine.count("SetScale")
	if !b.writable(t) {
		return native.Failure
	}
	b.scale = scale
	return native.None
}

func (b *memBand) SetOffset(t native.Thread, offset float64) native.CPLErr {
	b.ds.engine.count("SetOffset")
	if !b.writable(t) {
		return native.Failure
	}
	b.offset = offset
	return native.None
}

func (b *memBand) MaskFlags() int {
	switch {
	case b.mask != nil:
		return b.maskFlags
	case b.hasNoData:
		return gmfNoData
	default:
		return gmfAllValid
	}
}

func (b *memBand) MaskBand() native.Band {
	if b.mask != nil {
		return b.mask
	}
	if b.implicit == nil {
		b.implicit = &memBand{ds: b.ds, xsize: b.xsize, ysize: b.ysize, dtype: native.Byte, scale: 1, maskOf: b}
	}
	return b.implicit
}

func (b *memBand) CreateMaskBand(t native.Thread, flags int) native.CPLErr {
	b.ds.engine.count("CreateMaskBand")
	if !b.writable(t) {
		return native.Failure
	}
	if flags&gmfPerDataset != 0 {
		return b.ds.CreateMaskBand(t, flags)
	}
	b.mask = newMaskBand(b.ds, b.xsize, b.ysize)
	b.maskFlags = flags
	return native.None
}

// memRows returns rows [y0,y1) of an in-memory band, in native order
func (b *memBand) memRows(y0, y1 int) []byte {
	rb := b.xsize * b.dtype.Size()
	return b.data[y0*rb : y1*rb]
}

// rows returns rows [y0,y1) of the band whatever its storage
func (b *memBand) rows(t native.Thread, y0, y1 int) ([]byte, binary.ByteOrder, bool) {
	switch {
	case b.maskOf != nil:
		src, order, ok := b.maskOf.rows(t, y0, y1)
		if !ok {
			return nil, nil, false
		}
		out := make([]byte, b.xsize*(y1-y0))
		ds := b.maskOf.dtype.Size()
		for i := range out {
			out[i] = 255
			if b.maskOf.hasNoData {
				if re, _ := getPixel(b.maskOf.dtype, order, src[i*ds:]); re == b.maskOf.nodata {
					out[i] = 0
				}
			}
		}
		return out, binary.NativeEndian, true
	case b.data != nil:
		return b.memRows(y0, y1), binary.NativeEndian, true
	default:
		rows, order, ok := b.ds.src.rows(t, []int{b.index}, y0, y1)
		if !ok {
			return nil, nil, false
		}
		return rows[0], order, true
	}
}

func (b *memBand) RasterIO(t native.Thread, rw native.RWFlag, x, y, w, h int, buf []byte, bufW, bufH int,
	dtype native.DataType, pixelSpace, lineSpace int) native.CPLErr {
	b.ds.engine.count("RasterIO")
	if bufW == 0 || bufH == 0 {
		debugf(t, b.ds.driver.name, "RasterIO: zero-sized buffer, nothing to do")
		return native.None
	}
	if !checkWindow(t, x, y, w, h, b.xsize, b.ysize) {
		return native.Failure
	}
	if pixelSpace == 0 {
		pixelSpace = dtype.Size()
	}
	if lineSpace == 0 {
		lineSpace = pixelSpace * bufW
	}
	win := window{x: x, y: y, w: w, h: h, buf: buf, bufW: bufW, bufH: bufH, dtype: dtype, pixelSp: pixelSpace, lineSp: lineSpace}
	if rw == native.Write {
		return b.write(t, win)
	}
	rows, order, ok := b.rows(t, y, y+h)
	if !ok {
		return native.Failure
	}
	readWindow(rows, b.xsize, b.dtype, order, win)
	return native.None
}

func (b *memBand) write(t native.Thread, win window) native.CPLErr {
	if !b.writable(t) {
		return native.Failure
	}
	writeWindow(b.data, b.xsize, b.dtype, win)
	return native.None
}

func (b *memBand) Fill(t native.Thread, real, imag float64) native.CPLErr {
	b.ds.engine.count("Fill")
	if !b.writable(t) {
		return native.Failure
	}
	ds := b.dtype.Size()
	if len(b.data) == 0 {
		return native.None
	}
	setPixel(b.dtype, binary.NativeEndian, b.data, real, imag)
	for off := ds; off < len(b.data); off *= 2 {
		copy(b.data[off:], b.data[:off])
	}
	return native.None
}
