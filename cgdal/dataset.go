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

package cgdal

/*
#include "cgdal.h"
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"

	"github.com/airbusgeo/gdalbridge/native"
)

type majorObject struct {
	mo C.GDALMajorObjectH
}

func (m majorObject) Description() string {
	return C.GoString(C.GDALGetDescription(m.mo))
}

func (m majorObject) SetDescription(_ native.Thread, desc string) {
	cdesc := C.CString(desc)
	defer C.free(unsafe.Pointer(cdesc))
	C.GDALSetDescription(m.mo, cdesc)
}

func (m majorObject) MetadataItem(key, domain string) string {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cdom := C.CString(domain)
	defer C.free(unsafe.Pointer(cdom))
	str := C.GDALGetMetadataItem(m.mo, ckey, cdom)
	if str == nil {
		return ""
	}
	return C.GoString(str)
}

func (m majorObject) Metadata(domain string) []string {
	cdom := C.CString(domain)
	defer C.free(unsafe.Pointer(cdom))
	return cStringArrayToSlice(C.GDALGetMetadata(m.mo, cdom))
}

func (m majorObject) MetadataDomains() []string {
	list := C.GDALGetMetadataDomainList(m.mo)
	defer C.CSLDestroy(list)
	return cStringArrayToSlice(list)
}

func (m majorObject) SetMetadataItem(_ native.Thread, key, value, domain string) native.CPLErr {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cval := C.CString(value)
	defer C.free(unsafe.Pointer(cval))
	cdom := C.CString(domain)
	defer C.free(unsafe.Pointer(cdom))
	return native.CPLErr(C.GDALSetMetadataItem(m.mo, ckey, cval, cdom))
}

func (m majorObject) SetMetadata(_ native.Thread, md []string, domain string) native.CPLErr {
	cmd := sliceToCStringArray(md)
	defer cmd.free()
	cdom := C.CString(domain)
	defer C.free(unsafe.Pointer(cdom))
	return native.CPLErr(C.GDALSetMetadata(m.mo, cmd.cPointer(), cdom))
}

type dataset struct {
	majorObject
	h C.GDALDatasetH
}

var _ native.Dataset = (*dataset)(nil)

func newDataset(h C.GDALDatasetH) *dataset {
	return &dataset{majorObject: majorObject{C.GDALMajorObjectH(unsafe.Pointer(h))}, h: h}
}

func (ds *dataset) RasterXSize() int {
	return int(C.GDALGetRasterXSize(ds.h))
}

func (ds *dataset) RasterYSize() int {
	return int(C.GDALGetRasterYSize(ds.h))
}

func (ds *dataset) RasterCount() int {
	return int(C.GDALGetRasterCount(ds.h))
}

func (ds *dataset) RasterBand(i int) native.Band {
	h := C.GDALGetRasterBand(ds.h, C.int(i))
	if h == nil {
		return nil
	}
	return newBand(h)
}

func (ds *dataset) CreateMaskBand(_ native.Thread, flags int) native.CPLErr {
	return native.CPLErr(C.GDALCreateDatasetMaskBand(ds.h, C.int(flags)))
}

func bufPointer(buf []byte) unsafe.Pointer {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&buf[0])
}

func (ds *dataset) RasterIO(_ native.Thread, rw native.RWFlag, x, y, w, h int, buf []byte, bufW, bufH int,
	dtype native.DataType, bands []int, pixelSpace, lineSpace, bandSpace int) native.CPLErr {
	cbands := cIntArray(bands)
	defer C.free(unsafe.Pointer(cbands))
	return native.CPLErr(C.GDALDatasetRasterIOEx(ds.h, C.GDALRWFlag(rw),
		C.int(x), C.int(y), C.int(w), C.int(h),
		bufPointer(buf), C.int(bufW), C.int(bufH), C.GDALDataType(dtype),
		C.int(len(bands)), cbands,
		C.GSpacing(pixelSpace), C.GSpacing(lineSpace), C.GSpacing(bandSpace), nil))
}

func (ds *dataset) LayerCount() int {
	return int(C.GDALDatasetGetLayerCount(ds.h))
}

func (ds *dataset) Layer(i int) native.Layer {
	h := C.GDALDatasetGetLayer(ds.h, C.int(i))
	if h == nil {
		return nil
	}
	return &layer{h: h}
}

func (ds *dataset) LayerByName(name string) native.Layer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	h := C.GDALDatasetGetLayerByName(ds.h, cname)
	if h == nil {
		return nil
	}
	return &layer{h: h}
}

func (ds *dataset) CreateLayer(_ native.Thread, name string, gtype native.GeometryType, options []string) native.Layer {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	copts := sliceToCStringArray(options)
	defer copts.free()
	h := C.GDALDatasetCreateLayer(ds.h, cname, nil, C.OGRwkbGeometryType(gtype), copts.cPointer())
	if h == nil {
		return nil
	}
	return &layer{h: h}
}

func (ds *dataset) Close(_ native.Thread) native.CPLErr {
	ret := C.cgdalClose(ds.h)
	ds.h = nil
	return native.CPLErr(ret)
}

type band struct {
	majorObject
	h C.GDALRasterBandH
}

var _ native.Band = (*band)(nil)

func newBand(h C.GDALRasterBandH) *band {
	return &band{majorObject: majorObject{C.GDALMajorObjectH(unsafe.Pointer(h))}, h: h}
}

func (b *band) XSize() int {
	return int(C.GDALGetRasterBandXSize(b.h))
}

func (b *band) YSize() int {
	return int(C.GDALGetRasterBandYSize(b.h))
}

func (b *band) BlockSize() (int, int) {
	var bx, by C.int
	C.GDALGetBlockSize(b.h, &bx, &by)
	return int(bx), int(by)
}

func (b *band) DataType() native.DataType {
	return native.DataType(C.GDALGetRasterDataType(b.h))
}

func (b *band) NoDataValue() (float64, bool) {
	var ok C.int
	nd := C.GDALGetRasterNoDataValue(b.h, &ok)
	return float64(nd), ok != 0
}

func (b *band) SetNoDataValue(_ native.Thread, nd float64) native.CPLErr {
	return native.CPLErr(C.GDALSetRasterNoDataValue(b.h, C.double(nd)))
}

func (b *band) DeleteNoDataValue(_ native.Thread) native.CPLErr {
	return native.CPLErr(C.GDALDeleteRasterNoDataValue(b.h))
}

func (b *band) Scale() float64 {
	return float64(C.GDALGetRasterScale(b.h, nil))
}

func (b *band) Offset() float64 {
	return float64(C.GDALGetRasterOffset(b.h, nil))
}

func (b *band) SetScale(_ native.Thread, scale float64) native.CPLErr {
	return native.CPLErr(C.GDALSetRasterScale(b.h, C.double(scale)))
}

func (b *band) SetOffset(_ native.Thread, offset float64) native.CPLErr {
	return native.CPLErr(C.GDALSetRasterOffset(b.h, C.double(offset)))
}

func (b *band) MaskFlags() int {
	return int(C.GDALGetMaskFlags(b.h))
}

func (b *band) MaskBand() native.Band {
	h := C.GDALGetMaskBand(b.h)
	if h == nil {
		return nil
	}
	return newBand(h)
}

func (b *band) CreateMaskBand(_ native.Thread, flags int) native.CPLErr {
	return native.CPLErr(C.GDALCreateMaskBand(b.h, C.int(flags)))
}

func (b *band) RasterIO(_ native.Thread, rw native.RWFlag, x, y, w, h int, buf []byte, bufW, bufH int,
	dtype native.DataType, pixelSpace, lineSpace int) native.CPLErr {
	return native.CPLErr(C.GDALRasterIOEx(b.h, C.GDALRWFlag(rw),
		C.int(x), C.int(y), C.int(w), C.int(h),
		bufPointer(buf), C.int(bufW), C.int(bufH), C.GDALDataType(dtype),
		C.GSpacing(pixelSpace), C.GSpacing(lineSpace), nil))
}

func (b *band) Fill(_ native.Thread, real, imag float64) native.CPLErr {
	return native.CPLErr(C.GDALFillRaster(b.h, C.double(real), C.double(imag)))
}
