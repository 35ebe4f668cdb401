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

func (ds *dataset) GeoTransform(_ native.Thread) ([6]float64, native.CPLErr) {
	var cgt [6]C.double
	ret := C.GDALGetGeoTransform(ds.h, &cgt[0])
	var gt [6]float64
	for i := range cgt {
		gt[i] = float64(cgt[i])
	}
	return gt, native.CPLErr(ret)
}

func (ds *dataset) SetGeoTransform(_ native.Thread, gt [6]float64) native.CPLErr {
	var cgt [6]C.double
	for i := range gt {
		cgt[i] = C.double(gt[i])
	}
	return native.CPLErr(C.GDALSetGeoTransform(ds.h, &cgt[0]))
}

func (ds *dataset) Projection() string {
	return C.GoString(C.GDALGetProjectionRef(ds.h))
}

func (ds *dataset) SetProjection(_ native.Thread, srs string) native.CPLErr {
	if srs == "" {
		return native.CPLErr(C.GDALSetSpatialRef(ds.h, nil))
	}
	csrs := C.CString(srs)
	defer C.free(unsafe.Pointer(csrs))
	sr := C.OSRNewSpatialReference(nil)
	defer C.OSRRelease(sr)
	if C.OSRSetFromUserInput(sr, csrs) != C.OGRERR_NONE {
		return native.Failure
	}
	return native.CPLErr(C.GDALSetSpatialRef(ds.h, sr))
}

func (ds *dataset) SetSpatialRef(_ native.Thread, sr native.SpatialRef) native.CPLErr {
	if sr == nil {
		return native.CPLErr(C.GDALSetSpatialRef(ds.h, nil))
	}
	return native.CPLErr(C.GDALSetSpatialRef(ds.h, sr.(*spatialRef).h))
}

func (ds *dataset) BuildOverviews(_ native.Thread, resampling string, levels, bands []int) native.CPLErr {
	cres := C.CString(resampling)
	defer C.free(unsafe.Pointer(cres))
	clevels := cIntArray(levels)
	defer C.free(unsafe.Pointer(clevels))
	cbands := cIntArray(bands)
	defer C.free(unsafe.Pointer(cbands))
	return native.CPLErr(C.GDALBuildOverviews(ds.h, cres, C.int(len(levels)), clevels,
		C.int(len(bands)), cbands, nil, nil))
}

func (b *band) ColorTable() (native.PaletteInterp, [][4]int16) {
	ct := C.GDALGetRasterColorTable(b.h)
	if ct == nil {
		return native.PaletteGray, nil
	}
	n := int(C.GDALGetColorEntryCount(ct))
	entries := make([][4]int16, n)
	for i := 0; i < n; i++ {
		ce := C.GDALGetColorEntry(ct, C.int(i))
		entries[i] = [4]int16{int16(ce.c1), int16(ce.c2), int16(ce.c3), int16(ce.c4)}
	}
	return native.PaletteInterp(C.GDALGetPaletteInterpretation(ct)), entries
}

func (b *band) SetColorTable(_ native.Thread, interp native.PaletteInterp, entries [][4]int16) native.CPLErr {
	if len(entries) == 0 {
		return native.CPLErr(C.GDALSetRasterColorTable(b.h, nil))
	}
	ct := C.GDALCreateColorTable(C.GDALPaletteInterp(interp))
	defer C.GDALDestroyColorTable(ct)
	for i, e := range entries {
		ce := C.GDALColorEntry{c1: C.short(e[0]), c2: C.short(e[1]), c3: C.short(e[2]), c4: C.short(e[3])}
		C.GDALSetColorEntry(ct, C.int(i), &ce)
	}
	return native.CPLErr(C.GDALSetRasterColorTable(b.h, ct))
}

func cBool(v bool) C.int {
	if v {
		return 1
	}
	return 0
}

func (b *band) Histogram(_ native.Thread, min, max float64, buckets int, includeOutOfRange, approxOK bool) (float64, float64, []uint64, native.CPLErr) {
	if buckets == 0 {
		var cmin, cmax C.double
		var cbuckets C.int
		var values *C.GUIntBig
		ret := C.GDALGetDefaultHistogramEx(b.h, &cmin, &cmax, &cbuckets, &values, 1, nil, nil)
		defer C.VSIFree(unsafe.Pointer(values))
		if ret != C.CE_None {
			return 0, 0, nil, native.CPLErr(ret)
		}
		counts := make([]uint64, int(cbuckets))
		for i, v := range unsafe.Slice(values, int(cbuckets)) {
			counts[i] = uint64(v)
		}
		return float64(cmin), float64(cmax), counts, native.None
	}
	values := make([]C.GUIntBig, buckets)
	ret := C.GDALGetRasterHistogramEx(b.h, C.double(min), C.double(max), C.int(buckets), &values[0],
		cBool(includeOutOfRange), cBool(approxOK), nil, nil)
	if ret != C.CE_None {
		return 0, 0, nil, native.CPLErr(ret)
	}
	counts := make([]uint64, buckets)
	for i, v := range values {
		counts[i] = uint64(v)
	}
	return min, max, counts, native.None
}

func (b *band) ComputeStatistics(_ native.Thread, approxOK bool) (native.Statistics, native.CPLErr) {
	var min, max, mean, std C.double
	ret := C.GDALComputeRasterStatistics(b.h, cBool(approxOK), &min, &max, &mean, &std, nil, nil)
	return native.Statistics{Min: float64(min), Max: float64(max), Mean: float64(mean), Std: float64(std)}, native.CPLErr(ret)
}

// GetStatistics never forces a scan. CE_Warning is libgdal's way of saying there
// is nothing to return.
func (b *band) GetStatistics(_ native.Thread, approxOK bool) (native.Statistics, bool, native.CPLErr) {
	var min, max, mean, std C.double
	ret := C.GDALGetRasterStatistics(b.h, cBool(approxOK), 0, &min, &max, &mean, &std)
	switch ret {
	case C.CE_None:
		return native.Statistics{Min: float64(min), Max: float64(max), Mean: float64(mean), Std: float64(std)}, true, native.None
	case C.CE_Warning:
		return native.Statistics{}, false, native.None
	default:
		return native.Statistics{}, false, native.CPLErr(ret)
	}
}

func (b *band) OverviewCount() int {
	return int(C.GDALGetOverviewCount(b.h))
}

func (b *band) Overview(i int) native.Band {
	h := C.GDALGetOverview(b.h, C.int(i))
	if h == nil {
		return nil
	}
	return newBand(h)
}

type spatialRef struct {
	h C.OGRSpatialReferenceH
}

var _ native.SpatialRef = (*spatialRef)(nil)

func newSpatialRef() *spatialRef {
	sr := &spatialRef{h: C.OSRNewSpatialReference(nil)}
	C.OSRSetAxisMappingStrategy(sr.h, C.OAMS_TRADITIONAL_GIS_ORDER)
	return sr
}

func (e *Engine) NewSpatialRefFromWKT(_ native.Thread, wkt string) (native.SpatialRef, native.OGRErr) {
	cwkt := C.CString(wkt)
	defer C.free(unsafe.Pointer(cwkt))
	sr := newSpatialRef()
	// OSRImportFromWkt advances the pointer it is given
	cur := cwkt
	if ret := C.OSRImportFromWkt(sr.h, &cur); ret != C.OGRERR_NONE {
		sr.Destroy()
		return nil, native.OGRErr(ret)
	}
	return sr, native.OGRNone
}

func (e *Engine) NewSpatialRefFromEPSG(_ native.Thread, code int) (native.SpatialRef, native.OGRErr) {
	sr := newSpatialRef()
	if ret := C.OSRImportFromEPSG(sr.h, C.int(code)); ret != C.OGRERR_NONE {
		sr.Destroy()
		return nil, native.OGRErr(ret)
	}
	return sr, native.OGRNone
}

func (sr *spatialRef) WKT(_ native.Thread) (string, native.OGRErr) {
	var out *C.char
	ret := C.OSRExportToWkt(sr.h, &out)
	defer C.VSIFree(unsafe.Pointer(out))
	if ret != C.OGRERR_NONE {
		return "", native.OGRErr(ret)
	}
	return C.GoString(out), native.OGRNone
}

func cTarget(target string) (*C.char, func()) {
	if target == "" {
		return nil, func() {}
	}
	ct := C.CString(target)
	return ct, func() { C.free(unsafe.Pointer(ct)) }
}

func (sr *spatialRef) AuthorityName(target string) string {
	ct, free := cTarget(target)
	defer free()
	return C.GoString(C.OSRGetAuthorityName(sr.h, ct))
}

func (sr *spatialRef) AuthorityCode(target string) string {
	ct, free := cTarget(target)
	defer free()
	return C.GoString(C.OSRGetAuthorityCode(sr.h, ct))
}

func (sr *spatialRef) Geographic() bool {
	return C.OSRIsGeographic(sr.h) != 0
}

func (sr *spatialRef) IsSame(other native.SpatialRef) bool {
	o, ok := other.(*spatialRef)
	if !ok || o == nil {
		return false
	}
	return C.OSRIsSame(sr.h, o.h) != 0
}

func (sr *spatialRef) Destroy() {
	if sr.h != nil {
		C.OSRRelease(sr.h)
		sr.h = nil
	}
}

func (e *Engine) Translate(_ native.Thread, dst string, src native.Dataset, switches []string) native.Dataset {
	cswitches := sliceToCStringArray(switches)
	defer cswitches.free()
	opts := C.GDALTranslateOptionsNew(cswitches.cPointer(), nil)
	if opts == nil {
		return nil
	}
	defer C.GDALTranslateOptionsFree(opts)
	cdst := C.CString(dst)
	defer C.free(unsafe.Pointer(cdst))
	var usageErr C.int
	h := C.GDALTranslate(cdst, src.(*dataset).h, opts, &usageErr)
	if h == nil {
		return nil
	}
	return newDataset(h)
}

func (e *Engine) Warp(_ native.Thread, dst string, srcs []native.Dataset, switches []string) native.Dataset {
	cswitches := sliceToCStringArray(switches)
	defer cswitches.free()
	opts := C.GDALWarpAppOptionsNew(cswitches.cPointer(), nil)
	if opts == nil {
		return nil
	}
	defer C.GDALWarpAppOptionsFree(opts)
	cdst := C.CString(dst)
	defer C.free(unsafe.Pointer(cdst))
	hs := make([]C.GDALDatasetH, len(srcs))
	for i, src := range srcs {
		hs[i] = src.(*dataset).h
	}
	var phs *C.GDALDatasetH
	if len(hs) > 0 {
		phs = &hs[0]
	}
	var usageErr C.int
	h := C.GDALWarp(cdst, nil, C.int(len(hs)), phs, opts, &usageErr)
	if h == nil {
		return nil
	}
	return newDataset(h)
}
