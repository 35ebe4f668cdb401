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

type layer struct {
	h C.OGRLayerH
}

var _ native.Layer = (*layer)(nil)

func (l *layer) Name() string {
	return C.GoString(C.OGR_L_GetName(l.h))
}

func (l *layer) GeomType() native.GeometryType {
	return native.GeometryType(C.OGR_GT_Flatten(C.OGR_L_GetGeomType(l.h)))
}

func (l *layer) FeatureCount(_ native.Thread, force bool) int64 {
	cforce := C.int(0)
	if force {
		cforce = 1
	}
	return int64(C.OGR_L_GetFeatureCount(l.h, cforce))
}

func (l *layer) ResetReading() {
	C.OGR_L_ResetReading(l.h)
}

func (l *layer) NextFeature(_ native.Thread) native.Feature {
	h := C.OGR_L_GetNextFeature(l.h)
	if h == nil {
		return nil
	}
	return &feature{h: h}
}

func (l *layer) NewFeature() native.Feature {
	return &feature{h: C.OGR_F_Create(C.OGR_L_GetLayerDefn(l.h))}
}

func (l *layer) CreateFeature(_ native.Thread, f native.Feature) native.OGRErr {
	return native.OGRErr(C.OGR_L_CreateFeature(l.h, f.(*feature).h))
}

func (l *layer) SetFeature(_ native.Thread, f native.Feature) native.OGRErr {
	return native.OGRErr(C.OGR_L_SetFeature(l.h, f.(*feature).h))
}

func (l *layer) DeleteFeature(_ native.Thread, fid int64) native.OGRErr {
	return native.OGRErr(C.OGR_L_DeleteFeature(l.h, C.GIntBig(fid)))
}

type feature struct {
	h C.OGRFeatureH
}

var _ native.Feature = (*feature)(nil)

func (f *feature) FID() int64 {
	return int64(C.OGR_F_GetFID(f.h))
}

func (f *feature) SetFID(fid int64) native.OGRErr {
	return native.OGRErr(C.OGR_F_SetFID(f.h, C.GIntBig(fid)))
}

func (f *feature) Geometry() native.Geometry {
	h := C.OGR_F_GetGeometryRef(f.h)
	if h == nil {
		return nil
	}
	return &geometry{h: h, borrowed: true}
}

func (f *feature) SetGeometry(_ native.Thread, g native.Geometry) native.OGRErr {
	var gh C.OGRGeometryH
	if g != nil {
		gh = g.(*geometry).h
	}
	return native.OGRErr(C.OGR_F_SetGeometry(f.h, gh))
}

func (f *feature) Destroy() {
	if f.h == nil {
		return
	}
	C.OGR_F_Destroy(f.h)
	f.h = nil
}

type geometry struct {
	h        C.OGRGeometryH
	borrowed bool
}

var _ native.Geometry = (*geometry)(nil)

func (g *geometry) Type() native.GeometryType {
	return native.GeometryType(C.OGR_GT_Flatten(C.OGR_G_GetGeometryType(g.h)))
}

func (g *geometry) WKT(_ native.Thread) (string, native.OGRErr) {
	var cwkt *C.char
	ret := C.OGR_G_ExportToWkt(g.h, &cwkt)
	defer C.VSIFree(unsafe.Pointer(cwkt))
	if ret != 0 {
		return "", native.OGRErr(ret)
	}
	return C.GoString(cwkt), native.OGRNone
}

func (g *geometry) WKB(_ native.Thread) ([]byte, native.OGRErr) {
	n := int(C.OGR_G_WkbSize(g.h))
	if n <= 0 {
		return nil, native.OGRFailure
	}
	buf := make([]byte, n)
	ret := C.OGR_G_ExportToWkb(g.h, C.wkbNDR, (*C.uchar)(unsafe.Pointer(&buf[0])))
	if ret != 0 {
		return nil, native.OGRErr(ret)
	}
	return buf, native.OGRNone
}

// Destroy is a no-op on geometries owned by a feature
func (g *geometry) Destroy() {
	if g.h == nil || g.borrowed {
		return
	}
	C.OGR_G_DestroyGeometry(g.h)
	g.h = nil
}

func (e *Engine) NewGeometryFromWKT(_ native.Thread, wkt string) (native.Geometry, native.OGRErr) {
	cwkt := C.CString(wkt)
	defer C.free(unsafe.Pointer(cwkt))
	p := cwkt
	var h C.OGRGeometryH
	if ret := C.OGR_G_CreateFromWkt(&p, nil, &h); ret != 0 {
		return nil, native.OGRErr(ret)
	}
	return &geometry{h: h}, native.OGRNone
}

func (e *Engine) NewGeometryFromWKB(_ native.Thread, wkb []byte) (native.Geometry, native.OGRErr) {
	if len(wkb) == 0 {
		return nil, native.OGRNotEnoughData
	}
	cwkb := C.CBytes(wkb)
	defer C.free(cwkb)
	var h C.OGRGeometryH
	if ret := C.OGR_G_CreateFromWkb(cwkb, nil, &h, C.int(len(wkb))); ret != 0 {
		return nil, native.OGRErr(ret)
	}
	return &geometry{h: h}, native.OGRNone
}
