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

import "github.com/airbusgeo/gdalbridge/native"

// SpatialRef is a wrapper around an engine spatial reference
type SpatialRef struct {
	bridge *Bridge
	handle native.SpatialRef
}

// NewSpatialRefFromWKT creates a SpatialRef from an opengis WKT description
func (b *Bridge) NewSpatialRefFromWKT(wkt string, opts ...CreateSpatialRefOption) (*SpatialRef, error) {
	cso := createSpatialRefOpts{}
	for _, o := range opts {
		o.setCreateSpatialRefOpt(&cso)
	}
	var hndl native.SpatialRef
	err := b.call(nil, cso.errorHandler, func(cc *callContext) {
		var ret native.OGRErr
		hndl, ret = b.engine.NewSpatialRefFromWKT(cc.thread, wkt)
		if ret != native.OGRNone || hndl == nil {
			cc.forceOGRError(ret)
		}
	})
	if err != nil {
		if hndl != nil {
			hndl.Destroy()
		}
		return nil, err
	}
	return &SpatialRef{bridge: b, handle: hndl}, nil
}

// NewSpatialRefFromEPSG creates a SpatialRef from an epsg code
func (b *Bridge) NewSpatialRefFromEPSG(code int, opts ...CreateSpatialRefOption) (*SpatialRef, error) {
	cso := createSpatialRefOpts{}
	for _, o := range opts {
		o.setCreateSpatialRefOpt(&cso)
	}
	var hndl native.SpatialRef
	err := b.call(nil, cso.errorHandler, func(cc *callContext) {
		var ret native.OGRErr
		hndl, ret = b.engine.NewSpatialRefFromEPSG(cc.thread, code)
		if ret != native.OGRNone || hndl == nil {
			cc.forceOGRError(ret)
		}
	})
	if err != nil {
		if hndl != nil {
			hndl.Destroy()
		}
		return nil, err
	}
	return &SpatialRef{bridge: b, handle: hndl}, nil
}

// WKT returns the spatial reference's WKT representation
func (sr *SpatialRef) WKT(opts ...WKTExportOption) (string, error) {
	wo := wktExportOpts{}
	for _, o := range opts {
		o.setWKTExportOpt(&wo)
	}
	var wkt string
	err := sr.bridge.call(nil, wo.errorHandler, func(cc *callContext) {
		var ret native.OGRErr
		if wkt, ret = sr.handle.WKT(cc.thread); ret != native.OGRNone {
			cc.forceOGRError(ret)
		}
	})
	return wkt, err
}

// Close releases memory associated to the spatial reference
func (sr *SpatialRef) Close() {
	if sr.handle == nil {
		return
	}
	sr.handle.Destroy()
	sr.handle = nil
}

// IsSame returns whether two SpatialRefs describe the same projection.
func (sr *SpatialRef) IsSame(other *SpatialRef) bool {
	return sr.handle.IsSame(other.handle)
}

// Geographic returns wether the SpatialRef is geographic
func (sr *SpatialRef) Geographic() bool {
	return sr.handle.Geographic()
}

// AuthorityName is used to query an AUTHORITY[] node from within the WKT tree,
// and fetch the authority name value.
//
// target is the partial or complete path to the node to get an authority from
// (e.g. "PROJCS", "GEOGCS", "GEOGCS|UNIT" or "" to search for an authority node on
// the root element)
func (sr *SpatialRef) AuthorityName(target string) string {
	return sr.handle.AuthorityName(target)
}

// AuthorityCode is used to query an AUTHORITY[] node from within the
// WKT tree, and fetch the code value.
//
// While in theory values may be non-numeric, for the EPSG authority all code values
// should be integral.
func (sr *SpatialRef) AuthorityCode(target string) string {
	return sr.handle.AuthorityCode(target)
}
