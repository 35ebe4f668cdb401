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
	"io"

	"github.com/airbusgeo/gdalbridge/native"
)

// GeometryType is a geometry type
type GeometryType = native.GeometryType

const (
	//GTUnknown is a GeometryType
	GTUnknown = native.GTUnknown
	//GTPoint is a GeometryType
	GTPoint = native.GTPoint
	//GTLineString is a GeometryType
	GTLineString = native.GTLineString
	//GTPolygon is a GeometryType
	GTPolygon = native.GTPolygon
	//GTMultiPoint is a GeometryType
	GTMultiPoint = native.GTMultiPoint
	//GTMultiLineString is a GeometryType
	GTMultiLineString = native.GTMultiLineString
	//GTMultiPolygon is a GeometryType
	GTMultiPolygon = native.GTMultiPolygon
	//GTGeometryCollection is a GeometryType
	GTGeometryCollection = native.GTGeometryCollection
	//GTNone is a GeometryType
	GTNone = native.GTNone
)

// Layer wraps an engine vector layer. Layers are owned by their dataset.
type Layer struct {
	bridge *Bridge
	handle native.Layer
}

// Layers returns all dataset layers
func (ds *Dataset) Layers() []Layer {
	n := ds.handle.LayerCount()
	layers := make([]Layer, 0, n)
	for i := 0; i < n; i++ {
		layers = append(layers, Layer{ds.bridge, ds.handle.Layer(i)})
	}
	return layers
}

// LayerByName fetches a layer by name. Returns false if not found.
func (ds *Dataset) LayerByName(name string) (Layer, bool) {
	hndl := ds.handle.LayerByName(name)
	if hndl == nil {
		return Layer{}, false
	}
	return Layer{ds.bridge, hndl}, true
}

// CreateLayer creates a new vector layer
//
// Available CreateLayerOptions are
//
// • CreationOption
//
// • ErrLogger
func (ds *Dataset) CreateLayer(name string, gtype GeometryType, opts ...CreateLayerOption) (Layer, error) {
	co := createLayerOpts{}
	for _, opt := range opts {
		opt.setCreateLayerOpt(&co)
	}
	var hndl native.Layer
	err := ds.bridge.call(nil, co.errorHandler, func(cc *callContext) {
		hndl = ds.handle.CreateLayer(cc.thread, name, gtype, co.creation)
		if hndl == nil {
			cc.forceError()
		}
	})
	if err != nil {
		return Layer{}, err
	}
	return Layer{ds.bridge, hndl}, nil
}

// Name returns the layer name
func (layer Layer) Name() string {
	return layer.handle.Name()
}

// Type returns the layer's geometry type
func (layer Layer) Type() GeometryType {
	return layer.handle.GeomType()
}

// FeatureCount returns the number of features in the layer
func (layer Layer) FeatureCount(opts ...FeatureCountOption) (int, error) {
	fco := featureCountOpts{}
	for _, o := range opts {
		o.setFeatureCountOpt(&fco)
	}
	var count int64
	err := layer.bridge.call(nil, fco.errorHandler, func(cc *callContext) {
		count = layer.handle.FeatureCount(cc.thread, true)
		if count < 0 {
			cc.forceError()
		}
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ResetReading makes Layer.NextFeature return the first feature of the layer
func (layer Layer) ResetReading() {
	layer.handle.ResetReading()
}

// NextFeature returns the layer's next feature, or io.EOF if there are no more
// features. The returned feature must be closed by the caller.
func (layer Layer) NextFeature(opts ...NextFeatureOption) (*Feature, error) {
	nfo := nextFeatureOpts{}
	for _, o := range opts {
		o.setNextFeatureOpt(&nfo)
	}
	var hndl native.Feature
	err := layer.bridge.call(nil, nfo.errorHandler, func(cc *callContext) {
		hndl = layer.handle.NextFeature(cc.thread)
	})
	if err != nil {
		if hndl != nil {
			hndl.Destroy()
		}
		return nil, err
	}
	if hndl == nil {
		return nil, io.EOF
	}
	return &Feature{layer.bridge, hndl}, nil
}

// NewFeature creates a feature on Layer with geometry geom, which may be nil.
// The returned feature must be closed by the caller.
func (layer Layer) NewFeature(geom *Geometry, opts ...NewFeatureOption) (*Feature, error) {
	nfo := newFeatureOpts{}
	for _, o := range opts {
		o.setNewFeatureOpt(&nfo)
	}
	hndl := layer.handle.NewFeature()
	err := layer.bridge.call(nil, nfo.errorHandler, func(cc *callContext) {
		if geom != nil {
			if gret := hndl.SetGeometry(cc.thread, geom.handle); gret != native.OGRNone {
				cc.forceOGRError(gret)
				return
			}
		}
		if gret := layer.handle.CreateFeature(cc.thread, hndl); gret != native.OGRNone {
			cc.forceOGRError(gret)
		}
	})
	if err != nil {
		hndl.Destroy()
		return nil, err
	}
	return &Feature{layer.bridge, hndl}, nil
}

// UpdateFeature rewrites an updated feature in the Layer
func (layer Layer) UpdateFeature(feat *Feature, opts ...UpdateFeatureOption) error {
	uo := updateFeatureOpts{}
	for _, o := range opts {
		o.setUpdateFeatureOpt(&uo)
	}
	return layer.bridge.call(nil, uo.errorHandler, func(cc *callContext) {
		if gret := layer.handle.SetFeature(cc.thread, feat.handle); gret != native.OGRNone {
			cc.forceOGRError(gret)
		}
	})
}

// DeleteFeature deletes feature from the Layer. The feature must have been
// assigned an identifier by the layer.
func (layer Layer) DeleteFeature(feat *Feature, opts ...DeleteFeatureOption) error {
	do := deleteFeatureOpts{}
	for _, o := range opts {
		o.setDeleteFeatureOpt(&do)
	}
	return layer.bridge.call(nil, do.errorHandler, func(cc *callContext) {
		fid := feat.handle.FID()
		if fid == native.NullFID {
			cc.raise("cannot delete feature with no FID")
			return
		}
		if gret := layer.handle.DeleteFeature(cc.thread, fid); gret != native.OGRNone {
			cc.forceOGRError(gret)
		}
	})
}

// Feature is a Layer feature
type Feature struct {
	bridge *Bridge
	handle native.Feature
}

// FID returns the feature identifier, or -1 if none has been assigned
func (f *Feature) FID() int64 {
	return f.handle.FID()
}

// SetFID sets the feature identifier. The change is only persisted through Layer.UpdateFeature.
func (f *Feature) SetFID(fid int64) {
	f.handle.SetFID(fid)
}

// Geometry returns the feature's geometry, or nil if it has none. The returned
// geometry is owned by the feature and becomes invalid when the feature is closed.
func (f *Feature) Geometry() *Geometry {
	hndl := f.handle.Geometry()
	if hndl == nil {
		return nil
	}
	return &Geometry{bridge: f.bridge, handle: hndl, borrowed: true}
}

// SetGeometry overwrites the feature's geometry with a copy of geom. A nil geom
// clears the geometry.
func (f *Feature) SetGeometry(geom *Geometry, opts ...SetGeometryOption) error {
	so := setGeometryOpts{}
	for _, o := range opts {
		o.setSetGeometryOpt(&so)
	}
	var gh native.Geometry
	if geom != nil {
		gh = geom.handle
	}
	return f.bridge.call(nil, so.errorHandler, func(cc *callContext) {
		if gret := f.handle.SetGeometry(cc.thread, gh); gret != native.OGRNone {
			cc.forceOGRError(gret)
		}
	})
}

// Close releases resources associated to a feature
func (f *Feature) Close() {
	if f.handle == nil {
		return
	}
	f.handle.Destroy()
	f.handle = nil
}

// Geometry wraps an engine geometry
type Geometry struct {
	bridge   *Bridge
	handle   native.Geometry
	borrowed bool
}

// NewGeometryFromWKT creates a new Geometry from its WKT representation
func (b *Bridge) NewGeometryFromWKT(wkt string, opts ...NewGeometryOption) (*Geometry, error) {
	no := newGeometryOpts{}
	for _, o := range opts {
		o.setNewGeometryOpt(&no)
	}
	var hndl native.Geometry
	err := b.call(nil, no.errorHandler, func(cc *callContext) {
		var gret native.OGRErr
		hndl, gret = b.engine.NewGeometryFromWKT(cc.thread, wkt)
		if gret != native.OGRNone {
			cc.forceOGRError(gret)
		} else if hndl == nil {
			cc.forceError()
		}
	})
	if err != nil {
		if hndl != nil {
			hndl.Destroy()
		}
		return nil, err
	}
	return &Geometry{bridge: b, handle: hndl}, nil
}

// NewGeometryFromWKB creates a new Geometry from its WKB representation
func (b *Bridge) NewGeometryFromWKB(wkb []byte, opts ...NewGeometryOption) (*Geometry, error) {
	no := newGeometryOpts{}
	for _, o := range opts {
		o.setNewGeometryOpt(&no)
	}
	var hndl native.Geometry
	err := b.call(nil, no.errorHandler, func(cc *callContext) {
		var gret native.OGRErr
		hndl, gret = b.engine.NewGeometryFromWKB(cc.thread, wkb)
		if gret != native.OGRNone {
			cc.forceOGRError(gret)
		} else if hndl == nil {
			cc.forceError()
		}
	})
	if err != nil {
		if hndl != nil {
			hndl.Destroy()
		}
		return nil, err
	}
	return &Geometry{bridge: b, handle: hndl}, nil
}

// Type returns the geometry's type
func (g *Geometry) Type() GeometryType {
	return g.handle.Type()
}

// WKT returns the Geomtry's WKT representation
func (g *Geometry) WKT(opts ...GeometryWKTOption) (string, error) {
	wo := geometryWKTOpts{}
	for _, o := range opts {
		o.setGeometryWKTOpt(&wo)
	}
	var wkt string
	err := g.bridge.call(nil, wo.errorHandler, func(cc *callContext) {
		var gret native.OGRErr
		wkt, gret = g.handle.WKT(cc.thread)
		if gret != native.OGRNone {
			cc.forceOGRError(gret)
		}
	})
	if err != nil {
		return "", err
	}
	return wkt, nil
}

// WKB returns the Geomtry's WKB representation
func (g *Geometry) WKB(opts ...GeometryWKBOption) ([]byte, error) {
	wo := geometryWKBOpts{}
	for _, o := range opts {
		o.setGeometryWKBOpt(&wo)
	}
	var wkb []byte
	err := g.bridge.call(nil, wo.errorHandler, func(cc *callContext) {
		var gret native.OGRErr
		wkb, gret = g.handle.WKB(cc.thread)
		if gret != native.OGRNone {
			cc.forceOGRError(gret)
		}
	})
	if err != nil {
		return nil, err
	}
	return wkb, nil
}

// Close releases the geometry. Geometries returned by Feature.Geometry are owned by
// their feature and are left untouched.
func (g *Geometry) Close() {
	if g.handle == nil || g.borrowed {
		return
	}
	g.handle.Destroy()
	g.handle = nil
}
