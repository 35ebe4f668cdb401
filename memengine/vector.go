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
	"sort"

	"github.com/airbusgeo/gdalbridge/native"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

var geometryTypes = map[string]native.GeometryType{
	orb.Point{}.GeoJSONType():           native.GTPoint,
	orb.LineString{}.GeoJSONType():      native.GTLineString,
	orb.Polygon{}.GeoJSONType():         native.GTPolygon,
	orb.MultiPoint{}.GeoJSONType():      native.GTMultiPoint,
	orb.MultiLineString{}.GeoJSONType(): native.GTMultiLineString,
	orb.MultiPolygon{}.GeoJSONType():    native.GTMultiPolygon,
	orb.Collection{}.GeoJSONType():      native.GTGeometryCollection,
}

func geometryType(g orb.Geometry) native.GeometryType {
	if g == nil {
		return native.GTNone
	}
	return geometryTypes[g.GeoJSONType()]
}

type geometry struct {
	g orb.Geometry
}

var _ native.Geometry = (*geometry)(nil)

func (g *geometry) Type() native.GeometryType {
	return geometryType(g.g)
}

func (g *geometry) WKT(t native.Thread) (string, native.OGRErr) {
	return wkt.MarshalString(g.g), native.OGRNone
}

func (g *geometry) WKB(t native.Thread) ([]byte, native.OGRErr) {
	b, err := wkb.Marshal(g.g)
	if err != nil {
		failf(t, native.AppDefined, "wkb export: %v", err)
		return nil, native.OGRFailure
	}
	return b, native.OGRNone
}

func (g *geometry) Destroy() {
	g.g = nil
}

// NewGeometryFromWKT parses wkt. Malformed input fails silently with OGRCorruptData.
func (e *Engine) NewGeometryFromWKT(t native.Thread, text string) (native.Geometry, native.OGRErr) {
	e.count("NewGeometryFromWKT")
	g, err := wkt.Unmarshal(text)
	if err != nil || g == nil {
		return nil, native.OGRCorruptData
	}
	return &geometry{g: g}, native.OGRNone
}

// NewGeometryFromWKB parses wkb. Malformed input fails silently with OGRCorruptData.
func (e *Engine) NewGeometryFromWKB(t native.Thread, data []byte) (native.Geometry, native.OGRErr) {
	e.count("NewGeometryFromWKB")
	if len(data) == 0 {
		return nil, native.OGRNotEnoughData
	}
	g, err := wkb.Unmarshal(data)
	if err != nil || g == nil {
		return nil, native.OGRCorruptData
	}
	return &geometry{g: g}, native.OGRNone
}

type feature struct {
	fid  int64
	geom *geometry
}

var _ native.Feature = (*feature)(nil)

func (f *feature) FID() int64 {
	return f.fid
}

func (f *feature) SetFID(fid int64) native.OGRErr {
	f.fid = fid
	return native.OGRNone
}

func (f *feature) Geometry() native.Geometry {
	if f.geom == nil {
		return nil
	}
	return f.geom
}

func (f *feature) SetGeometry(t native.Thread, g native.Geometry) native.OGRErr {
	if g == nil {
		f.geom = nil
		return native.OGRNone
	}
	mg, ok := g.(*geometry)
	if !ok {
		failf(t, native.IllegalArg, "foreign geometry handle")
		return native.OGRFailure
	}
	f.geom = &geometry{g: orb.Clone(mg.g)}
	return native.OGRNone
}

func (f *feature) Destroy() {
	f.geom = nil
}

func (f *feature) clone() *feature {
	c := &feature{fid: f.fid}
	if f.geom != nil {
		c.geom = &geometry{g: orb.Clone(f.geom.g)}
	}
	return c
}

type memLayer struct {
	engine   *Engine
	name     string
	gtype    native.GeometryType
	readOnly bool
	features map[int64]*feature
	nextFID  int64
	cursor   int
	// order caches the sorted fids for sequential reading, nil when stale
	order []int64
}

var _ native.Layer = (*memLayer)(nil)

func newLayer(e *Engine, name string, gtype native.GeometryType, readOnly bool) *memLayer {
	return &memLayer{
		engine:   e,
		name:     name,
		gtype:    gtype,
		readOnly: readOnly,
		features: make(map[int64]*feature),
	}
}

func (l *memLayer) Name() string {
	return l.name
}

func (l *memLayer) GeomType() native.GeometryType {
	return l.gtype
}

func (l *memLayer) FeatureCount(t native.Thread, force bool) int64 {
	l.engine.count("FeatureCount")
	return int64(len(l.features))
}

func (l *memLayer) ResetReading() {
	l.cursor = 0
}

func (l *memLayer) fids() []int64 {
	if l.order == nil {
		l.order = make([]int64, 0, len(l.features))
		for fid := range l.features {
			l.order = append(l.order, fid)
		}
		sort.Slice(l.order, func(i, j int) bool { return l.order[i] < l.order[j] })
	}
	return l.order
}

func (l *memLayer) NextFeature(t native.Thread) native.Feature {
	l.engine.count("NextFeature")
	fids := l.fids()
	for l.cursor < len(fids) {
		f, ok := l.features[fids[l.cursor]]
		l.cursor++
		if ok {
			return f.clone()
		}
	}
	return nil
}

func (l *memLayer) NewFeature() native.Feature {
	return &feature{fid: native.NullFID}
}

func (l *memLayer) checkWritable(t native.Thread) bool {
	if l.readOnly {
		failf(t, native.NoWriteAccess, "layer %s was opened read-only", l.name)
		return false
	}
	return true
}

func (l *memLayer) CreateFeature(t native.Thread, nf native.Feature) native.OGRErr {
	l.engine.count("CreateFeature")
	if !l.checkWritable(t) {
		return native.OGRFailure
	}
	f, ok := nf.(*feature)
	if !ok {
		failf(t, native.IllegalArg, "foreign feature handle")
		return native.OGRFailure
	}
	if f.fid == native.NullFID {
		f.fid = l.nextFID
	} else if _, exists := l.features[f.fid]; exists {
		failf(t, native.AppDefined, "feature %d already exists", f.fid)
		return native.OGRFailure
	}
	if f.fid >= l.nextFID {
		l.nextFID = f.fid + 1
	}
	l.features[f.fid] = f.clone()
	l.order = nil
	return native.OGRNone
}

func (l *memLayer) SetFeature(t native.Thread, nf native.Feature) native.OGRErr {
	l.engine.count("SetFeature")
	if !l.checkWritable(t) {
		return native.OGRFailure
	}
	f, ok := nf.(*feature)
	if !ok {
		failf(t, native.IllegalArg, "foreign feature handle")
		return native.OGRFailure
	}
	if f.fid == native.NullFID {
		failf(t, native.AppDefined, "unable to set feature with no FID")
		return native.OGRFailure
	}
	if _, exists := l.features[f.fid]; !exists {
		return native.OGRNonExistingFeature
	}
	l.features[f.fid] = f.clone()
	return native.OGRNone
}

func (l *memLayer) DeleteFeature(t native.Thread, fid int64) native.OGRErr {
	l.engine.count("DeleteFeature")
	if !l.checkWritable(t) {
		return native.OGRFailure
	}
	if _, exists := l.features[fid]; !exists {
		return native.OGRNonExistingFeature
	}
	delete(l.features, fid)
	l.order = nil
	return native.OGRNone
}
