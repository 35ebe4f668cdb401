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
	"bytes"
	"encoding/json"
	"io"
	"path"
	"strings"

	"github.com/airbusgeo/gdalbridge/native"
	"github.com/paulmach/orb/geojson"
)

func newGeoJSONDriver(e *Engine) *driver {
	d := &driver{
		engine:          e,
		name:            "GeoJSON",
		vector:          true,
		creationOptions: []string{"RFC7946", "WRITE_BBOX"},
		layerOptions:    []string{"ID_FIELD", "COORDINATE_PRECISION"},
		openOptions:     []string{"FLATTEN_NESTED_ATTRIBUTES"},
	}
	d.identify = func(oi *openInfo) bool {
		h := bytes.TrimLeft(oi.header, " \t\r\n")
		return len(h) > 0 && h[0] == '{'
	}
	d.open = func(t native.Thread, oi *openInfo) *memDataset {
		return d.openGeoJSON(t, oi)
	}
	d.create = func(t native.Thread, name string, _, _, _ int, _ native.DataType) *memDataset {
		return d.createGeoJSON(t, name)
	}
	return d
}

func layerName(filename string) string {
	base := path.Base(filename)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (d *driver) openGeoJSON(t native.Thread, oi *openInfo) *memDataset {
	var data []byte
	ok := oi.fh.Seek(0, io.SeekStart) == 0
	if ok {
		data, ok = readAll(t, oi.fh)
	}
	if !ok {
		failf(t, native.FileIO, "GeoJSON: failed to read %s", oi.name)
		return nil
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil || fc.Type != "FeatureCollection" {
		f, ferr := geojson.UnmarshalFeature(data)
		if ferr != nil {
			failf(t, native.AppDefined, "GeoJSON: failed to parse %s: %v", oi.name, err)
			return nil
		}
		fc = geojson.NewFeatureCollection().Append(f)
	}
	ds := &memDataset{
		engine:   d.engine,
		driver:   d,
		readOnly: true,
	}
	ds.desc = oi.name
	l := newLayer(d.engine, layerName(oi.name), native.GTUnknown, true)
	for i, f := range fc.Features {
		fid := int64(i)
		if id, ok := f.ID.(float64); ok && id == float64(int64(id)) {
			fid = int64(id)
		}
		mf := &feature{fid: fid}
		if f.Geometry != nil {
			mf.geom = &geometry{g: f.Geometry}
		}
		l.features[fid] = mf
		if fid >= l.nextFID {
			l.nextFID = fid + 1
		}
		gt := geometryType(f.Geometry)
		switch {
		case i == 0:
			l.gtype = gt
		case l.gtype != gt:
			l.gtype = native.GTUnknown
		}
	}
	ds.layers = []*memLayer{l}
	oi.fh.Close()
	debugf(t, "GeoJSON", "opened %s: %d features", oi.name, len(l.features))
	return ds
}

func readAll(t native.Thread, fh native.VirtualHandle) ([]byte, bool) {
	var out bytes.Buffer
	chunk := make([]byte, 64*1024)
	for {
		n := fh.Read(t, chunk, 1, len(chunk))
		out.Write(chunk[:n])
		if n < len(chunk) {
			return out.Bytes(), fh.Eof()
		}
	}
}

// geojsonFeature is written instead of geojson.Feature so that features without a
// geometry are encoded with a null one
type geojsonFeature struct {
	Type       string            `json:"type"`
	ID         int64             `json:"id"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Properties map[string]any    `json:"properties"`
}

type geojsonCollection struct {
	Type     string           `json:"type"`
	Name     string           `json:"name,omitempty"`
	Features []geojsonFeature `json:"features"`
}

func (d *driver) createGeoJSON(t native.Thread, name string) *memDataset {
	ds := &memDataset{
		engine:    d.engine,
		driver:    d,
		maxLayers: 1,
	}
	ds.desc = name
	if d.writeGeoJSON(t, ds) != native.None {
		failf(t, native.OpenFailed, "Failed to create GeoJSON datasource: %s.", name)
		return nil
	}
	ds.onClose = func(t native.Thread) native.CPLErr {
		return d.writeGeoJSON(t, ds)
	}
	return ds
}

func (d *driver) writeGeoJSON(t native.Thread, ds *memDataset) native.CPLErr {
	fc := geojsonCollection{Type: "FeatureCollection", Features: []geojsonFeature{}}
	if len(ds.layers) > 0 {
		l := ds.layers[0]
		fc.Name = l.name
		for _, fid := range l.fids() {
			f := l.features[fid]
			gf := geojsonFeature{Type: "Feature", ID: fid, Properties: map[string]any{}}
			if f.geom != nil && f.geom.g != nil {
				gf.Geometry = geojson.NewGeometry(f.geom.g)
			}
			fc.Features = append(fc.Features, gf)
		}
	}
	data, err := json.Marshal(fc)
	if err != nil {
		failf(t, native.AppDefined, "GeoJSON: %v", err)
		return native.Failure
	}
	name := ds.Description()
	fh := d.engine.filesystem(name).Open(t, name, "wb", true)
	if fh == nil {
		return native.Failure
	}
	n := fh.Write(t, data, 1, len(data))
	if fh.Close() != 0 || n != len(data) {
		failf(t, native.FileIO, "GeoJSON: failed to write %s", name)
		return native.Failure
	}
	return native.None
}
