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
	"strings"

	"github.com/airbusgeo/gdalbridge/native"
)

func (ds *memDataset) GeoTransform(t native.Thread) ([6]float64, native.CPLErr) {
	ds.engine.count("GetGeoTransform")
	if ds.geoTransform == nil {
		return [6]float64{0, 1, 0, 0, 0, 1}, native.Failure
	}
	return *ds.geoTransform, native.None
}

func (ds *memDataset) SetGeoTransform(t native.Thread, gt [6]float64) native.CPLErr {
	ds.engine.count("SetGeoTransform")
	if ds.readOnly {
		failf(t, native.NoWriteAccess, "%s: cannot set geotransform on read-only dataset", ds.driver.name)
		return native.Failure
	}
	ds.geoTransform = &gt
	return native.None
}

func (ds *memDataset) Projection() string {
	return ds.projection
}

// isWKT reports whether s starts with an uppercase WKT keyword followed by '['.
// Other user inputs (EPSG:xxx, proj strings, urls) need an SRS database.
func isWKT(s string) bool {
	i := strings.IndexByte(s, '[')
	if i <= 0 {
		return false
	}
	for _, c := range s[:i] {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}

func (ds *memDataset) SetProjection(t native.Thread, srs string) native.CPLErr {
	ds.engine.count("SetProjection")
	if ds.readOnly {
		failf(t, native.NoWriteAccess, "%s: cannot set projection on read-only dataset", ds.driver.name)
		return native.Failure
	}
	if srs != "" && !isWKT(srs) {
		failf(t, native.NotSupported, "%s: only WKT spatial references are supported, got %q", Version, srs)
		return native.Failure
	}
	ds.projection = srs
	return native.None
}

func (ds *memDataset) SetSpatialRef(t native.Thread, sr native.SpatialRef) native.CPLErr {
	if sr == nil {
		return ds.SetProjection(t, "")
	}
	wkt, ret := sr.WKT(t)
	if ret != native.OGRNone {
		return native.Failure
	}
	return ds.SetProjection(t, wkt)
}

func (ds *memDataset) BuildOverviews(t native.Thread, resampling string, levels, bands []int) native.CPLErr {
	ds.engine.count("BuildOverviews")
	failf(t, native.NotSupported, "%s driver does not support overviews", ds.driver.name)
	return native.Failure
}

func (b *memBand) ColorTable() (native.PaletteInterp, [][4]int16) {
	return b.ctInterp, append([][4]int16(nil), b.ctEntries...)
}

func (b *memBand) SetColorTable(t native.Thread, interp native.PaletteInterp, entries [][4]int16) native.CPLErr {
	b.ds.engine.count("SetColorTable")
	if !b.writable(t) {
		return native.Failure
	}
	if interp < native.PaletteGray || interp > native.PaletteHLS {
		failf(t, native.IllegalArg, "invalid palette interpretation %d", interp)
		return native.Failure
	}
	if len(entries) == 0 {
		b.ctInterp, b.ctEntries = native.PaletteGray, nil
		return native.None
	}
	b.ctInterp, b.ctEntries = interp, append([][4]int16(nil), entries...)
	return native.None
}

func (b *memBand) OverviewCount() int       { return 0 }
func (b *memBand) Overview(int) native.Band { return nil }

func (e *Engine) NewSpatialRefFromWKT(t native.Thread, wkt string) (native.SpatialRef, native.OGRErr) {
	e.count("NewSpatialRef")
	failf(t, native.NotSupported, "%s has no spatial reference support", Version)
	return nil, native.OGRUnsupportedSRS
}

func (e *Engine) NewSpatialRefFromEPSG(t native.Thread, code int) (native.SpatialRef, native.OGRErr) {
	e.count("NewSpatialRef")
	failf(t, native.NotSupported, "%s has no spatial reference support", Version)
	return nil, native.OGRUnsupportedSRS
}

func (e *Engine) Translate(t native.Thread, dst string, src native.Dataset, switches []string) native.Dataset {
	e.count("Translate")
	failf(t, native.NotSupported, "%s: gdal_translate is not available", Version)
	return nil
}

func (e *Engine) Warp(t native.Thread, dst string, srcs []native.Dataset, switches []string) native.Dataset {
	e.count("Warp")
	failf(t, native.NotSupported, "%s: gdalwarp is not available", Version)
	return nil
}
