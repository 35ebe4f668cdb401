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
	"math"
	"testing"

	"github.com/airbusgeo/gdalbridge/memengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgs84WKT = `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],` +
	`PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]]`

// rampDataset creates a 4x2 single band dataset whose pixels are 0..7
func rampDataset(t *testing.T, b *Bridge, dtype DataType) *Dataset {
	t.Helper()
	ds, err := b.Create(Memory, "", 1, dtype, 4, 2)
	require.NoError(t, err)
	require.NoError(t, ds.Write(0, 0, []float64{0, 1, 2, 3, 4, 5, 6, 7}, 4, 2))
	return ds
}

func TestGeoTransform(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	// not georeferenced: the failure carries no message
	_, err := ds.GeoTransform()
	assert.EqualError(t, err, "unknown cpl error 3")
	el := &errLogger{thresh: CE_Fatal}
	_, err = ds.GeoTransform(ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Equal(t, []string{"unknown cpl error 3"}, el.msg)

	gt := [6]float64{100, 10, 0, 200, 0, -10}
	require.NoError(t, ds.SetGeoTransform(gt))
	got, err := ds.GeoTransform()
	assert.NoError(t, err)
	assert.Equal(t, gt, got)
	assert.Equal(t, 3, eng.CallCount("GetGeoTransform"))

	ro := openGOBR(t, b, eng, "/vsimem/gt.gobr", memengine.GOBROptions{})
	defer ro.Close()
	err = ro.SetGeoTransform(gt)
	assert.EqualError(t, err, "GOBR: cannot set geotransform on read-only dataset")
	el = &errLogger{thresh: CE_Fatal}
	err = ro.SetGeoTransform(gt, ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Equal(t, []string{"GOBR: cannot set geotransform on read-only dataset", "unknown cpl error 3"}, el.msg)
}

func TestProjection(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	assert.Equal(t, "", ds.Projection())
	assert.Nil(t, ds.SpatialRef())
	require.NoError(t, ds.SetProjection(wgs84WKT))
	assert.Equal(t, wgs84WKT, ds.Projection())

	err := ds.SetProjection("epsg:4326")
	assert.EqualError(t, err, `memengine 1.0.0: only WKT spatial references are supported, got "epsg:4326"`)
	assert.Equal(t, wgs84WKT, ds.Projection())

	// the engine cannot build spatial references, so none is returned
	calls := eng.CallCount("NewSpatialRef")
	assert.Nil(t, ds.SpatialRef())
	assert.Equal(t, calls+1, eng.CallCount("NewSpatialRef"))

	require.NoError(t, ds.SetSpatialRef(nil))
	assert.Equal(t, "", ds.Projection())
	require.NoError(t, ds.SetProjection(wgs84WKT))
	require.NoError(t, ds.SetProjection(""))
	assert.Equal(t, "", ds.Projection())
}

func TestSpatialRefNotSupported(t *testing.T) {
	b, eng := newTestBridge(t)
	_, err := b.NewSpatialRefFromEPSG(4326)
	assert.EqualError(t, err, "memengine 1.0.0 has no spatial reference support")
	_, err = b.NewSpatialRefFromWKT(wgs84WKT)
	assert.EqualError(t, err, "memengine 1.0.0 has no spatial reference support")

	el := &errLogger{thresh: CE_Fatal}
	_, err = b.NewSpatialRefFromEPSG(4326, ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown ogr error 7")
	assert.Equal(t, []string{"memengine 1.0.0 has no spatial reference support", "unknown ogr error 7"}, el.msg)
	assert.Equal(t, 3, eng.CallCount("NewSpatialRef"))
}

func TestColorTable(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()
	bnd := ds.Bands()[0]

	ct := bnd.ColorTable()
	assert.Empty(t, ct.Entries)

	rgb := ColorTable{
		PaletteInterp: RGBPalette,
		Entries:       [][4]int16{{255, 0, 0, 255}, {0, 255, 0, 255}, {0, 0, 255, 128}},
	}
	require.NoError(t, bnd.SetColorTable(rgb))
	assert.Equal(t, rgb, bnd.ColorTable())
	// the band keeps its own copy
	rgb.Entries[0][0] = 1
	assert.Equal(t, int16(255), bnd.ColorTable().Entries[0][0])
	assert.Empty(t, ds.Bands()[1].ColorTable().Entries)

	err := bnd.SetColorTable(ColorTable{PaletteInterp: PaletteInterp(7), Entries: rgb.Entries})
	assert.EqualError(t, err, "invalid palette interpretation 7")

	require.NoError(t, bnd.SetColorTable(ColorTable{}))
	ct = bnd.ColorTable()
	assert.Empty(t, ct.Entries)
	assert.Equal(t, GrayscalePalette, ct.PaletteInterp)

	ro := openGOBR(t, b, eng, "/vsimem/ct.gobr", memengine.GOBROptions{})
	defer ro.Close()
	err = ro.Bands()[0].SetColorTable(rgb)
	assert.EqualError(t, err, "GOBR: band is read-only")
	assert.Equal(t, 4, eng.CallCount("SetColorTable"))
}

func TestStatistics(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := rampDataset(t, b, Byte)
	defer ds.Close()
	bnd := ds.Bands()[0]

	_, ok, err := bnd.GetStatistics()
	assert.NoError(t, err)
	assert.False(t, ok)

	st, err := bnd.ComputeStatistics()
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.Min)
	assert.Equal(t, 7.0, st.Max)
	assert.Equal(t, 3.5, st.Mean)
	assert.InDelta(t, math.Sqrt(5.25), st.Std, 1e-12)
	assert.False(t, st.Approximate)

	cached, ok, err := bnd.GetStatistics(Approximate())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, st.Min, cached.Min)
	assert.Equal(t, st.Max, cached.Max)
	assert.Equal(t, st.Mean, cached.Mean)
	assert.Equal(t, st.Std, cached.Std)
	assert.True(t, cached.Approximate)
	assert.Equal(t, "7", bnd.Metadata("STATISTICS_MAXIMUM"))

	// nodata pixels are skipped
	require.NoError(t, bnd.SetNoData(7))
	st, err = bnd.ComputeStatistics(Approximate())
	require.NoError(t, err)
	assert.Equal(t, 6.0, st.Max)
	assert.Equal(t, 3.0, st.Mean)
	assert.True(t, st.Approximate)

	require.NoError(t, bnd.Fill(7, 0))
	_, err = bnd.ComputeStatistics()
	assert.EqualError(t, err, "Failed to compute statistics, no valid pixels found in sampling.")
	el := &errLogger{thresh: CE_Fatal}
	_, err = bnd.ComputeStatistics(ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Len(t, el.msg, 2)
	assert.Equal(t, 4, eng.CallCount("ComputeStatistics"))
}

func TestHistogram(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := rampDataset(t, b, Byte)
	defer ds.Close()
	bnd := ds.Bands()[0]

	h, err := bnd.Histogram(Intervals(4, 0, 8))
	require.NoError(t, err)
	require.Equal(t, 4, h.Len())
	assert.Equal(t, Bucket{Min: 0, Max: 2, Count: 2}, h.Bucket(0))
	assert.Equal(t, Bucket{Min: 6, Max: 8, Count: 2}, h.Bucket(3))

	h, err = bnd.Histogram(Intervals(2, 2, 6))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), h.Bucket(0).Count)
	assert.Equal(t, uint64(2), h.Bucket(1).Count)
	h, err = bnd.Histogram(Intervals(2, 2, 6), IncludeOutOfRange(), Approximate())
	require.NoError(t, err)
	assert.Equal(t, uint64(4), h.Bucket(0).Count)
	assert.Equal(t, uint64(4), h.Bucket(1).Count)

	// default histogram of a Byte band: one bucket per value
	h, err = bnd.Histogram()
	require.NoError(t, err)
	require.Equal(t, 256, h.Len())
	assert.Equal(t, Bucket{Min: -0.5, Max: 0.5, Count: 1}, h.Bucket(0))
	assert.Equal(t, uint64(1), h.Bucket(7).Count)
	assert.Equal(t, uint64(0), h.Bucket(8).Count)

	_, err = bnd.Histogram(Intervals(-1, 0, 1))
	assert.EqualError(t, err, "invalid histogram bucket count")
	_, err = bnd.Histogram(Intervals(4, 5, 5))
	assert.EqualError(t, err, "invalid histogram of 4 buckets over [5,5]")
	assert.Equal(t, 5, eng.CallCount("Histogram"))

	fds := rampDataset(t, b, Float32)
	defer fds.Close()
	h, err = fds.Bands()[0].Histogram()
	require.NoError(t, err)
	require.Equal(t, 256, h.Len())
	total := uint64(0)
	for i := 0; i < h.Len(); i++ {
		total += h.Bucket(i).Count
	}
	assert.Equal(t, uint64(8), total)
	assert.Equal(t, uint64(1), h.Bucket(0).Count)
	assert.Equal(t, uint64(1), h.Bucket(255).Count)
	assert.Less(t, h.Bucket(0).Min, 0.0)
	assert.Greater(t, h.Bucket(255).Max, 7.0)
}

func TestBuildOverviews(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	err := ds.BuildOverviews(Levels(4, 2), Resampling(Cubic), Bands(0, 2), ConfigOption("COMPRESS_OVERVIEW=DEFLATE"))
	assert.EqualError(t, err, "MEM driver does not support overviews")
	assert.Equal(t, 1, eng.CallCount("BuildOverviews"))

	el := &errLogger{thresh: CE_Fatal}
	err = ds.BuildOverviews(Levels(2), ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown cpl error 3")
	assert.Equal(t, []string{"MEM driver does not support overviews", "unknown cpl error 3"}, el.msg)

	// invalid requests do not reach the engine
	err = ds.BuildOverviews(Levels(1, 2))
	assert.EqualError(t, err, "cannot compute overview of level 1")
	err = ds.BuildOverviews(Levels(2), MinSize(4))
	assert.EqualError(t, err, "MinSize and Levels cannot be used together")
	vds, err := b.CreateVector(Memory, "")
	require.NoError(t, err)
	defer vds.Close()
	err = vds.BuildOverviews()
	assert.EqualError(t, err, "cannot compute overviews on dataset with no raster bands")
	// already smaller than the requested size
	assert.NoError(t, ds.BuildOverviews(MinSize(testW)))
	assert.Equal(t, 2, eng.CallCount("BuildOverviews"))

	assert.Empty(t, ds.Bands()[0].Overviews())
}

func TestOverviewLevels(t *testing.T) {
	assert.Equal(t, []int{2, 4}, overviewLevels(1000, 500, 256))
	assert.Equal(t, []int{2, 4, 8}, overviewLevels(100, 2000, 256))
	assert.Empty(t, overviewLevels(256, 100, 256))
}

func TestResamplingAlg(t *testing.T) {
	assert.Equal(t, "nearest", Nearest.String())
	assert.Equal(t, "average", Average.String())
	assert.Equal(t, "cubicspline", CubicSpline.String())
	assert.Equal(t, "q3", Q3.String())
	assert.Panics(t, func() { _ = ResamplingAlg(99).String() })
}

func TestOutputSwitches(t *testing.T) {
	in := []string{"-r", "bilinear"}
	out := outputSwitches(in, GTiff, []string{"TILED=YES", "COMPRESS=LZW"})
	assert.Equal(t, []string{"-r", "bilinear", "-co", "TILED=YES", "-co", "COMPRESS=LZW", "-of", "GTiff"}, out)
	assert.Equal(t, []string{"-r", "bilinear"}, in)
	assert.Equal(t, []string{"-of", "MEM"}, outputSwitches(nil, Memory, nil))
	assert.Equal(t, []string{"-of", "netCDF"}, outputSwitches(nil, DriverName("netCDF"), nil))
	assert.Empty(t, outputSwitches(nil, "", nil))
}

func TestTranslateWarpNotSupported(t *testing.T) {
	b, eng := newTestBridge(t)
	ds := memDataset(t, b)
	defer ds.Close()

	_, err := ds.Translate("/vsimem/out.tif", []string{"-outsize", "50%", "50%"},
		GTiff, CreationOption("TILED=YES"), ConfigOption("GDAL_CACHEMAX=64"))
	assert.EqualError(t, err, "memengine 1.0.0: gdal_translate is not available")
	_, err = ds.Warp("/vsimem/out.tif", []string{"-t_srs", "epsg:3857"}, Memory)
	assert.EqualError(t, err, "memengine 1.0.0: gdalwarp is not available")
	ds2 := memDataset(t, b)
	defer ds2.Close()
	el := &errLogger{thresh: CE_Fatal}
	_, err = b.Warp("/vsimem/out.tif", []*Dataset{ds, ds2}, nil, ErrLogger(el.ErrorHandler))
	assert.EqualError(t, err, "unknown error")
	assert.Equal(t, []string{"memengine 1.0.0: gdalwarp is not available", "unknown error"}, el.msg)

	assert.Equal(t, 1, eng.CallCount("Translate"))
	assert.Equal(t, 2, eng.CallCount("Warp"))
}
