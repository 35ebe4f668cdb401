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
	"fmt"
	"path/filepath"
	"sort"

	"github.com/airbusgeo/gdalbridge/native"
)

// Dataset is a wrapper around an engine dataset handle
type Dataset struct {
	majorObject
	handle native.Dataset
}

func (b *Bridge) newDataset(h native.Dataset) *Dataset {
	return &Dataset{majorObject: majorObject{bridge: b, mo: h}, handle: h}
}

// Open opens a dataset with the provided options. It returns nil and an error
// in case there was an error opening the provided dataset name.
//
// name may be a filename or any string supported by the engine (e.g. a /vsixxx path
// or a prefix registered with RegisterVSIHandler).
//
// The returned error matches syscall.ENOENT (and fs.ErrNotExist) when the engine
// reports that name does not exist.
func (b *Bridge) Open(name string, options ...OpenOption) (*Dataset, error) {
	oopts := openOpts{
		flags:        native.OfReadOnly | native.OfVerboseError,
		siblingFiles: []string{filepath.Base(name)},
	}
	for _, opt := range options {
		opt.setOpenOpt(&oopts)
	}
	var hndl native.Dataset
	errno, err := b.callErrno(oopts.config, oopts.errorHandler, func(cc *callContext) {
		hndl = b.engine.Open(cc.thread, name, oopts.flags, oopts.drivers, oopts.options, oopts.siblingFiles)
		if hndl == nil {
			cc.forceError()
		}
	})
	if err != nil {
		if hndl != nil {
			// opened, but with warnings treated as errors
			_ = b.call(nil, nil, func(cc *callContext) { hndl.Close(cc.thread) })
		}
		return nil, withErrno(err, errno)
	}
	return b.newDataset(hndl), nil
}

// Close releases the dataset
func (ds *Dataset) Close(opts ...CloseOption) error {
	co := closeOpts{}
	for _, o := range opts {
		o.setCloseOpt(&co)
	}
	if ds.handle == nil {
		return fmt.Errorf("close called more than once")
	}
	hndl := ds.handle
	ds.handle = nil
	ds.mo = nil
	return ds.bridge.call(nil, co.errorHandler, func(cc *callContext) {
		if ret := hndl.Close(cc.thread); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// Structure returns the dataset's Structure. Block size, data type, scale and offset
// are those of the first band.
func (ds *Dataset) Structure() DatasetStructure {
	st := DatasetStructure{
		BandStructure: BandStructure{
			SizeX:  ds.handle.RasterXSize(),
			SizeY:  ds.handle.RasterYSize(),
			Scale:  1,
			Offset: 0,
		},
		NBands: ds.handle.RasterCount(),
	}
	if st.NBands > 0 {
		bst := ds.bridge.newBand(ds.handle.RasterBand(1)).Structure()
		st.BlockSizeX, st.BlockSizeY = bst.BlockSizeX, bst.BlockSizeY
		st.Scale, st.Offset = bst.Scale, bst.Offset
		st.DataType = bst.DataType
	}
	return st
}

// Bands returns all dataset bands.
func (ds *Dataset) Bands() []Band {
	n := ds.handle.RasterCount()
	bands := make([]Band, 0, n)
	for i := 1; i <= n; i++ {
		bands = append(bands, ds.bridge.newBand(ds.handle.RasterBand(i)))
	}
	return bands
}

// SetNoData sets the nodata value of every band of the dataset. It fails on
// datasets without raster bands. Every band is attempted, the first failure is reported.
func (ds *Dataset) SetNoData(nd float64, opts ...SetNoDataOption) error {
	sndo := setNodataOpts{}
	for _, opt := range opts {
		opt.setSetNoDataOpt(&sndo)
	}
	return ds.bridge.call(nil, sndo.errorHandler, func(cc *callContext) {
		n := ds.handle.RasterCount()
		if n == 0 {
			cc.raise("cannot set nodata value on dataset with no raster bands")
			return
		}
		ret := native.None
		for i := 1; i <= n; i++ {
			if br := ds.handle.RasterBand(i).SetNoDataValue(cc.thread, nd); br != native.None && ret == native.None {
				ret = br
			}
		}
		if ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// SetScaleOffset sets the scale and offset of every band of the dataset. It fails
// on datasets without raster bands. Every band is attempted, the first failure is reported.
func (ds *Dataset) SetScaleOffset(scale, offset float64, opts ...SetScaleOffsetOption) error {
	setterOpts := setScaleOffsetOpts{}
	for _, opt := range opts {
		opt.setSetScaleOffsetOpt(&setterOpts)
	}
	return ds.bridge.call(nil, setterOpts.errorHandler, func(cc *callContext) {
		n := ds.handle.RasterCount()
		if n == 0 {
			cc.raise("cannot set scale/offset on dataset with no raster bands")
			return
		}
		ret := native.None
		for i := 1; i <= n; i++ {
			bnd := ds.handle.RasterBand(i)
			br := bnd.SetScale(cc.thread, scale)
			if br == native.None {
				br = bnd.SetOffset(cc.thread, offset)
			}
			if br != native.None && ret == native.None {
				ret = br
			}
		}
		if ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// CreateMaskBand creates a mask (nodata) band shared for all bands of this dataset.
//
// Any handle returned by a previous call to Band.MaskBand() should not be used after a call to CreateMaskBand
// See https://gdal.org/development/rfc/rfc15_nodatabitmask.html for how flag should be used
func (ds *Dataset) CreateMaskBand(flags int, opts ...DatasetCreateMaskOption) (Band, error) {
	gopts := dsCreateMaskOpts{}
	for _, opt := range opts {
		opt.setDatasetCreateMaskOpt(&gopts)
	}
	var mask native.Band
	err := ds.bridge.call(gopts.config, gopts.errorHandler, func(cc *callContext) {
		if ds.handle.RasterCount() == 0 {
			cc.raise("cannot create mask band on dataset with no bands")
			return
		}
		if ret := ds.handle.CreateMaskBand(cc.thread, flags); ret != native.None {
			cc.forceCPLError(ret)
			return
		}
		mask = ds.handle.RasterBand(1).MaskBand()
		if mask == nil {
			cc.forceError()
		}
	})
	if err != nil {
		return Band{}, err
	}
	return ds.bridge.newBand(mask), nil
}

// Read populates the supplied buffer with the pixels contained in the supplied window
func (ds *Dataset) Read(srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...DatasetIOOption) error {
	return ds.IO(IORead, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// Write sets the dataset's pixels contained in the supplied window to the content of the supplied buffer
func (ds *Dataset) Write(srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...DatasetIOOption) error {
	return ds.IO(IOWrite, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// IO reads or writes the pixels contained in the supplied window
func (ds *Dataset) IO(rw IOOperation, srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...DatasetIOOption) error {
	ro := datasetIOOpts{}
	for _, opt := range opts {
		opt.setDatasetIOOpt(&ro)
	}
	if ro.dsHeight == 0 {
		ro.dsHeight = bufHeight
	}
	if ro.dsWidth == 0 {
		ro.dsWidth = bufWidth
	}
	if ro.bands == nil {
		n := ds.handle.RasterCount()
		if n == 0 {
			return fmt.Errorf("cannot perform io on dataset with no bands")
		}
		for i := 1; i <= n; i++ {
			ro.bands = append(ro.bands, i)
		}
	}
	dtype, err := bufferType(buffer)
	if err != nil {
		return err
	}
	dsize := dtype.Size()

	pixelSpacing := dsize * len(ro.bands)
	if ro.pixelSpacing > 0 {
		pixelSpacing = ro.pixelSpacing
	}
	lineSpacing := bufWidth * pixelSpacing
	if ro.lineSpacing > 0 {
		lineSpacing = ro.lineSpacing
	}
	bandSpacing := dsize
	if ro.bandSpacing > 0 {
		bandSpacing = ro.bandSpacing
	}
	if ro.bandInterleave {
		pixelSpacing = dsize
		lineSpacing = bufWidth * dsize
		bandSpacing = bufHeight * bufWidth * dsize
	}

	minsize := ((len(ro.bands)-1)*bandSpacing + (bufHeight-1)*lineSpacing + (bufWidth-1)*pixelSpacing + dsize) / dsize
	buf, err := bufferBytes(buffer, minsize)
	if err != nil {
		return err
	}
	return ds.bridge.call(ro.config, ro.errorHandler, func(cc *callContext) {
		ret := ds.handle.RasterIO(cc.thread, rw, srcX, srcY, ro.dsWidth, ro.dsHeight,
			buf, bufWidth, bufHeight, dtype, ro.bands, pixelSpacing, lineSpacing, bandSpacing)
		if ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// GeoTransform returns the affine transformation coefficients
func (ds *Dataset) GeoTransform(opts ...GetGeoTransformOption) ([6]float64, error) {
	gto := getGeoTransformOpts{}
	for _, o := range opts {
		o.setGetGeoTransformOpt(&gto)
	}
	var gt [6]float64
	err := ds.bridge.call(nil, gto.errorHandler, func(cc *callContext) {
		var ret native.CPLErr
		if gt, ret = ds.handle.GeoTransform(cc.thread); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
	if err != nil {
		return [6]float64{}, err
	}
	return gt, nil
}

// SetGeoTransform configures the affine transformation coefficients
func (ds *Dataset) SetGeoTransform(transform [6]float64, opts ...SetGeoTransformOption) error {
	gto := setGeoTransformOpts{}
	for _, o := range opts {
		o.setSetGeoTransformOpt(&gto)
	}
	return ds.bridge.call(nil, gto.errorHandler, func(cc *callContext) {
		if ret := ds.handle.SetGeoTransform(cc.thread, transform); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// Projection returns the WKT of the projection in use by this dataset, or an
// empty string if none is defined
func (ds *Dataset) Projection() string {
	return ds.handle.Projection()
}

// SetProjection sets the WKT projection of the dataset. May be empty.
//
// Anything the engine accepts as user input (e.g. "epsg:4326") may be used.
func (ds *Dataset) SetProjection(wkt string, opts ...SetProjectionOption) error {
	po := setProjectionOpts{}
	for _, o := range opts {
		o.setSetProjectionOpt(&po)
	}
	return ds.bridge.call(nil, po.errorHandler, func(cc *callContext) {
		if ret := ds.handle.SetProjection(cc.thread, wkt); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// SpatialRef returns the dataset's projection, or nil if it has none or if the
// engine cannot interpret it.
func (ds *Dataset) SpatialRef() *SpatialRef {
	wkt := ds.handle.Projection()
	if wkt == "" {
		return nil
	}
	sr, err := ds.bridge.NewSpatialRefFromWKT(wkt)
	if err != nil {
		return nil
	}
	return sr
}

// SetSpatialRef sets dataset's projection.
//
// sr can be set to nil to clear an existing projection
func (ds *Dataset) SetSpatialRef(sr *SpatialRef, opts ...SetSpatialRefOption) error {
	so := setSpatialRefOpts{}
	for _, o := range opts {
		o.setSetSpatialRefOpt(&so)
	}
	var nsr native.SpatialRef
	if sr != nil {
		nsr = sr.handle
	}
	return ds.bridge.call(nil, so.errorHandler, func(cc *callContext) {
		if ret := ds.handle.SetSpatialRef(cc.thread, nsr); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// ResamplingAlg is a resampling method
type ResamplingAlg int

const (
	//Nearest resampling
	Nearest ResamplingAlg = iota
	// Bilinear resampling
	Bilinear
	// Cubic resampling
	Cubic
	// CubicSpline resampling
	CubicSpline
	// Lanczos resampling
	Lanczos
	// Average resampling
	Average
	// Gauss resampling
	Gauss
	// Mode resampling
	Mode
	// Max resampling
	Max
	// Min resampling
	Min
	// Median resampling
	Median
	// Sum resampling
	Sum
	// Q1 resampling
	Q1
	// Q3 resampling
	Q3
)

var resamplingNames = [...]string{
	Nearest:     "nearest",
	Bilinear:    "bilinear",
	Cubic:       "cubic",
	CubicSpline: "cubicspline",
	Lanczos:     "lanczos",
	Average:     "average",
	Gauss:       "gauss",
	Mode:        "mode",
	Max:         "max",
	Min:         "min",
	Median:      "median",
	Sum:         "sum",
	Q1:          "q1",
	Q3:          "q3",
}

func (ra ResamplingAlg) String() string {
	if ra < 0 || int(ra) >= len(resamplingNames) {
		panic("unsupported resampling")
	}
	return resamplingNames[ra]
}

// overviewLevels halves the raster size until both dimensions are not larger than minSize
func overviewLevels(sx, sy, minSize int) []int {
	var levels []int
	lvl := 1
	for sx > minSize || sy > minSize {
		lvl *= 2
		levels = append(levels, lvl)
		sx /= 2
		sy /= 2
	}
	return levels
}

// BuildOverviews computes overviews for the dataset.
//
// If neither Levels() or MinSize() is specified, will compute overview
// levels such that the smallest overview is just under the block size.
//
// Not Setting Levels() or MinSize() if the dataset has no raster bands, or
// setting both, will result in an error
func (ds *Dataset) BuildOverviews(opts ...BuildOverviewsOption) error {
	oo := buildOvrOpts{
		resampling: Average,
	}
	for _, opt := range opts {
		opt.setBuildOverviewsOpt(&oo)
	}
	return ds.bridge.call(oo.config, oo.errorHandler, func(cc *callContext) {
		if oo.minSize != 0 && len(oo.levels) > 0 {
			cc.raise("MinSize and Levels cannot be used together")
			return
		}
		levels := oo.levels
		if len(levels) == 0 {
			if ds.handle.RasterCount() == 0 {
				cc.raise("cannot compute overviews on dataset with no raster bands")
				return
			}
			minSize := oo.minSize
			if minSize == 0 {
				bx, by := ds.handle.RasterBand(1).BlockSize()
				minSize = bx
				if by > minSize {
					minSize = by
				}
			}
			levels = overviewLevels(ds.handle.RasterXSize(), ds.handle.RasterYSize(), minSize)
			if len(levels) == 0 {
				return
			}
		}
		sorted := append([]int(nil), levels...)
		sort.Ints(sorted)
		for _, l := range sorted {
			if l < 2 {
				cc.raise(fmt.Sprintf("cannot compute overview of level %d", l))
				return
			}
		}
		if ret := ds.handle.BuildOverviews(cc.thread, oo.resampling.String(), sorted, oo.bands); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// Translate runs the library version of gdal_translate.
// See the gdal_translate doc page to determine the valid flags/opts that can be set in switches.
//
// Example switches :
//
//	[]string{
//	  "-a_nodata", "0",
//	  "-a_srs", "epsg:4326",
//	  "-r", "bilinear",
//	  "-outsize", "50%", "50%",
//	  "-projwin", "-180", "90", "180", "-90"}
//
// Creation options and driver may be set in the switches slice with
//
//	switches:=[]string{"-co","TILED=YES","-of","GTiff"}
//
// NOTE: Some switches are NOT compatible with this binding, as a nullptr is passed to a later call to
// GDALTranslateOptionsNew(switches, nullptr). These switches are "-q", "-stats"
func (ds *Dataset) Translate(dstDS string, switches []string, opts ...DatasetTranslateOption) (*Dataset, error) {
	to := dsTranslateOpts{}
	for _, opt := range opts {
		opt.setDatasetTranslateOpt(&to)
	}
	switches = outputSwitches(switches, to.driver, to.creation)
	var hndl native.Dataset
	err := ds.bridge.call(to.config, to.errorHandler, func(cc *callContext) {
		if hndl = ds.bridge.engine.Translate(cc.thread, dstDS, ds.handle, switches); hndl == nil {
			cc.forceError()
		}
	})
	return ds.bridge.resultDataset(hndl, err)
}

// Warp runs the library version of gdalwarp on ds.
// See Bridge.Warp for the meaning of switches and opts.
func (ds *Dataset) Warp(dstDS string, switches []string, opts ...DatasetWarpOption) (*Dataset, error) {
	return ds.bridge.Warp(dstDS, []*Dataset{ds}, switches, opts...)
}

// Warp runs the library version of gdalwarp with sourceDS as inputs.
// See the gdalwarp doc page to determine the valid flags/opts that can be set in switches.
//
// Creation options and driver may be set in the switches slice with
//
//	switches:=[]string{"-co","TILED=YES","-of","GTiff"}
//
// or through the CreationOption and DriverName options.
func (b *Bridge) Warp(dstDS string, sourceDS []*Dataset, switches []string, opts ...DatasetWarpOption) (*Dataset, error) {
	wo := dsWarpOpts{}
	for _, opt := range opts {
		opt.setDatasetWarpOpt(&wo)
	}
	switches = outputSwitches(switches, wo.driver, wo.creation)
	srcs := make([]native.Dataset, len(sourceDS))
	for i, ds := range sourceDS {
		srcs[i] = ds.handle
	}
	var hndl native.Dataset
	err := b.call(wo.config, wo.errorHandler, func(cc *callContext) {
		if hndl = b.engine.Warp(cc.thread, dstDS, srcs, switches); hndl == nil {
			cc.forceError()
		}
	})
	return b.resultDataset(hndl, err)
}

// resultDataset wraps the dataset created by a call. A dataset created by a call that
// failed (i.e. whose warnings were turned into errors) is closed.
func (b *Bridge) resultDataset(hndl native.Dataset, err error) (*Dataset, error) {
	if err != nil {
		if hndl != nil {
			_ = b.call(nil, nil, func(cc *callContext) { hndl.Close(cc.thread) })
		}
		return nil, err
	}
	return b.newDataset(hndl), nil
}
