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
	"sort"

	"github.com/airbusgeo/gdalbridge/native"
)

type bandCreateMaskOpts struct {
	config       []string
	errorHandler ErrorHandler
}

// BandCreateMaskOption is an option that can be passed to Band.CreateMask()
//
// Available BandCreateMaskOptions are:
//
// • ConfigOption
//
// • ErrLogger
type BandCreateMaskOption interface {
	setBandCreateMaskOpt(bcm *bandCreateMaskOpts)
}

type bandIOOpts struct {
	config                    []string
	dsWidth, dsHeight         int
	pixelSpacing, lineSpacing int
	errorHandler              ErrorHandler
}

// BandIOOption is an option to modify the default behavior of band.IO
//
// Available BandIOOptions are:
//
// • Window
//
// • ConfigOption
//
// • PixelSpacing
//
// • LineSpacing
//
// • ErrLogger
type BandIOOption interface {
	setBandIOOpt(bo *bandIOOpts)
}

type dsCreateMaskOpts struct {
	config       []string
	errorHandler ErrorHandler
}

// DatasetCreateMaskOption is an option that can be passed to Dataset.CreateMaskBand()
//
// Available DatasetCreateMaskOptions are:
//
// • ConfigOption
//
// • ErrLogger
type DatasetCreateMaskOption interface {
	setDatasetCreateMaskOpt(dcm *dsCreateMaskOpts)
}

type datasetIOOpts struct {
	config                                 []string
	bands                                  []int
	dsWidth, dsHeight                      int
	bandInterleave                         bool
	bandSpacing, pixelSpacing, lineSpacing int
	errorHandler                           ErrorHandler
}

// DatasetIOOption is an option to modify the default behavior of dataset.IO
//
// Available DatasetIOOptions are:
//
// • Window
//
// • ConfigOption
//
// • Bands
//
// • BandInterleaved
//
// • PixelSpacing
//
// • LineSpacing
//
// • BandSpacing
//
// • ErrLogger
type DatasetIOOption interface {
	setDatasetIOOpt(ro *datasetIOOpts)
}

type dsCreateOpts struct {
	config       []string
	creation     []string
	errorHandler ErrorHandler
}

// DatasetCreateOption is an option that can be passed to Create()
//
// Available DatasetCreateOptions are:
//
// • CreationOption
//
// • ConfigOption
//
// • ErrLogger
type DatasetCreateOption interface {
	setDatasetCreateOpt(dc *dsCreateOpts)
}

type setProjectionOpts struct {
	errorHandler ErrorHandler
}

// SetProjectionOption is an option that can be passed to Dataset.SetProjection
//
// Available SetProjectionOptions are:
//
// • ErrLogger
type SetProjectionOption interface {
	setSetProjectionOpt(o *setProjectionOpts)
}

type setSpatialRefOpts struct {
	errorHandler ErrorHandler
}

// SetSpatialRefOption is an option that can be passed to Dataset.SetSpatialRef
//
// Available SetSpatialRefOptions are:
//
// • ErrLogger
type SetSpatialRefOption interface {
	setSetSpatialRefOpt(o *setSpatialRefOpts)
}

type getGeoTransformOpts struct {
	errorHandler ErrorHandler
}

// GetGeoTransformOption is an option that can be passed to Dataset.GeoTransform
//
// Available GetGeoTransformOptions are:
//
// • ErrLogger
type GetGeoTransformOption interface {
	setGetGeoTransformOpt(o *getGeoTransformOpts)
}

type setGeoTransformOpts struct {
	errorHandler ErrorHandler
}

// SetGeoTransformOption is an option that can be passed to Dataset.SetGeoTransform
//
// Available SetGeoTransformOptions are:
//
// • ErrLogger
type SetGeoTransformOption interface {
	setSetGeoTransformOpt(o *setGeoTransformOpts)
}

type setColorTableOpts struct {
	errorHandler ErrorHandler
}

// SetColorTableOption is an option that can be passed to Band.SetColorTable
//
// Available SetColorTableOptions are:
//
// • ErrLogger
type SetColorTableOption interface {
	setSetColorTableOpt(o *setColorTableOpts)
}

type histogramOpts struct {
	approx         bool
	includeOutside bool
	min, max       float64
	buckets        int
	errorHandler   ErrorHandler
}

// HistogramOption is an option that can be passed to Band.Histogram()
//
// Available HistogramOptions are:
//
// • Approximate() to allow the engine to compute the histogram on an overview or
// a subsample of the pixels
//
// • Intervals(count int, min, max float64) to specify the number of buckets and their
// bounds
//
// • IncludeOutOfRange() to count the pixels outside of [min,max] in the first and last buckets
//
// • ErrLogger
type HistogramOption interface {
	setHistogramOpt(ho *histogramOpts)
}

type statisticsOpts struct {
	approx       bool
	errorHandler ErrorHandler
}

// StatisticsOption is an option that can be passed to Band.ComputeStatistics and
// Band.GetStatistics
//
// Available StatisticsOptions are:
//
// • Approximate
//
// • ErrLogger
type StatisticsOption interface {
	setStatisticsOpt(so *statisticsOpts)
}

type buildOvrOpts struct {
	config       []string
	minSize      int
	resampling   ResamplingAlg
	bands        []int
	levels       []int
	errorHandler ErrorHandler
}

// BuildOverviewsOption is an option to specify how overview building should behave.
//
// Available BuildOverviewsOptions are:
//
// • ConfigOption
//
// • Resampling
//
// • Levels
//
// • MinSize
//
// • Bands
//
// • ErrLogger
type BuildOverviewsOption interface {
	setBuildOverviewsOpt(bo *buildOvrOpts)
}

type dsTranslateOpts struct {
	config       []string
	creation     []string
	driver       DriverName
	errorHandler ErrorHandler
}

// DatasetTranslateOption is an option that can be passed to Dataset.Translate()
//
// Available DatasetTranslateOptions are:
//
// • ConfigOption
//
// • CreationOption
//
// • DriverName
//
// • ErrLogger
type DatasetTranslateOption interface {
	setDatasetTranslateOpt(dto *dsTranslateOpts)
}

type dsWarpOpts struct {
	config       []string
	creation     []string
	driver       DriverName
	errorHandler ErrorHandler
}

// DatasetWarpOption is an option that can be passed to Dataset.Warp()
//
// Available DatasetWarpOptions are:
//
// • ConfigOption
//
// • CreationOption
//
// • DriverName
//
// • ErrLogger
type DatasetWarpOption interface {
	setDatasetWarpOpt(dwo *dsWarpOpts)
}

type createSpatialRefOpts struct {
	errorHandler ErrorHandler
}

// CreateSpatialRefOption is an option that can be passed when creating a new spatial
// reference object
//
// Available CreateSpatialRefOptions are:
//
// • ErrLogger
type CreateSpatialRefOption interface {
	setCreateSpatialRefOpt(so *createSpatialRefOpts)
}

type wktExportOpts struct {
	errorHandler ErrorHandler
}

// WKTExportOption is an option that can be passed to SpatialRef.WKT()
//
// Available WKTExportOptions are:
//
// • ErrLogger
type WKTExportOption interface {
	setWKTExportOpt(sro *wktExportOpts)
}

type openOpts struct {
	flags        native.OpenFlags
	drivers      []string //list of drivers that can be tried to open the given name
	options      []string //driver specific open options
	siblingFiles []string //list of sidecar files
	config       []string
	errorHandler ErrorHandler
}

// OpenOption is an option passed to Open()
//
// Available OpenOptions are:
//
// • Drivers
//
// • SiblingFiles
//
// • Shared
//
// • ConfigOption
//
// • Update
//
// • DriverOpenOption
//
// • RasterOnly
//
// • VectorOnly
//
// • ErrLogger
type OpenOption interface {
	setOpenOpt(oo *openOpts)
}

type closeOpts struct {
	errorHandler ErrorHandler
}

// CloseOption is an option passed to Dataset.Close()
//
// Available CloseOptions are:
//
// • ErrLogger
type CloseOption interface {
	setCloseOpt(o *closeOpts)
}

type setNodataOpts struct {
	errorHandler ErrorHandler
}

// SetNoDataOption is an option passed to SetNoData() and ClearNoData()
//
// Available SetNoDataOptions are:
//
// • ErrLogger
type SetNoDataOption interface {
	setSetNoDataOpt(ndo *setNodataOpts)
}

type setScaleOffsetOpts struct {
	errorHandler ErrorHandler
}

// SetScaleOffsetOption is an option passed to SetScaleOffset() and ClearScaleOffset()
//
// Available SetScaleOffsetOptions are:
//
// • ErrLogger
type SetScaleOffsetOption interface {
	setSetScaleOffsetOpt(o *setScaleOffsetOpts)
}

type fillBandOpts struct {
	errorHandler ErrorHandler
}

// FillBandOption is an option passed to Band.Fill()
//
// Available FillBandOptions are:
//
// • ErrLogger
type FillBandOption interface {
	setFillBandOpt(o *fillBandOpts)
}

type metadataOpts struct {
	domain       string
	errorHandler ErrorHandler
}

// MetadataOption is an option that can be passed to metadata related calls
//
// Available MetadataOptions are:
//
// • Domain
//
// • ErrLogger
type MetadataOption interface {
	setMetadataOpt(mo *metadataOpts)
}

type setDescriptionOpts struct {
	errorHandler ErrorHandler
}

// SetDescriptionOption is an option passed to SetDescription()
//
// Available SetDescriptionOptions are:
//
// • ErrLogger
type SetDescriptionOption interface {
	setDescriptionOpt(o *setDescriptionOpts)
}

type createLayerOpts struct {
	creation     []string
	errorHandler ErrorHandler
}

// CreateLayerOption is an option passed to Dataset.CreateLayer()
//
// Available CreateLayerOptions are:
//
// • CreationOption
//
// • ErrLogger
type CreateLayerOption interface {
	setCreateLayerOpt(o *createLayerOpts)
}

type featureCountOpts struct {
	errorHandler ErrorHandler
}

// FeatureCountOption is an option passed to Layer.FeatureCount()
//
// Available FeatureCountOptions are:
//
// • ErrLogger
type FeatureCountOption interface {
	setFeatureCountOpt(o *featureCountOpts)
}

type nextFeatureOpts struct {
	errorHandler ErrorHandler
}

// NextFeatureOption is an option passed to Layer.NextFeature()
//
// Available NextFeatureOptions are:
//
// • ErrLogger
type NextFeatureOption interface {
	setNextFeatureOpt(o *nextFeatureOpts)
}

type newFeatureOpts struct {
	errorHandler ErrorHandler
}

// NewFeatureOption is an option passed to Layer.NewFeature()
//
// Available NewFeatureOptions are:
//
// • ErrLogger
type NewFeatureOption interface {
	setNewFeatureOpt(o *newFeatureOpts)
}

type updateFeatureOpts struct {
	errorHandler ErrorHandler
}

// UpdateFeatureOption is an option passed to Layer.UpdateFeature()
//
// Available UpdateFeatureOptions are:
//
// • ErrLogger
type UpdateFeatureOption interface {
	setUpdateFeatureOpt(o *updateFeatureOpts)
}

type deleteFeatureOpts struct {
	errorHandler ErrorHandler
}

// DeleteFeatureOption is an option passed to Layer.DeleteFeature()
//
// Available DeleteFeatureOptions are:
//
// • ErrLogger
type DeleteFeatureOption interface {
	setDeleteFeatureOpt(o *deleteFeatureOpts)
}

type setGeometryOpts struct {
	errorHandler ErrorHandler
}

// SetGeometryOption is an option passed to Feature.SetGeometry()
//
// Available SetGeometryOptions are:
//
// • ErrLogger
type SetGeometryOption interface {
	setSetGeometryOpt(o *setGeometryOpts)
}

type newGeometryOpts struct {
	errorHandler ErrorHandler
}

// NewGeometryOption is an option passed to NewGeometryFromWKT() and NewGeometryFromWKB()
//
// Available NewGeometryOptions are:
//
// • ErrLogger
type NewGeometryOption interface {
	setNewGeometryOpt(o *newGeometryOpts)
}

type geometryWKTOpts struct {
	errorHandler ErrorHandler
}

// GeometryWKTOption is an option passed to Geometry.WKT()
//
// Available GeometryWKTOptions are:
//
// • ErrLogger
type GeometryWKTOption interface {
	setGeometryWKTOpt(o *geometryWKTOpts)
}

type geometryWKBOpts struct {
	errorHandler ErrorHandler
}

// GeometryWKBOption is an option passed to Geometry.WKB()
//
// Available GeometryWKBOptions are:
//
// • ErrLogger
type GeometryWKBOption interface {
	setGeometryWKBOpt(o *geometryWKBOpts)
}

type vsiOpenOpts struct {
	errorHandler ErrorHandler
}

// VSIOpenOption is an option passed to VSIOpen()
//
// Available VSIOpenOptions are:
//
// • ErrLogger
type VSIOpenOption interface {
	setVSIOpenOpt(o *vsiOpenOpts)
}

type vsiUnlinkOpts struct {
	errorHandler ErrorHandler
}

// VSIUnlinkOption is an option passed to VSIUnlink()
//
// Available VSIUnlinkOptions are:
//
// • ErrLogger
type VSIUnlinkOption interface {
	setVSIUnlinkOpt(o *vsiUnlinkOpts)
}

type siblingFilesOpt struct {
	files []string
}

// SiblingFiles specifies the list of files that may be opened alongside the prinicpal dataset name.
//
// files must not contain a directory component (i.e. are expected to be in the same directory as
// the main dataset)
//
// SiblingFiles may be used in 3 different manners:
//
// • By default, i.e. by not using the option, the bridge considers that there are no sibling files
// at all and prevents any scanning or probing of specific sibling files by passing a list of
// sibling files to the engine containing only the main file
//
// • By passing a list of files, only those files will be looked up
//
// • By passing SiblingFiles() (i.e. with an empty list of files), the engine's default behavior of
// reading the directory content and/or probing for well-known sidecar filenames will be used.
func SiblingFiles(files ...string) interface {
	OpenOption
} {
	return siblingFilesOpt{files}
}

func (sf siblingFilesOpt) setOpenOpt(oo *openOpts) {
	if len(sf.files) > 0 {
		oo.siblingFiles = append(oo.siblingFiles, sf.files...)
	} else {
		oo.siblingFiles = nil
	}
}

type driversOpt struct {
	drivers []string
}

// Drivers specifies the list of drivers that are allowed to try opening the dataset
func Drivers(drivers ...string) interface {
	OpenOption
} {
	return driversOpt{drivers}
}

func (do driversOpt) setOpenOpt(oo *openOpts) {
	oo.drivers = append(oo.drivers, do.drivers...)
}

type driverOpenOption struct {
	oo []string
}

// DriverOpenOption adds a list of Open Options (-oo switch) to the open command. Each keyval must
// be provided in a "KEY=value" format
func DriverOpenOption(keyval ...string) interface {
	OpenOption
} {
	return driverOpenOption{keyval}
}

func (doo driverOpenOption) setOpenOpt(oo *openOpts) {
	oo.options = append(oo.options, doo.oo...)
}

type openUpdateOpt struct{}

// Update is an OpenOption that instructs the engine to open the dataset for writing/updating
func Update() interface {
	OpenOption
} {
	return openUpdateOpt{}
}

func (openUpdateOpt) setOpenOpt(oo *openOpts) {
	oo.flags |= native.OfUpdate
}

type openSharedOpt struct{}

// Shared opens the dataset with OF_OPEN_SHARED
func Shared() interface {
	OpenOption
} {
	return openSharedOpt{}
}

func (openSharedOpt) setOpenOpt(oo *openOpts) {
	oo.flags |= native.OfShared
}

type vectorOnlyOpt struct{}

// VectorOnly limits drivers to vector ones (incompatible with RasterOnly() )
func VectorOnly() interface {
	OpenOption
} {
	return vectorOnlyOpt{}
}

func (vectorOnlyOpt) setOpenOpt(oo *openOpts) {
	oo.flags |= native.OfVector
}

type rasterOnlyOpt struct{}

// RasterOnly limits drivers to raster ones (incompatible with VectorOnly() )
func RasterOnly() interface {
	OpenOption
} {
	return rasterOnlyOpt{}
}

func (rasterOnlyOpt) setOpenOpt(oo *openOpts) {
	oo.flags |= native.OfRaster
}

// Domain specifies the metadata domain to use
func Domain(mdDomain string) interface {
	MetadataOption
} {
	return domainOpt{mdDomain}
}

type domainOpt struct {
	domain string
}

func (do domainOpt) setMetadataOpt(mo *metadataOpts) {
	mo.domain = do.domain
}

type bandOpt struct {
	bnds []int
}

// Bands specifies which dataset bands should be read/written. By default all dataset bands
// are read/written.
//
// Note: bnds is 0-indexed so as to be consistent with Dataset.Bands(), whereas in the engine's
// terminology bands are 1-indexed. i.e. for a 3 band dataset you should pass Bands(0,1,2) and not Bands(1,2,3).
func Bands(bnds ...int) interface {
	DatasetIOOption
	BuildOverviewsOption
} {
	ib := make([]int, len(bnds))
	for i := range bnds {
		ib[i] = bnds[i] + 1
	}
	return bandOpt{ib}
}

func (bo bandOpt) setDatasetIOOpt(ro *datasetIOOpts) {
	ro.bands = bo.bnds
}
func (bo bandOpt) setBuildOverviewsOpt(ovr *buildOvrOpts) {
	ovr.bands = bo.bnds
}

type bandSpacingOpt struct {
	sp int
}
type pixelSpacingOpt struct {
	sp int
}
type lineSpacingOpt struct {
	sp int
}

func (so bandSpacingOpt) setDatasetIOOpt(ro *datasetIOOpts) {
	ro.bandSpacing = so.sp
}
func (so pixelSpacingOpt) setDatasetIOOpt(ro *datasetIOOpts) {
	ro.pixelSpacing = so.sp
}
func (so lineSpacingOpt) setDatasetIOOpt(ro *datasetIOOpts) {
	ro.lineSpacing = so.sp
}
func (so lineSpacingOpt) setBandIOOpt(bo *bandIOOpts) {
	bo.lineSpacing = so.sp
}
func (so pixelSpacingOpt) setBandIOOpt(bo *bandIOOpts) {
	bo.pixelSpacing = so.sp
}

// BandSpacing sets the number of bytes from one pixel to the next band of the same pixel. If not
// provided, it will be calculated from the pixel type
func BandSpacing(stride int) interface {
	DatasetIOOption
} {
	return bandSpacingOpt{stride}
}

// PixelSpacing sets the number of bytes from one pixel to the next pixel in the same row. If not
// provided, it will be calculated from the number of bands and pixel type
func PixelSpacing(stride int) interface {
	DatasetIOOption
	BandIOOption
} {
	return pixelSpacingOpt{stride}
}

// LineSpacing sets the number of bytes from one pixel to the pixel of the same band one row below. If not
// provided, it will be calculated from the number of bands, pixel type and image width
func LineSpacing(stride int) interface {
	DatasetIOOption
	BandIOOption
} {
	return lineSpacingOpt{stride}
}

type windowOpt struct {
	sx, sy int
}

// Window specifies the size of the dataset window to read/write. By default use the
// size of the input/output buffer (i.e. no resampling)
func Window(sx, sy int) interface {
	DatasetIOOption
	BandIOOption
} {
	return windowOpt{sx, sy}
}

func (wo windowOpt) setDatasetIOOpt(ro *datasetIOOpts) {
	ro.dsWidth = wo.sx
	ro.dsHeight = wo.sy
}
func (wo windowOpt) setBandIOOpt(ro *bandIOOpts) {
	ro.dsWidth = wo.sx
	ro.dsHeight = wo.sy
}

type bandInterleaveOp struct{}

// BandInterleaved makes Read return a band interleaved buffer instead of a pixel interleaved one.
//
// For example, pixels of a three band RGB image will be returned in order
// r1r2r3...rn, g1g2g3...gn, b1b2b3...bn instead of the default
// r1g1b1, r2g2b2, r3g3b3, ... rnbngn
//
// BandInterleaved should not be used in conjunction with BandSpacing, LineSpacing, or PixelSpacing
func BandInterleaved() interface {
	DatasetIOOption
} {
	return bandInterleaveOp{}
}

func (bio bandInterleaveOp) setDatasetIOOpt(ro *datasetIOOpts) {
	ro.bandInterleave = true
}

type creationOpts struct {
	creation []string
}

// CreationOption are options to pass to a driver when creating a dataset or a layer, to be
// passed in the form KEY=VALUE
func CreationOption(opts ...string) interface {
	DatasetCreateOption
	CreateLayerOption
	DatasetTranslateOption
	DatasetWarpOption
} {
	return creationOpts{opts}
}

func (co creationOpts) setDatasetCreateOpt(dc *dsCreateOpts) {
	dc.creation = append(dc.creation, co.creation...)
}
func (co creationOpts) setCreateLayerOpt(o *createLayerOpts) {
	o.creation = append(o.creation, co.creation...)
}
func (co creationOpts) setDatasetTranslateOpt(dto *dsTranslateOpts) {
	dto.creation = append(dto.creation, co.creation...)
}
func (co creationOpts) setDatasetWarpOpt(dwo *dsWarpOpts) {
	dwo.creation = append(dwo.creation, co.creation...)
}

type configOpts struct {
	config []string
}

// ConfigOption sets a configuration option for an engine call, in the form KEY=VALUE.
// The option is only visible to the calling thread, and only for the duration of the call.
// Entries without a "=" are ignored.
//
// Notable options are CPL_DEBUG=ON
func ConfigOption(cfgs ...string) interface {
	DatasetCreateOption
	DatasetCreateMaskOption
	BandCreateMaskOption
	OpenOption
	DatasetIOOption
	BandIOOption
	BuildOverviewsOption
	DatasetTranslateOption
	DatasetWarpOption
	errorAndLoggingOption
} {
	return configOpts{cfgs}
}

func (co configOpts) setDatasetCreateOpt(dc *dsCreateOpts) {
	dc.config = append(dc.config, co.config...)
}
func (co configOpts) setDatasetCreateMaskOpt(dcm *dsCreateMaskOpts) {
	dcm.config = append(dcm.config, co.config...)
}
func (co configOpts) setBandCreateMaskOpt(bcm *bandCreateMaskOpts) {
	bcm.config = append(bcm.config, co.config...)
}
func (co configOpts) setOpenOpt(oo *openOpts) {
	oo.config = append(oo.config, co.config...)
}
func (co configOpts) setDatasetIOOpt(oo *datasetIOOpts) {
	oo.config = append(oo.config, co.config...)
}
func (co configOpts) setBandIOOpt(oo *bandIOOpts) {
	oo.config = append(oo.config, co.config...)
}
func (co configOpts) setBuildOverviewsOpt(bo *buildOvrOpts) {
	bo.config = append(bo.config, co.config...)
}
func (co configOpts) setDatasetTranslateOpt(dto *dsTranslateOpts) {
	dto.config = append(dto.config, co.config...)
}
func (co configOpts) setDatasetWarpOpt(dwo *dsWarpOpts) {
	dwo.config = append(dwo.config, co.config...)
}
func (co configOpts) setErrorAndLoggingOpt(elo *errorAndLoggingOpts) {
	elo.config = append(elo.config, co.config...)
}

type minSizeOpt struct {
	minSize int
}

// MinSize makes BuildOverviews automatically compute the overview levels
// until the smallest overview size is less than s.
//
// Should not be used together with Levels()
func MinSize(s int) interface {
	BuildOverviewsOption
} {
	return minSizeOpt{s}
}

func (mo minSizeOpt) setBuildOverviewsOpt(bo *buildOvrOpts) {
	bo.minSize = mo.minSize
}

type resamplingOpt struct {
	m ResamplingAlg
}

// Resampling defines the resampling algorithm to use when building overviews.
// Defaults to Average.
func Resampling(alg ResamplingAlg) interface {
	BuildOverviewsOption
} {
	return resamplingOpt{alg}
}

func (ro resamplingOpt) setBuildOverviewsOpt(bo *buildOvrOpts) {
	bo.resampling = ro.m
}

type levelsOpt struct {
	lvl []int
}

// Levels sets the overview levels to compute. Levels are sorted before use.
//
// Should not be used together with MinSize()
func Levels(levels ...int) interface {
	BuildOverviewsOption
} {
	slevels := append([]int(nil), levels...)
	sort.Ints(slevels)
	return levelsOpt{slevels}
}

func (lo levelsOpt) setBuildOverviewsOpt(bo *buildOvrOpts) {
	bo.levels = lo.lvl
}

type approximateOkOption struct{}

// Approximate allows the engine to compute histograms and statistics on an overview or a
// subset of the pixels
func Approximate() interface {
	HistogramOption
	StatisticsOption
} {
	return approximateOkOption{}
}

func (approximateOkOption) setHistogramOpt(ho *histogramOpts) {
	ho.approx = true
}
func (approximateOkOption) setStatisticsOpt(so *statisticsOpts) {
	so.approx = true
}

type includeOutsideOption struct{}

// IncludeOutOfRange counts the pixels lower than min in the first bucket and those
// greater than max in the last one
func IncludeOutOfRange() interface {
	HistogramOption
} {
	return includeOutsideOption{}
}

func (includeOutsideOption) setHistogramOpt(ho *histogramOpts) {
	ho.includeOutside = true
}

type intervalsOption struct {
	min, max float64
	buckets  int
}

// Intervals computes a histogram of count buckets spanning [min,max]. Without it
// the engine's default histogram is returned.
func Intervals(count int, min, max float64) interface {
	HistogramOption
} {
	return intervalsOption{min: min, max: max, buckets: count}
}

func (io intervalsOption) setHistogramOpt(ho *histogramOpts) {
	ho.min = io.min
	ho.max = io.max
	ho.buckets = io.buckets
}
