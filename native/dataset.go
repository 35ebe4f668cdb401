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

package native

// DataType is a pixel data type. Values match the engine's GDT_* enumeration.
type DataType int

// Data types
const (
	Unknown  DataType = 0
	Byte     DataType = 1
	UInt16   DataType = 2
	Int16    DataType = 3
	UInt32   DataType = 4
	Int32    DataType = 5
	Float32  DataType = 6
	Float64  DataType = 7
	CInt16   DataType = 8
	CInt32   DataType = 9
	CFloat32 DataType = 10
	CFloat64 DataType = 11
	Int8     DataType = 14
)

// Size returns the number of bytes of one pixel, 0 for Unknown
func (dt DataType) Size() int {
	switch dt {
	case Byte, Int8:
		return 1
	case Int16, UInt16:
		return 2
	case Int32, UInt32, Float32, CInt16:
		return 4
	case CInt32, Float64, CFloat32:
		return 8
	case CFloat64:
		return 16
	default:
		return 0
	}
}

// OpenFlags are passed to Engine.Open. Values match the engine's GDAL_OF_* flags.
type OpenFlags uint

// Open flags
const (
	OfReadOnly     OpenFlags = 0x00
	OfUpdate       OpenFlags = 0x01
	OfRaster       OpenFlags = 0x02
	OfVector       OpenFlags = 0x04
	OfShared       OpenFlags = 0x20
	OfVerboseError OpenFlags = 0x40
)

// RWFlag selects the direction of a RasterIO call
type RWFlag int

// IO directions
const (
	Read  RWFlag = 0
	Write RWFlag = 1
)

// GeometryType is a vector geometry type (wkbXXX values)
type GeometryType int

// Geometry types
const (
	GTUnknown            GeometryType = 0
	GTPoint              GeometryType = 1
	GTLineString         GeometryType = 2
	GTPolygon            GeometryType = 3
	GTMultiPoint         GeometryType = 4
	GTMultiLineString    GeometryType = 5
	GTMultiPolygon       GeometryType = 6
	GTGeometryCollection GeometryType = 7
	GTNone               GeometryType = 100
)

// PaletteInterp is the color space of a color table's entries
type PaletteInterp int

// Palette interpretations, matching GPI_*
const (
	PaletteGray PaletteInterp = 0
	PaletteRGB  PaletteInterp = 1
	PaletteCMYK PaletteInterp = 2
	PaletteHLS  PaletteInterp = 3
)

// Statistics summarize the valid pixels of a band
type Statistics struct {
	Min, Max, Mean, Std float64
}

// NullFID is the identifier of a feature that has not been assigned one
const NullFID int64 = -1

// MajorObject carries a description and metadata domains
type MajorObject interface {
	Description() string
	SetDescription(t Thread, desc string)
	MetadataItem(key, domain string) string
	// Metadata returns "KEY=VALUE" entries
	Metadata(domain string) []string
	MetadataDomains() []string
	SetMetadataItem(t Thread, key, value, domain string) CPLErr
	// SetMetadata replaces the whole domain, nil clears it
	SetMetadata(t Thread, md []string, domain string) CPLErr
}

// Dataset is an open raster and/or vector dataset
type Dataset interface {
	MajorObject
	RasterXSize() int
	RasterYSize() int
	RasterCount() int
	// RasterBand is 1-based
	RasterBand(i int) Band
	CreateMaskBand(t Thread, flags int) CPLErr
	RasterIO(t Thread, rw RWFlag, x, y, w, h int, buf []byte, bufW, bufH int, dtype DataType,
		bands []int, pixelSpace, lineSpace, bandSpace int) CPLErr
	LayerCount() int
	// Layer is 0-based
	Layer(i int) Layer
	LayerByName(name string) Layer
	CreateLayer(t Thread, name string, gtype GeometryType, options []string) Layer
	// GeoTransform returns Failure without emitting anything when the dataset
	// is not georeferenced
	GeoTransform(t Thread) ([6]float64, CPLErr)
	SetGeoTransform(t Thread, gt [6]float64) CPLErr
	// Projection is the WKT of the dataset's spatial reference, empty if it has none
	Projection() string
	// SetProjection accepts any user input the engine understands. "" clears it.
	SetProjection(t Thread, srs string) CPLErr
	// SetSpatialRef with a nil sr clears the projection
	SetSpatialRef(t Thread, sr SpatialRef) CPLErr
	// BuildOverviews builds the given decimation levels of the 1-based bands. A nil
	// bands list means every band.
	BuildOverviews(t Thread, resampling string, levels, bands []int) CPLErr
	Close(t Thread) CPLErr
}

// Band is a raster band. Bands are owned by their dataset.
type Band interface {
	MajorObject
	XSize() int
	YSize() int
	BlockSize() (int, int)
	DataType() DataType
	NoDataValue() (float64, bool)
	SetNoDataValue(t Thread, nd float64) CPLErr
	DeleteNoDataValue(t Thread) CPLErr
	Scale() float64
	Offset() float64
	SetScale(t Thread, scale float64) CPLErr
	SetOffset(t Thread, offset float64) CPLErr
	MaskFlags() int
	MaskBand() Band
	CreateMaskBand(t Thread, flags int) CPLErr
	RasterIO(t Thread, rw RWFlag, x, y, w, h int, buf []byte, bufW, bufH int, dtype DataType,
		pixelSpace, lineSpace int) CPLErr
	Fill(t Thread, real, imag float64) CPLErr
	// ColorTable returns no entries when the band has no color table
	ColorTable() (PaletteInterp, [][4]int16)
	// SetColorTable with no entries removes the color table
	SetColorTable(t Thread, interp PaletteInterp, entries [][4]int16) CPLErr
	// Histogram counts pixels in equal intervals of [min,max]. With buckets == 0
	// the default histogram is computed and its bounds returned.
	Histogram(t Thread, min, max float64, buckets int, includeOutOfRange, approxOK bool) (float64, float64, []uint64, CPLErr)
	ComputeStatistics(t Thread, approxOK bool) (Statistics, CPLErr)
	// GetStatistics reports false when statistics are not available without a scan
	GetStatistics(t Thread, approxOK bool) (Statistics, bool, CPLErr)
	OverviewCount() int
	// Overview is 0-based
	Overview(i int) Band
}

// Layer is a vector layer. Layers are owned by their dataset.
type Layer interface {
	Name() string
	GeomType() GeometryType
	FeatureCount(t Thread, force bool) int64
	ResetReading()
	// NextFeature returns nil when the layer is exhausted. The returned feature is
	// owned by the caller.
	NextFeature(t Thread) Feature
	// NewFeature returns an empty caller-owned feature with a NullFID
	NewFeature() Feature
	CreateFeature(t Thread, f Feature) OGRErr
	SetFeature(t Thread, f Feature) OGRErr
	DeleteFeature(t Thread, fid int64) OGRErr
}

// SpatialRef is a spatial reference system. It is owned by the caller.
type SpatialRef interface {
	WKT(t Thread) (string, OGRErr)
	// AuthorityName and AuthorityCode return "" when unknown. target is a WKT node
	// name, "" for the root.
	AuthorityName(target string) string
	AuthorityCode(target string) string
	Geographic() bool
	IsSame(other SpatialRef) bool
	Destroy()
}

// Feature is a vector feature
type Feature interface {
	FID() int64
	SetFID(fid int64) OGRErr
	// Geometry returns nil if the feature has no geometry. The geometry is owned by the feature.
	Geometry() Geometry
	// SetGeometry copies g into the feature, nil clears it
	SetGeometry(t Thread, g Geometry) OGRErr
	Destroy()
}

// Geometry is a vector geometry
type Geometry interface {
	Type() GeometryType
	WKT(t Thread) (string, OGRErr)
	WKB(t Thread) ([]byte, OGRErr)
	Destroy()
}

var dataTypeNames = map[DataType]string{
	Unknown:  "Unknown",
	Byte:     "Byte",
	UInt16:   "UInt16",
	Int16:    "Int16",
	UInt32:   "UInt32",
	Int32:    "Int32",
	Float32:  "Float32",
	Float64:  "Float64",
	CInt16:   "CInt16",
	CInt32:   "CInt32",
	CFloat32: "CFloat32",
	CFloat64: "CFloat64",
	Int8:     "Int8",
}

// String returns the engine's name for the data type
func (dt DataType) String() string {
	if n, ok := dataTypeNames[dt]; ok {
		return n
	}
	return "Unknown"
}
