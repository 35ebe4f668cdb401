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
	"errors"
	"strings"
)

// ErrorHandler is a function that can be used to override the default behavior
// of treating all messages with severity >= CE_Warning as errors. When an ErrorHandler
// is passed as an option to a function, all logs/errors emitted by the engine will be passed
// to this function, which can decide wether the parameters correspond to an actual error
// or not.
//
// If the ErrorHandler returns nil, the parent function will not return an error. It is up
// to the ErrorHandler to log the message if needed.
//
// If the ErrorHandler returns an error, that error will be returned to the caller
// of the parent function. When several errors are returned during a single call they
// are combined into one error matching each of them with errors.Is and errors.As.
type ErrorHandler func(ec ErrorCategory, code int, msg string) error

// SkipWarnings is an ErrorHandler that only fails on messages above CE_Warning.
// Warnings and debug messages are discarded.
func SkipWarnings(ec ErrorCategory, code int, msg string) error {
	if ec > CE_Warning {
		return errors.New(msg)
	}
	return nil
}

type errorAndLoggingOpts struct {
	eh     ErrorHandler
	config []string
}

type errorAndLoggingOption interface {
	setErrorAndLoggingOpt(elo *errorAndLoggingOpts)
}

type errorCallback struct {
	fn ErrorHandler
}

// ErrLogger installs fn as the ErrorHandler of the call it is passed to
func ErrLogger(fn ErrorHandler) interface {
	errorAndLoggingOption
	BandCreateMaskOption
	BandIOOption
	BuildOverviewsOption
	CloseOption
	CreateLayerOption
	CreateSpatialRefOption
	DatasetCreateMaskOption
	DatasetCreateOption
	DatasetIOOption
	DatasetTranslateOption
	DatasetWarpOption
	DeleteFeatureOption
	FeatureCountOption
	FillBandOption
	GeometryWKBOption
	GeometryWKTOption
	GetGeoTransformOption
	HistogramOption
	MetadataOption
	NewFeatureOption
	NewGeometryOption
	NextFeatureOption
	OpenOption
	SetColorTableOption
	SetDescriptionOption
	SetGeoTransformOption
	SetGeometryOption
	SetNoDataOption
	SetProjectionOption
	SetScaleOffsetOption
	SetSpatialRefOption
	StatisticsOption
	UpdateFeatureOption
	VSIHandlerOption
	VSIOpenOption
	VSIUnlinkOption
	WKTExportOption
} {
	return errorCallback{fn}
}

func (ec errorCallback) setErrorAndLoggingOpt(elo *errorAndLoggingOpts) {
	elo.eh = ec.fn
}
func (ec errorCallback) setBandCreateMaskOpt(o *bandCreateMaskOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setBandIOOpt(o *bandIOOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setCloseOpt(o *closeOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setCreateLayerOpt(o *createLayerOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setDatasetCreateMaskOpt(o *dsCreateMaskOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setDatasetCreateOpt(o *dsCreateOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setDatasetIOOpt(o *datasetIOOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setDeleteFeatureOpt(o *deleteFeatureOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setFeatureCountOpt(o *featureCountOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setFillBandOpt(o *fillBandOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setGeometryWKBOpt(o *geometryWKBOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setGeometryWKTOpt(o *geometryWKTOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setMetadataOpt(o *metadataOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setNewFeatureOpt(o *newFeatureOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setNewGeometryOpt(o *newGeometryOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setNextFeatureOpt(o *nextFeatureOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setOpenOpt(oo *openOpts) {
	oo.errorHandler = ec.fn
}
func (ec errorCallback) setDescriptionOpt(o *setDescriptionOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setSetGeometryOpt(o *setGeometryOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setSetNoDataOpt(ndo *setNodataOpts) {
	ndo.errorHandler = ec.fn
}
func (ec errorCallback) setSetScaleOffsetOpt(o *setScaleOffsetOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setUpdateFeatureOpt(o *updateFeatureOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setVSIHandlerOpt(o *vsiHandlerOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setVSIOpenOpt(o *vsiOpenOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setVSIUnlinkOpt(o *vsiUnlinkOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setBuildOverviewsOpt(o *buildOvrOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setCreateSpatialRefOpt(o *createSpatialRefOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setDatasetTranslateOpt(o *dsTranslateOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setDatasetWarpOpt(o *dsWarpOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setGetGeoTransformOpt(o *getGeoTransformOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setHistogramOpt(o *histogramOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setSetColorTableOpt(o *setColorTableOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setSetGeoTransformOpt(o *setGeoTransformOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setSetProjectionOpt(o *setProjectionOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setSetSpatialRefOpt(o *setSpatialRefOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setStatisticsOpt(o *statisticsOpts) {
	o.errorHandler = ec.fn
}
func (ec errorCallback) setWKTExportOpt(o *wktExportOpts) {
	o.errorHandler = ec.fn
}

type multiError struct {
	errs []error
}

func (me *multiError) Error() string {
	msgs := make([]string, len(me.errs))
	for i, err := range me.errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

func (me *multiError) Unwrap() []error {
	return me.errs
}

// combine returns an error matching both err1 and err2. Nested combinations are flattened.
func combine(err1, err2 error) error {
	if err1 == nil {
		return err2
	}
	if err2 == nil {
		return err1
	}
	me := &multiError{}
	for _, err := range []error{err1, err2} {
		if m, ok := err.(*multiError); ok {
			me.errs = append(me.errs, m.errs...)
		} else {
			me.errs = append(me.errs, err)
		}
	}
	return me
}
