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
	"math"
	"strings"

	"github.com/airbusgeo/gdalbridge/native"
)

// openInfo is what drivers get to identify and open a file
type openInfo struct {
	name     string
	fs       native.FilesystemHandler
	fh       native.VirtualHandle
	header   []byte
	update   bool
	options  []string
	siblings []string
}

type driver struct {
	engine         *Engine
	name           string
	raster, vector bool
	update         bool

	creationOptions []string
	layerOptions    []string
	openOptions     []string

	create   func(t native.Thread, name string, width, height, nBands int, dtype native.DataType) *memDataset
	identify func(oi *openInfo) bool
	// open takes ownership of oi.fh when it succeeds
	open func(t native.Thread, oi *openInfo) *memDataset
}

var _ native.Driver = (*driver)(nil)

func (d *driver) Name() string {
	return d.name
}

func (d *driver) Create(t native.Thread, name string, width, height, nBands int, dtype native.DataType, options []string) native.Dataset {
	d.engine.count("Create")
	if d.create == nil {
		failf(t, native.NotSupported, "%s driver does not support creation", d.name)
		return nil
	}
	d.validateOptions(t, "creation", d.creationOptions, options)
	ds := d.create(t, name, width, height, nBands, dtype)
	if ds == nil {
		return nil
	}
	return ds
}

// validateOptions warns about every KEY=VALUE whose key is not in valid, unless
// GDAL_VALIDATE_CREATION_OPTIONS is off
func (d *driver) validateOptions(t native.Thread, kind string, valid, options []string) {
	if kind != "open" && !configBool(t, "GDAL_VALIDATE_CREATION_OPTIONS", true) {
		return
	}
	for _, kv := range options {
		k, _, ok := strings.Cut(kv, "=")
		if !ok {
			warnf(t, native.IllegalArg, "%s option '%s' is not formatted with the key=value format", kind, kv)
			continue
		}
		known := false
		for _, v := range valid {
			if strings.EqualFold(k, v) {
				known = true
				break
			}
		}
		if !known {
			warnf(t, native.NotSupported, "driver %s does not support %s option %s", d.name, kind, k)
		}
	}
}

func newMEMDriver(e *Engine) *driver {
	d := &driver{
		engine:          e,
		name:            "MEM",
		raster:          true,
		vector:          true,
		update:          true,
		creationOptions: []string{"INTERLEAVE", "PIXELTYPE"},
	}
	d.create = func(t native.Thread, name string, width, height, nBands int, dtype native.DataType) *memDataset {
		return d.createInMemory(t, name, width, height, nBands, dtype)
	}
	return d
}

func newMemoryDriver(e *Engine) *driver {
	d := &driver{
		engine:       e,
		name:         "Memory",
		vector:       true,
		update:       true,
		layerOptions: []string{"FID", "ADVERTIZE_UTF8"},
	}
	d.create = func(t native.Thread, name string, _, _, _ int, _ native.DataType) *memDataset {
		return d.createInMemory(t, name, 0, 0, 0, native.Unknown)
	}
	return d
}

// maxAlloc bounds the pixel buffer of an in-memory dataset
const maxAlloc = math.MaxInt32

func (d *driver) createInMemory(t native.Thread, name string, width, height, nBands int, dtype native.DataType) *memDataset {
	if width < 0 || height < 0 || nBands < 0 {
		failf(t, native.IllegalArg, "invalid dataset dimensions: %dx%dx%d", width, height, nBands)
		return nil
	}
	if nBands > 0 && dtype.Size() == 0 {
		failf(t, native.IllegalArg, "%s: invalid data type %d", d.name, int(dtype))
		return nil
	}
	if sz := int64(width) * int64(height) * int64(dtype.Size()); nBands > 0 && sz > maxAlloc {
		failf(t, native.OutOfMemory, "%s: cannot allocate %d bytes per band", d.name, sz)
		return nil
	}
	ds := &memDataset{
		engine: d.engine,
		driver: d,
		width:  width,
		height: height,
	}
	ds.desc = name
	for i := 1; i <= nBands; i++ {
		ds.bands = append(ds.bands, newBand(ds, i, dtype, true))
	}
	debugf(t, d.name, "created %dx%dx%d %s dataset", width, height, nBands, dtype)
	return ds
}
