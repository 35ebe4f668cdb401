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

	"github.com/airbusgeo/gdalbridge/native"
)

// Driver is an engine format driver
type Driver struct {
	bridge *Bridge
	handle native.Driver
}

// ShortName returns the driver short name.
func (drv Driver) ShortName() string {
	return drv.handle.Name()
}

// VectorDriver returns a Driver by name. It returns false if the named driver does
// not exist or has not been registered
func (b *Bridge) VectorDriver(name DriverName) (Driver, bool) {
	if dn, ok := driverMappings[name]; ok {
		if dn.vectorName == "" {
			return Driver{}, false
		}
		return b.getDriver(dn.vectorName)
	}
	return b.getDriver(string(name))
}

// RasterDriver returns a Driver by name. It returns false if the named driver does
// not exist or has not been registered
func (b *Bridge) RasterDriver(name DriverName) (Driver, bool) {
	if dn, ok := driverMappings[name]; ok {
		if dn.rasterName == "" {
			return Driver{}, false
		}
		return b.getDriver(dn.rasterName)
	}
	return b.getDriver(string(name))
}

func (b *Bridge) getDriver(name string) (Driver, bool) {
	hndl := b.engine.Driver(name)
	if hndl == nil {
		return Driver{}, false
	}
	return Driver{b, hndl}, true
}

// Create uses driver to create a new raster dataset with the given name (usually filename), size, type and bands.
func (b *Bridge) Create(driver DriverName, name string, nBands int, dtype DataType, width, height int, opts ...DatasetCreateOption) (*Dataset, error) {
	drvname := string(driver)
	if drv, ok := driverMappings[driver]; ok {
		if drv.rasterName == "" {
			return nil, fmt.Errorf("%s does not support raster creation", driver)
		}
		drvname = drv.rasterName
	}
	drv, ok := b.getDriver(drvname)
	if !ok {
		return nil, fmt.Errorf("failed to get driver %s", drvname)
	}
	return drv.create(name, width, height, nBands, dtype, opts)
}

// CreateVector uses driver to create a new vector dataset with the given name
// (usually filename) and options
func (b *Bridge) CreateVector(driver DriverName, name string, opts ...DatasetCreateOption) (*Dataset, error) {
	drvname := string(driver)
	if drv, ok := driverMappings[driver]; ok {
		if drv.vectorName == "" {
			return nil, fmt.Errorf("%s does not support vector creation", driver)
		}
		drvname = drv.vectorName
	}
	drv, ok := b.getDriver(drvname)
	if !ok {
		return nil, fmt.Errorf("failed to get driver %s", drvname)
	}
	return drv.create(name, 0, 0, 0, Unknown, opts)
}

func (drv Driver) create(name string, width, height, nBands int, dtype DataType, opts []DatasetCreateOption) (*Dataset, error) {
	gopts := dsCreateOpts{}
	for _, opt := range opts {
		opt.setDatasetCreateOpt(&gopts)
	}
	var hndl native.Dataset
	err := drv.bridge.call(gopts.config, gopts.errorHandler, func(cc *callContext) {
		hndl = drv.handle.Create(cc.thread, name, width, height, nBands, dtype, gopts.creation)
		if hndl == nil {
			cc.forceError()
		}
	})
	if err != nil {
		if hndl != nil {
			_ = drv.bridge.call(nil, nil, func(cc *callContext) { hndl.Close(cc.thread) })
		}
		return nil, err
	}
	return drv.bridge.newDataset(hndl), nil
}
