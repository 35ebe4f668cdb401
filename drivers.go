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
	"sort"
)

// DriverName is an engine driver name
type DriverName string

const (
	//GTiff GeoTIFF
	GTiff DriverName = "GTiff"
	//GeoJSON RFC7946 geojson
	GeoJSON DriverName = "GeoJSON"
	//Memory in memory driver
	Memory DriverName = "Memory"
	//VRT is a VRT
	VRT DriverName = "VRT"
	//Shapefile is an ESRI Shapefile
	Shapefile DriverName = "ESRI Shapefile"
	//GeoPackage is a geo-package
	GeoPackage DriverName = "GPKG"
	//OpenJPEG is an OpenJPEG JPEG2000
	OpenJPEG DriverName = "OpenJPEG"
	//HFA is an erdas img
	HFA DriverName = "HFA"
	//Mitab is a mapinfo mif/tab file
	Mitab DriverName = "Mitab"
	//GOBR is a strip-organized raster container with a CBOR header. It is a test fixture
	//format provided by memengine only: libgdal has no such driver, and registering it
	//on the cgdal engine fails.
	GOBR DriverName = "GOBR"
)

func (dn DriverName) setDatasetTranslateOpt(to *dsTranslateOpts) {
	to.driver = dn
}

func (dn DriverName) setDatasetWarpOpt(to *dsWarpOpts) {
	to.driver = dn
}

// outputSwitches appends the -of and -co arguments selecting the output driver and
// its creation options
func outputSwitches(switches []string, driver DriverName, creation []string) []string {
	ret := append([]string(nil), switches...)
	for _, copt := range creation {
		ret = append(ret, "-co", copt)
	}
	if driver != "" {
		dname := string(driver)
		if dm, ok := driverMappings[driver]; ok && dm.rasterName != "" {
			dname = dm.rasterName
		}
		ret = append(ret, "-of", dname)
	}
	return ret
}

type driverMapping struct {
	rasterName     string
	vectorName     string
	rasterRegister string
	vectorRegister string
}

var driverMappings = map[DriverName]driverMapping{
	GTiff: {
		rasterName:     "GTiff",
		rasterRegister: "GDALRegister_GTiff",
	},
	Memory: {
		rasterName:     "MEM",
		vectorName:     "Memory",
		rasterRegister: "GDALRegister_MEM",
		vectorRegister: "RegisterOGRMEM",
	},
	GeoJSON: {
		vectorName:     "GeoJSON",
		vectorRegister: "RegisterOGRGeoJSON",
	},
	VRT: {
		rasterName:     "VRT",
		vectorName:     "OGR_VRT",
		rasterRegister: "GDALRegister_VRT",
		vectorRegister: "RegisterOGRVRT",
	},
	Shapefile: {
		vectorName:     "ESRI Shapefile",
		vectorRegister: "RegisterOGRShape",
	},
	GeoPackage: {
		rasterName:     "GPKG",
		vectorName:     "GPKG",
		rasterRegister: "RegisterOGRGeoPackage",
		vectorRegister: "RegisterOGRGeoPackage",
	},
	OpenJPEG: {
		rasterName:     "OpenJPEG",
		rasterRegister: "GDALRegister_JP2OpenJPEG",
	},
	HFA: {
		rasterName:     "HFA",
		rasterRegister: "GDALRegister_HFA",
	},
	Mitab: {
		vectorName:     "Mapinfo File",
		vectorRegister: "RegisterOGRTAB",
	},
	GOBR: {
		rasterName:     "GOBR",
		rasterRegister: "GDALRegister_GOBR",
	},
}

// RegisterAll registers every driver known to the engine's initializer table
func (b *Bridge) RegisterAll() {
	inits := b.engine.DriverInitializers()
	names := make([]string, 0, len(inits))
	for name := range inits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		inits[name].Register()
	}
}

// RegisterInternalDrivers is a shorthand for registering "essential" drivers.
//
// It is equivalent to calling RegisterRaster(Memory) and RegisterVector(Memory)
func (b *Bridge) RegisterInternalDrivers() {
	//These are always built in and should never error
	_ = b.RegisterRaster(Memory)
	_ = b.RegisterVector(Memory)
}

// RegisterRaster registers a raster driver by name.
//
// Calling RegisterRaster(DriverName) with one of the predefined DriverNames provided by the library will
// register the corresponding raster driver.
//
// Calling RegisterRaster(DriverName("XXX")) with "XXX" any string will register the driver whose
// initializer is named GDALRegister_XXX in the engine's initializer table. Note that "XXX" must be provided
// exactly (i.e. respecting uppercase/lowercase) the same as the names of the C functions GDALRegister_XXX()
// that can be found in gdal.h
func (b *Bridge) RegisterRaster(drivers ...DriverName) error {
	for _, driver := range drivers {
		fnname := fmt.Sprintf("GDALRegister_%s", driver)
		if drv, ok := driverMappings[driver]; ok {
			if drv.rasterRegister == "" {
				return fmt.Errorf("%s driver does not handle rasters", driver)
			}
			fnname = drv.rasterRegister
		}
		if err := b.RegisterDriver(fnname); err != nil {
			return err
		}
	}
	return nil
}

// RegisterVector registers a vector driver by name.
//
// Calling RegisterVector(DriverName) with one of the predefined DriverNames provided by the library will
// register the corresponding vector driver.
//
// Calling RegisterVector(DriverName("XXX")) with "XXX" any string will register the driver whose
// initializer is named RegisterOGRXXX in the engine's initializer table.
func (b *Bridge) RegisterVector(drivers ...DriverName) error {
	for _, driver := range drivers {
		fnname := fmt.Sprintf("RegisterOGR%s", driver)
		if drv, ok := driverMappings[driver]; ok {
			if drv.vectorRegister == "" {
				return fmt.Errorf("%s driver does not handle vectors", driver)
			}
			fnname = drv.vectorRegister
		}
		if err := b.RegisterDriver(fnname); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDriver calls the driver initializer named fnname (e.g. "GDALRegister_GTiff")
func (b *Bridge) RegisterDriver(fnname string) error {
	di, ok := b.engine.DriverInitializers()[fnname]
	if !ok {
		return fmt.Errorf("failed to register driver %s", fnname)
	}
	di.Register()
	return nil
}
