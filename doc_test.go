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

package gdalbridge_test

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"syscall"

	"github.com/airbusgeo/gdalbridge"
	"github.com/airbusgeo/gdalbridge/memengine"
)

func ExampleBand_IO() {
	b := gdalbridge.New(memengine.New())
	b.RegisterAll()

	//create a 200x200 one band image
	ds, _ := b.Create(gdalbridge.Memory, "", 1, gdalbridge.Byte, 200, 200)

	//fill the band with random data
	buf := make([]byte, 200*200)
	for i := range buf {
		buf[i] = byte(rand.Intn(255))
	}
	bands := ds.Bands()

	//write the random data to the first band
	_ = bands[0].Write(0, 0, buf, 200, 200)

	//add a mask band to the dataset.
	maskBnd, _ := ds.CreateMaskBand(0x02)

	//we now want to populate the mask data. we will do this block by block to optimize data access
	structure := bands[0].Structure()

	//allocate a memory buffer that is big enough to contain a whole block
	blockBuf := make([]byte, structure.BlockSizeX*structure.BlockSizeY)

	//iterate over all blocks
	for block, ok := structure.FirstBlock(), true; ok; block, ok = block.Next() {
		//read the (previously created random data) into our memory buffer
		_ = bands[0].Read(block.X0, block.Y0, blockBuf, block.W, block.H)

		//populate the mask band, by setting to nodata if the pixel value is under 100
		for pix := 0; pix < block.W*block.H; pix++ {
			if blockBuf[pix] < 100 {
				blockBuf[pix] = 0
			} else {
				blockBuf[pix] = 255
			}
		}

		//write the dynamically created mask data into the mask band
		_ = maskBnd.Write(block.X0, block.Y0, blockBuf, block.W, block.H)
	}

	_ = ds.Close()
}

type staticFiles map[string][]byte

func (sf staticFiles) ReadAt(key string, buf []byte, off int64) (int, error) {
	data, ok := sf[key]
	if !ok {
		return 0, syscall.ENOENT
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(buf, data[off:])
	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

func (sf staticFiles) Size(key string) (int64, error) {
	data, ok := sf[key]
	if !ok {
		return 0, syscall.ENOENT
	}
	return int64(len(data)), nil
}

func ExampleBridge_RegisterVSIHandler() {
	b := gdalbridge.New(memengine.New())
	b.RegisterAll()

	pixels := []byte{1, 2, 3, 4, 5, 6}
	gobr, _ := memengine.EncodeGOBR(3, 2, gdalbridge.Byte, [][]byte{pixels}, memengine.GOBROptions{Compression: memengine.CompressionZSTD})

	//every file opened with the static:// prefix is read from the map
	if err := b.RegisterVSIHandler("static://", staticFiles{"image.gobr": gobr}); err != nil {
		panic(err)
	}
	ds, err := b.Open("static://image.gobr")
	if err != nil {
		panic(err)
	}
	defer ds.Close()
	st := ds.Structure()
	fmt.Printf("Size is %dx%dx%d\n", st.SizeX, st.SizeY, st.NBands)
	buf := make([]byte, 6)
	_ = ds.Read(0, 0, buf, 3, 2)
	fmt.Println(buf)

	_, err = b.Open("static://missing.gobr")
	fmt.Println(errors.Is(err, syscall.ENOENT))

	// Output:
	// Size is 3x2x1
	// [1 2 3 4 5 6]
	// true
}

// Diagnostics emitted by the engine during a call are turned into the error returned
// by the call. An ErrLogger decides which ones are errors.
func Example_errorHandling() {
	b := gdalbridge.New(memengine.New())
	b.RegisterAll()
	ds, _ := b.Create(gdalbridge.Memory, "", 1, gdalbridge.Byte, 10, 10)
	defer ds.Close()

	//warnings are errors by default
	_, err := b.Create(gdalbridge.Memory, "", 1, gdalbridge.Byte, 10, 10, gdalbridge.CreationOption("UNKNOWN=YES"))
	fmt.Println(err)

	//an ErrLogger can log them instead
	var logged []string
	lds, err := b.Create(gdalbridge.Memory, "", 1, gdalbridge.Byte, 10, 10, gdalbridge.CreationOption("UNKNOWN=YES"),
		gdalbridge.ErrLogger(func(ec gdalbridge.ErrorCategory, code int, msg string) error {
			if ec > gdalbridge.CE_Warning {
				return errors.New(msg)
			}
			logged = append(logged, strings.ToLower(msg))
			return nil
		}))
	fmt.Println(err, logged)
	_ = lds.Close()

	//failures are always reported
	err = ds.Read(5, 5, make([]byte, 100), 10, 10, gdalbridge.ErrLogger(gdalbridge.SkipWarnings))
	fmt.Println(err)

	// Output:
	// driver MEM does not support creation option UNKNOWN
	// <nil> [driver mem does not support creation option unknown]
	// Access window out of range in RasterIO().  Requested (5,5) of size 10x10 on raster of 10x10.
}

func Example_vectorTutorial() {
	eng := memengine.New()
	b := gdalbridge.New(eng)
	b.RegisterAll()

	eng.PutFile("/vsimem/points.geojson", []byte(`{"type":"FeatureCollection","features":[
		{"type":"Feature","id":1,"geometry":{"type":"Point","coordinates":[1,1]},"properties":{}},
		{"type":"Feature","id":2,"geometry":{"type":"Point","coordinates":[2,3]},"properties":{}}
	]}`))

	//by using the VectorOnly() option Open() will return an error if given
	//a raster dataset
	hDS, err := b.Open("/vsimem/points.geojson", gdalbridge.VectorOnly())
	if err != nil {
		panic(err)
	}
	defer hDS.Close()
	for _, layer := range hDS.Layers() {
		layer.ResetReading()
		for {
			feat, err := layer.NextFeature()
			if err == io.EOF {
				break
			}
			geom := feat.Geometry()
			wkt, _ := geom.WKT()
			fmt.Printf("%s %d: %s\n", layer.Name(), feat.FID(), wkt)

			//geom.Close is a no-op in this case. We call it nonetheless, as it is strongly recommended
			//to call Close on an object that implements the method.
			geom.Close()
			feat.Close()
		}
	}

	// Output:
	// points 1: POINT(1 1)
	// points 2: POINT(2 3)
}
