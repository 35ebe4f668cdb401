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

import "github.com/airbusgeo/gdalbridge/native"

// PaletteInterp defines the color interpretation of a ColorTable
type PaletteInterp = native.PaletteInterp

const (
	//GrayscalePalette is a grayscale palette with a single component per entry
	GrayscalePalette = native.PaletteGray
	//RGBPalette is a RGBA palette with 4 components per entry
	RGBPalette = native.PaletteRGB
	//CMYKPalette is a CMYK palette with 4 components per entry
	CMYKPalette = native.PaletteCMYK
	//HLSPalette is a HLS palette with 3 components per entry
	HLSPalette = native.PaletteHLS
)

// ColorTable is a color table associated with a Band
type ColorTable struct {
	PaletteInterp PaletteInterp
	Entries       [][4]int16
}

// ColorTable returns the bands color table. The returned ColorTable will have
// a 0-length Entries if the band has no color table assigned
func (band Band) ColorTable() ColorTable {
	interp, entries := band.handle.ColorTable()
	return ColorTable{PaletteInterp: interp, Entries: entries}
}

// SetColorTable sets the band's color table. if passing in a 0-length ct.Entries,
// the band's color table will be cleared
func (band Band) SetColorTable(ct ColorTable, opts ...SetColorTableOption) error {
	cto := setColorTableOpts{}
	for _, o := range opts {
		o.setSetColorTableOpt(&cto)
	}
	return band.bridge.call(nil, cto.errorHandler, func(cc *callContext) {
		if ret := band.handle.SetColorTable(cc.thread, ct.PaletteInterp, ct.Entries); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}
