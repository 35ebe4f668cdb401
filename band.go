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
	"github.com/airbusgeo/gdalbridge/native"
)

// Band is a wrapper around an engine raster band handle. Bands are owned by their
// dataset and must not be used once it is closed.
type Band struct {
	majorObject
	handle native.Band
}

func (b *Bridge) newBand(h native.Band) Band {
	return Band{majorObject: majorObject{bridge: b, mo: h}, handle: h}
}

// Structure returns the band's Structure
func (band Band) Structure() BandStructure {
	bsx, bsy := band.handle.BlockSize()
	return BandStructure{
		SizeX:      band.handle.XSize(),
		SizeY:      band.handle.YSize(),
		BlockSizeX: bsx,
		BlockSizeY: bsy,
		Scale:      band.handle.Scale(),
		Offset:     band.handle.Offset(),
		DataType:   band.handle.DataType(),
	}
}

// NoData returns the band's nodata value. if ok is false, the band does not
// have a nodata value set
func (band Band) NoData() (nodata float64, ok bool) {
	return band.handle.NoDataValue()
}

// SetNoData sets the band's nodata value
func (band Band) SetNoData(nd float64, opts ...SetNoDataOption) error {
	sndo := setNodataOpts{}
	for _, opt := range opts {
		opt.setSetNoDataOpt(&sndo)
	}
	return band.bridge.call(nil, sndo.errorHandler, func(cc *callContext) {
		if band.handle == nil {
			cc.raise(nullHandleMsg)
			return
		}
		if ret := band.handle.SetNoDataValue(cc.thread, nd); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// ClearNoData clears the band's nodata value
func (band Band) ClearNoData(opts ...SetNoDataOption) error {
	sndo := setNodataOpts{}
	for _, opt := range opts {
		opt.setSetNoDataOpt(&sndo)
	}
	return band.bridge.call(nil, sndo.errorHandler, func(cc *callContext) {
		if band.handle == nil {
			cc.raise(nullHandleMsg)
			return
		}
		if ret := band.handle.DeleteNoDataValue(cc.thread); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// SetScaleOffset sets the band's scale and offset
func (band Band) SetScaleOffset(scale, offset float64, opts ...SetScaleOffsetOption) error {
	setterOpts := setScaleOffsetOpts{}
	for _, opt := range opts {
		opt.setSetScaleOffsetOpt(&setterOpts)
	}
	return band.bridge.call(nil, setterOpts.errorHandler, func(cc *callContext) {
		ret := band.handle.SetScale(cc.thread, scale)
		if ret == native.None {
			ret = band.handle.SetOffset(cc.thread, offset)
		}
		if ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// ClearScaleOffset clears the band's scale and offset
func (band Band) ClearScaleOffset(opts ...SetScaleOffsetOption) error {
	return band.SetScaleOffset(1.0, 0.0, opts...)
}

// Overviews returns all overviews of band
func (band Band) Overviews() []Band {
	n := band.handle.OverviewCount()
	ovrs := make([]Band, 0, n)
	for i := 0; i < n; i++ {
		if h := band.handle.Overview(i); h != nil {
			ovrs = append(ovrs, band.bridge.newBand(h))
		}
	}
	return ovrs
}

// MaskFlags returns the mask flags associated with this band.
//
// See https://gdal.org/development/rfc/rfc15_nodatabitmask.html for how this flag
// should be interpreted
func (band Band) MaskFlags() int {
	return band.handle.MaskFlags()
}

// MaskBand returns the mask (nodata) band for this band. May be generated from nodata values.
func (band Band) MaskBand() Band {
	return band.bridge.newBand(band.handle.MaskBand())
}

// CreateMask creates a mask (nodata) band for this band.
//
// Any handle returned by a previous call to MaskBand() should not be used after a call to CreateMask
// See https://gdal.org/development/rfc/rfc15_nodatabitmask.html for how flag should be used
func (band Band) CreateMask(flags int, opts ...BandCreateMaskOption) (Band, error) {
	gopts := bandCreateMaskOpts{}
	for _, opt := range opts {
		opt.setBandCreateMaskOpt(&gopts)
	}
	var mask native.Band
	err := band.bridge.call(gopts.config, gopts.errorHandler, func(cc *callContext) {
		if ret := band.handle.CreateMaskBand(cc.thread, flags); ret != native.None {
			cc.forceCPLError(ret)
			return
		}
		mask = band.handle.MaskBand()
		if mask == nil {
			cc.forceError()
		}
	})
	if err != nil {
		return Band{}, err
	}
	return band.bridge.newBand(mask), nil
}

// Fill sets the whole band uniformely to (real,imag)
func (band Band) Fill(real, imag float64, opts ...FillBandOption) error {
	fo := fillBandOpts{}
	for _, o := range opts {
		o.setFillBandOpt(&fo)
	}
	return band.bridge.call(nil, fo.errorHandler, func(cc *callContext) {
		if ret := band.handle.Fill(cc.thread, real, imag); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// Read populates the supplied buffer with the pixels contained in the supplied window
func (band Band) Read(srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...BandIOOption) error {
	return band.IO(IORead, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// Write sets the dataset's pixels contained in the supplied window to the content of the supplied buffer
func (band Band) Write(srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...BandIOOption) error {
	return band.IO(IOWrite, srcX, srcY, buffer, bufWidth, bufHeight, opts...)
}

// IO reads or writes the pixels contained in the supplied window
func (band Band) IO(rw IOOperation, srcX, srcY int, buffer interface{}, bufWidth, bufHeight int, opts ...BandIOOption) error {
	bo := bandIOOpts{}
	for _, opt := range opts {
		opt.setBandIOOpt(&bo)
	}
	if bo.dsHeight == 0 {
		bo.dsHeight = bufHeight
	}
	if bo.dsWidth == 0 {
		bo.dsWidth = bufWidth
	}
	dtype, err := bufferType(buffer)
	if err != nil {
		return err
	}
	dsize := dtype.Size()
	pixelSpacing := dsize
	if bo.pixelSpacing > 0 {
		pixelSpacing = bo.pixelSpacing
	}
	lineSpacing := bufWidth * pixelSpacing
	if bo.lineSpacing > 0 {
		lineSpacing = bo.lineSpacing
	}
	minsize := ((bufHeight-1)*lineSpacing + (bufWidth-1)*pixelSpacing + dsize) / dsize
	buf, err := bufferBytes(buffer, minsize)
	if err != nil {
		return err
	}
	return band.bridge.call(bo.config, bo.errorHandler, func(cc *callContext) {
		ret := band.handle.RasterIO(cc.thread, rw, srcX, srcY, bo.dsWidth, bo.dsHeight,
			buf, bufWidth, bufHeight, dtype, pixelSpacing, lineSpacing)
		if ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}
