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
	"encoding/binary"
	"math"

	"github.com/airbusgeo/gdalbridge/native"
)

// getPixel decodes the pixel at the start of b
func getPixel(dt native.DataType, order binary.ByteOrder, b []byte) (re, im float64) {
	switch dt {
	case native.Byte:
		return float64(b[0]), 0
	case native.Int8:
		return float64(int8(b[0])), 0
	case native.UInt16:
		return float64(order.Uint16(b)), 0
	case native.Int16:
		return float64(int16(order.Uint16(b))), 0
	case native.UInt32:
		return float64(order.Uint32(b)), 0
	case native.Int32:
		return float64(int32(order.Uint32(b))), 0
	case native.Float32:
		return float64(math.Float32frombits(order.Uint32(b))), 0
	case native.Float64:
		return math.Float64frombits(order.Uint64(b)), 0
	case native.CInt16:
		return float64(int16(order.Uint16(b))), float64(int16(order.Uint16(b[2:])))
	case native.CInt32:
		return float64(int32(order.Uint32(b))), float64(int32(order.Uint32(b[4:])))
	case native.CFloat32:
		return float64(math.Float32frombits(order.Uint32(b))), float64(math.Float32frombits(order.Uint32(b[4:])))
	case native.CFloat64:
		return math.Float64frombits(order.Uint64(b)), math.Float64frombits(order.Uint64(b[8:]))
	}
	return 0, 0
}

// clampInt rounds v to the nearest integer in [lo,hi]. NaN maps to 0.
func clampInt(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// setPixel encodes re (and im for complex types) at the start of b, rounding and
// clamping to the range of integer types
func setPixel(dt native.DataType, order binary.ByteOrder, b []byte, re, im float64) {
	switch dt {
	case native.Byte:
		b[0] = byte(clampInt(re, 0, math.MaxUint8))
	case native.Int8:
		b[0] = byte(int8(clampInt(re, math.MinInt8, math.MaxInt8)))
	case native.UInt16:
		order.PutUint16(b, uint16(clampInt(re, 0, math.MaxUint16)))
	case native.Int16:
		order.PutUint16(b, uint16(int16(clampInt(re, math.MinInt16, math.MaxInt16))))
	case native.UInt32:
		order.PutUint32(b, uint32(clampInt(re, 0, math.MaxUint32)))
	case native.Int32:
		order.PutUint32(b, uint32(int32(clampInt(re, math.MinInt32, math.MaxInt32))))
	case native.Float32:
		order.PutUint32(b, math.Float32bits(float32(re)))
	case native.Float64:
		order.PutUint64(b, math.Float64bits(re))
	case native.CInt16:
		order.PutUint16(b, uint16(int16(clampInt(re, math.MinInt16, math.MaxInt16))))
		order.PutUint16(b[2:], uint16(int16(clampInt(im, math.MinInt16, math.MaxInt16))))
	case native.CInt32:
		order.PutUint32(b, uint32(int32(clampInt(re, math.MinInt32, math.MaxInt32))))
		order.PutUint32(b[4:], uint32(int32(clampInt(im, math.MinInt32, math.MaxInt32))))
	case native.CFloat32:
		order.PutUint32(b, math.Float32bits(float32(re)))
		order.PutUint32(b[4:], math.Float32bits(float32(im)))
	case native.CFloat64:
		order.PutUint64(b, math.Float64bits(re))
		order.PutUint64(b[8:], math.Float64bits(im))
	}
}

// representable reports whether v can be stored exactly in a pixel of type dt
func representable(dt native.DataType, v float64) bool {
	var lo, hi float64
	switch dt {
	case native.Byte:
		lo, hi = 0, math.MaxUint8
	case native.Int8:
		lo, hi = math.MinInt8, math.MaxInt8
	case native.UInt16:
		lo, hi = 0, math.MaxUint16
	case native.Int16, native.CInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case native.UInt32:
		lo, hi = 0, math.MaxUint32
	case native.Int32, native.CInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	default:
		return true
	}
	return v == math.Trunc(v) && v >= lo && v <= hi
}

// window describes the caller's side of a RasterIO call
type window struct {
	x, y, w, h      int
	buf             []byte
	bufW, bufH      int
	dtype           native.DataType
	pixelSp, lineSp int
}

// readWindow samples rows (the band's pixels of rows [win.y, win.y+win.h) of a band
// of width xsize, stored in order) into win.buf using nearest neighbour
func readWindow(rows []byte, xsize int, dt native.DataType, order binary.ByteOrder, win window) {
	ds := dt.Size()
	for j := 0; j < win.bufH; j++ {
		sy := j * win.h / win.bufH
		line := rows[sy*xsize*ds:]
		for i := 0; i < win.bufW; i++ {
			sx := win.x + i*win.w/win.bufW
			dst := win.buf[j*win.lineSp+i*win.pixelSp:]
			src := line[sx*ds:]
			if dt == win.dtype && order == binary.NativeEndian {
				copy(dst[:ds], src[:ds])
				continue
			}
			re, im := getPixel(dt, order, src)
			setPixel(win.dtype, binary.NativeEndian, dst, re, im)
		}
	}
}

// writeWindow writes win.buf into data, the whole content of a band of width xsize
func writeWindow(data []byte, xsize int, dt native.DataType, win window) {
	ds := dt.Size()
	for sy := 0; sy < win.h; sy++ {
		j := sy * win.bufH / win.h
		line := data[(win.y+sy)*xsize*ds:]
		for sx := 0; sx < win.w; sx++ {
			i := sx * win.bufW / win.w
			src := win.buf[j*win.lineSp+i*win.pixelSp:]
			dst := line[(win.x+sx)*ds:]
			if dt == win.dtype {
				copy(dst[:ds], src[:ds])
				continue
			}
			re, im := getPixel(win.dtype, binary.NativeEndian, src)
			setPixel(dt, binary.NativeEndian, dst, re, im)
		}
	}
}
