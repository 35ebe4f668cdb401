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
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/airbusgeo/gdalbridge/native"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// GOBR is a test container format only memengine reads.
//
// A GOBR file is the magic "GOBR", the little-endian uint32 length of a CBOR encoded
// gobrHeader, the header, then one strip per band row. Strip offsets are relative
// to the end of the header. Pixels are little-endian.
const gobrMagic = "GOBR"

const maxHeaderSize = 64 << 20

// GOBR strip compressions
const (
	CompressionNone = "none"
	CompressionZSTD = "zstd"
	CompressionLZ4  = "lz4"
)

type gobrHeader struct {
	Width       int               `cbor:"w"`
	Height      int               `cbor:"h"`
	Bands       int               `cbor:"b"`
	DataType    int               `cbor:"t"`
	Compression string            `cbor:"c"`
	NoData      *float64          `cbor:"nd,omitempty"`
	Metadata    map[string]string `cbor:"md,omitempty"`
	Offsets     []int64           `cbor:"so"`
	Lengths     []int64           `cbor:"sl"`
}

func (h *gobrHeader) validate() error {
	if h.Width <= 0 || h.Height <= 0 || h.Bands <= 0 {
		return fmt.Errorf("invalid dimensions %dx%dx%d", h.Width, h.Height, h.Bands)
	}
	if native.DataType(h.DataType).Size() == 0 {
		return fmt.Errorf("invalid data type %d", h.DataType)
	}
	switch h.Compression {
	case CompressionNone, CompressionZSTD, CompressionLZ4:
	default:
		return fmt.Errorf("unsupported compression %q", h.Compression)
	}
	n := h.Bands * h.Height
	if len(h.Offsets) != n || len(h.Lengths) != n {
		return fmt.Errorf("expected %d strips, got %d offsets and %d lengths", n, len(h.Offsets), len(h.Lengths))
	}
	return nil
}

// GOBROptions tune EncodeGOBR
type GOBROptions struct {
	// Compression is one of CompressionNone (the default), CompressionZSTD and CompressionLZ4
	Compression string
	NoData      *float64
	Metadata    map[string]string
}

// EncodeGOBR builds a GOBR file. bands holds the little-endian pixels of each band,
// row after row.
func EncodeGOBR(width, height int, dtype native.DataType, bands [][]byte, opts GOBROptions) ([]byte, error) {
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	hdr := gobrHeader{
		Width:       width,
		Height:      height,
		Bands:       len(bands),
		DataType:    int(dtype),
		Compression: opts.Compression,
		NoData:      opts.NoData,
		Metadata:    opts.Metadata,
	}
	rowSize := width * dtype.Size()
	var zenc *zstd.Encoder
	if opts.Compression == CompressionZSTD {
		var err error
		if zenc, err = zstd.NewWriter(nil); err != nil {
			return nil, fmt.Errorf("zstd.newwriter: %w", err)
		}
		defer zenc.Close()
	}
	var data bytes.Buffer
	for b, band := range bands {
		if len(band) != rowSize*height {
			return nil, fmt.Errorf("band %d: expected %d bytes, got %d", b+1, rowSize*height, len(band))
		}
		for r := 0; r < height; r++ {
			row := band[r*rowSize : (r+1)*rowSize]
			var strip []byte
			switch opts.Compression {
			case CompressionNone:
				strip = row
			case CompressionZSTD:
				strip = zenc.EncodeAll(row, nil)
			case CompressionLZ4:
				var zb bytes.Buffer
				zw := lz4.NewWriter(&zb)
				if _, err := zw.Write(row); err != nil {
					return nil, fmt.Errorf("lz4 write: %w", err)
				}
				if err := zw.Close(); err != nil {
					return nil, fmt.Errorf("lz4 close: %w", err)
				}
				strip = zb.Bytes()
			default:
				return nil, fmt.Errorf("unsupported compression %q", opts.Compression)
			}
			hdr.Offsets = append(hdr.Offsets, int64(data.Len()))
			hdr.Lengths = append(hdr.Lengths, int64(len(strip)))
			data.Write(strip)
		}
	}
	if err := hdr.validate(); err != nil {
		return nil, err
	}
	hb, err := cbor.Marshal(hdr)
	if err != nil {
		return nil, fmt.Errorf("cbor.marshal: %w", err)
	}
	out := make([]byte, 0, 8+len(hb)+data.Len())
	out = append(out, gobrMagic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(hb)))
	out = append(out, hb...)
	return append(out, data.Bytes()...), nil
}

// EncodeAux builds the content of a ".aux.cbor" sidecar holding metadata items per domain
func EncodeAux(md map[string]map[string]string) ([]byte, error) {
	return cbor.Marshal(md)
}

func newGOBRDriver(e *Engine) *driver {
	d := &driver{
		engine:      e,
		name:        "GOBR",
		raster:      true,
		openOptions: []string{"NUM_THREADS"},
	}
	d.identify = func(oi *openInfo) bool {
		return len(oi.header) >= 8 && string(oi.header[:4]) == gobrMagic
	}
	d.open = func(t native.Thread, oi *openInfo) *memDataset {
		return d.openGOBR(t, oi)
	}
	return d
}

var zstdDecoder, _ = zstd.NewReader(nil)

func (d *driver) openGOBR(t native.Thread, oi *openInfo) *memDataset {
	hlen := int64(binary.LittleEndian.Uint32(oi.header[4:8]))
	if hlen == 0 || hlen > maxHeaderSize {
		failf(t, native.AppDefined, "GOBR: %s: invalid header length %d", oi.name, hlen)
		return nil
	}
	hb := make([]byte, hlen)
	if oi.fh.Seek(8, io.SeekStart) != 0 || oi.fh.Read(t, hb, 1, len(hb)) != len(hb) {
		failf(t, native.FileIO, "GOBR: %s: failed to read header", oi.name)
		return nil
	}
	var hdr gobrHeader
	if err := cbor.Unmarshal(hb, &hdr); err != nil {
		failf(t, native.AppDefined, "GOBR: %s: corrupt header: %v", oi.name, err)
		return nil
	}
	if err := hdr.validate(); err != nil {
		failf(t, native.AppDefined, "GOBR: %s: corrupt header: %v", oi.name, err)
		return nil
	}
	ds := &memDataset{
		engine:   d.engine,
		driver:   d,
		width:    hdr.Width,
		height:   hdr.Height,
		readOnly: true,
	}
	ds.desc = oi.name
	ds.src = &gobrSource{fh: oi.fh, hdr: hdr, dataStart: 8 + hlen}
	for k, v := range hdr.Metadata {
		ds.setItem(k, v, "")
	}
	for i := 1; i <= hdr.Bands; i++ {
		b := newBand(ds, i, native.DataType(hdr.DataType), false)
		if hdr.NoData != nil {
			b.nodata, b.hasNoData = *hdr.NoData, true
		}
		ds.bands = append(ds.bands, b)
	}
	debugf(t, "GOBR", "opened %s: %dx%dx%d %s, %s", oi.name, hdr.Width, hdr.Height, hdr.Bands,
		native.DataType(hdr.DataType), hdr.Compression)
	return ds
}

type gobrSource struct {
	fh        native.VirtualHandle
	hdr       gobrHeader
	dataStart int64
}

func (s *gobrSource) rows(t native.Thread, bands []int, y0, y1 int) ([][]byte, binary.ByteOrder, bool) {
	nrows := y1 - y0
	bufs := make([][]byte, 0, len(bands)*nrows)
	offs := make([]int64, 0, len(bands)*nrows)
	for _, b := range bands {
		for r := y0; r < y1; r++ {
			k := (b-1)*s.hdr.Height + r
			bufs = append(bufs, make([]byte, s.hdr.Lengths[k]))
			offs = append(offs, s.dataStart+s.hdr.Offsets[k])
		}
	}
	if len(bufs) == 1 {
		if s.fh.Seek(offs[0], io.SeekStart) != 0 || s.fh.Read(t, bufs[0], 1, len(bufs[0])) != len(bufs[0]) {
			failf(t, native.FileIO, "GOBR: failed to read strip at offset %d", offs[0])
			return nil, nil, false
		}
	} else if s.fh.ReadMultiRange(t, bufs, offs) != 0 {
		failf(t, native.FileIO, "GOBR: failed to read %d strips", len(bufs))
		return nil, nil, false
	}
	rowSize := s.hdr.Width * native.DataType(s.hdr.DataType).Size()
	out := make([][]byte, len(bands))
	for i := range bands {
		out[i] = make([]byte, rowSize*nrows)
		for r := 0; r < nrows; r++ {
			if err := s.decode(bufs[i*nrows+r], out[i][r*rowSize:(r+1)*rowSize]); err != nil {
				failf(t, native.AppDefined, "GOBR: band %d row %d: %v", bands[i], y0+r, err)
				return nil, nil, false
			}
		}
	}
	return out, binary.LittleEndian, true
}

func (s *gobrSource) decode(strip, dst []byte) error {
	switch s.hdr.Compression {
	case CompressionZSTD:
		row, err := zstdDecoder.DecodeAll(strip, nil)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		if len(row) != len(dst) {
			return fmt.Errorf("zstd: expected %d bytes, got %d", len(dst), len(row))
		}
		copy(dst, row)
	case CompressionLZ4:
		if _, err := io.ReadFull(lz4.NewReader(bytes.NewReader(strip)), dst); err != nil {
			return fmt.Errorf("lz4: %w", err)
		}
	default:
		if len(strip) != len(dst) {
			return fmt.Errorf("expected %d bytes, got %d", len(dst), len(strip))
		}
		copy(dst, strip)
	}
	return nil
}

func (s *gobrSource) close() int {
	return s.fh.Close()
}
