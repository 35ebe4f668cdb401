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

// Package gdalbridge adapts a native geospatial engine (GDAL) to Go callers.
//
// Every engine entry point is run inside a call context that captures the
// diagnostics emitted by the engine on the calling thread and turns them into a
// single Go error. Go code can also serve the bytes of read-only files to the
// engine through RegisterVSIHandler.
package gdalbridge

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/airbusgeo/gdalbridge/native"
)

// DataType is a pixel data type
type DataType = native.DataType

const (
	//Unknown / Unset Datatype
	Unknown = native.Unknown
	//Byte / UInt8
	Byte = native.Byte
	//UInt16 DataType
	UInt16 = native.UInt16
	//Int8 DataType
	Int8 = native.Int8
	//Int16 DataType
	Int16 = native.Int16
	//UInt32 DataType
	UInt32 = native.UInt32
	//Int32 DataType
	Int32 = native.Int32
	//Float32 DataType
	Float32 = native.Float32
	//Float64 DataType
	Float64 = native.Float64
	//CInt16 is a complex Int16
	CInt16 = native.CInt16
	//CInt32 is a complex Int32
	CInt32 = native.CInt32
	//CFloat32 is a complex Float32
	CFloat32 = native.CFloat32
	//CFloat64 is a complex Float64
	CFloat64 = native.CFloat64
)

// ErrorCategory is the severity of a diagnostic emitted by the engine
type ErrorCategory = native.CPLErr

const (
	// CE_None is not an error
	CE_None = native.None
	// CE_Debug is a debug level
	CE_Debug = native.Debug
	// CE_Warning is a warning level
	CE_Warning = native.Warning
	// CE_Failure is an error
	CE_Failure = native.Failure
	// CE_Fatal is an unrecoverable error
	CE_Fatal = native.Fatal
)

// Bridge is the entry point to a native engine. All datasets, layers and files
// obtained through a Bridge keep a reference to it.
//
// A Bridge is safe for concurrent use. Objects obtained from it (Dataset, Band, Layer...)
// follow the engine's own thread-safety rules and must not be used concurrently.
type Bridge struct {
	engine native.Engine
	logger *slog.Logger

	vsiMu       sync.Mutex
	vsiHandlers map[string]*vsiHandler
}

// BridgeOption configures a Bridge
type BridgeOption func(b *Bridge)

// WithLogger sets the logger receiving the diagnostics that are not treated as errors
// (i.e. debug messages when no ErrLogger was supplied to the call).
// Defaults to a text logger on stderr at Info level.
func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) {
		b.logger = l
	}
}

// New returns a Bridge over engine
func New(engine native.Engine, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		engine:      engine,
		logger:      slog.New(slog.NewTextHandler(os.Stderr, nil)),
		vsiHandlers: make(map[string]*vsiHandler),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Engine returns the native engine b is bound to
func (b *Bridge) Engine() native.Engine {
	return b.engine
}

// Version returns the runtime version of the native engine
func (b *Bridge) Version() string {
	return b.engine.Version()
}

// SetConfigOption sets a process-wide engine configuration option. Prefer
// passing ConfigOption to individual calls, which only affects the calling thread
// for the duration of the call.
func (b *Bridge) SetConfigOption(key, value string) {
	b.engine.SetConfigOption(key, value)
}

// GetConfigOption returns the process-wide value of key, or def if it is not set
func (b *Bridge) GetConfigOption(key, def string) string {
	return b.engine.ConfigOption(key, def)
}

// IOOperation determines wether Band.IO or Dataset.IO will read pixels into the
// provided buffer, or write pixels from the provided buffer
type IOOperation = native.RWFlag

const (
	//IORead reads data into the provided buffer
	IORead = native.Read
	//IOWrite writes data from the provided buffer
	IOWrite = native.Write
)

func bufferType(buffer interface{}) (DataType, error) {
	switch buffer.(type) {
	case []byte:
		return Byte, nil
	case []int8:
		return Int8, nil
	case []int16:
		return Int16, nil
	case []uint16:
		return UInt16, nil
	case []int32:
		return Int32, nil
	case []uint32:
		return UInt32, nil
	case []float32:
		return Float32, nil
	case []float64:
		return Float64, nil
	case []complex64:
		return CFloat32, nil
	case []complex128:
		return CFloat64, nil
	default:
		return Unknown, fmt.Errorf("unsupported buffer type %T", buffer)
	}
}

// bufferBytes returns the memory backing a typed pixel buffer, after checking that it
// holds at least minsize elements
func bufferBytes(buffer interface{}, minsize int) ([]byte, error) {
	var b []byte
	var l int
	switch buf := buffer.(type) {
	case []byte:
		b, l = buf, len(buf)
	case []int8:
		b, l = asBytes(buf), len(buf)
	case []int16:
		b, l = asBytes(buf), len(buf)
	case []uint16:
		b, l = asBytes(buf), len(buf)
	case []int32:
		b, l = asBytes(buf), len(buf)
	case []uint32:
		b, l = asBytes(buf), len(buf)
	case []float32:
		b, l = asBytes(buf), len(buf)
	case []float64:
		b, l = asBytes(buf), len(buf)
	case []complex64:
		b, l = asBytes(buf), len(buf)
	case []complex128:
		b, l = asBytes(buf), len(buf)
	default:
		return nil, fmt.Errorf("unsupported buffer type %T", buffer)
	}
	if l < minsize {
		return nil, fmt.Errorf("buffer len=%d less than min=%d", l, minsize)
	}
	return b, nil
}

func asBytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(zero)))
}
