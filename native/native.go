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

// Package native describes the subset of the geospatial engine's C API that gdalbridge
// consumes. Implementations are provided by the cgdal (libgdal through cgo) and memengine
// (in-process) packages.
//
// Every engine entry point that may emit a diagnostic takes the Thread it runs on as its
// first argument: diagnostics, errno and thread-local configuration are per-thread state
// and are never shared between two Threads.
package native

import "syscall"

// CPLErr is the severity of a diagnostic, or the status returned by raster operations
type CPLErr int

// Severities, ordered
const (
	None CPLErr = iota
	Debug
	Warning
	Failure
	Fatal
)

// ErrorNum is the error class attached to a diagnostic
type ErrorNum int

// Error classes
const (
	NoError ErrorNum = iota
	AppDefined
	OutOfMemory
	FileIO
	OpenFailed
	IllegalArg
	NotSupported
	AssertionFailed
	NoWriteAccess
	UserInterrupt
	ObjectNull
)

// OGRErr is the status returned by vector operations
type OGRErr int

// Vector statuses
const (
	OGRNone OGRErr = iota
	OGRNotEnoughData
	OGRNotEnoughMemory
	OGRUnsupportedGeometryType
	OGRUnsupportedOperation
	OGRCorruptData
	OGRFailure
	OGRUnsupportedSRS
	OGRInvalidHandle
	OGRNonExistingFeature
)

// ErrorHandler receives the diagnostics emitted on a Thread while it is installed
type ErrorHandler func(lvl CPLErr, code ErrorNum, msg string)

// Thread is the engine state bound to one OS thread (or one in-process call).
//
// Handlers form a stack: only the most recently pushed one receives diagnostics.
// Config options set on a Thread shadow the global ones for that Thread only.
type Thread interface {
	PushErrorHandler(h ErrorHandler)
	PopErrorHandler()
	// Error emits a diagnostic to the active handler
	Error(lvl CPLErr, code ErrorNum, msg string)
	// Debug emits a Debug diagnostic formatted "category: msg" when the
	// CPL_DEBUG config option enables it
	Debug(category, msg string)
	SetConfigOption(key, value string)
	UnsetConfigOption(key string)
	// ConfigOption looks up the thread-local, then the global value of key
	ConfigOption(key, def string) string
	SetErrno(errno syscall.Errno)
	Errno() syscall.Errno
	// Detach releases the thread. It must not be used afterwards.
	Detach()
}

// DriverInitializer registers one driver (or a family of drivers) with the engine
type DriverInitializer interface {
	Register()
}

// DriverInitializerFunc adapts a plain function to a DriverInitializer
type DriverInitializerFunc func()

// Register calls f
func (f DriverInitializerFunc) Register() { f() }

// Engine is the native geospatial engine
type Engine interface {
	// Attach binds the calling goroutine to a Thread until Detach is called
	Attach() Thread
	// Version returns the engine's release name
	Version() string

	SetConfigOption(key, value string)
	ConfigOption(key, def string) string

	// DriverInitializers is the explicit table of every driver that can be registered
	DriverInitializers() map[string]DriverInitializer
	// Driver returns nil if name has not been registered
	Driver(name string) Driver
	DriverCount() int

	// FilesystemPrefixes lists every prefix that has a filesystem handler, builtin or installed
	FilesystemPrefixes() []string
	// InstallFilesystemHandler routes every path starting with prefix to h.
	// Like the engine's own handler manager it replaces any existing handler.
	InstallFilesystemHandler(prefix string, h FilesystemHandler) error
	// CreateCachedFile wraps h in a read-ahead/caching handle
	CreateCachedFile(h VirtualHandle, bufferSize, cacheSize int) VirtualHandle
	VSIOpen(t Thread, path, access string) VirtualHandle
	VSIStat(t Thread, path string, flags StatFlags) (StatBuf, int)
	VSIUnlink(t Thread, path string) int

	// Open returns nil on failure, after emitting at least one diagnostic when
	// OfVerboseError is set
	Open(t Thread, name string, flags OpenFlags, drivers, options, siblings []string) Dataset

	NewGeometryFromWKT(t Thread, wkt string) (Geometry, OGRErr)
	NewGeometryFromWKB(t Thread, wkb []byte) (Geometry, OGRErr)

	NewSpatialRefFromWKT(t Thread, wkt string) (SpatialRef, OGRErr)
	NewSpatialRefFromEPSG(t Thread, code int) (SpatialRef, OGRErr)

	// Translate and Warp run the engine's gdal_translate and gdalwarp utilities, switches
	// being their command line arguments. They return nil on failure.
	Translate(t Thread, dst string, src Dataset, switches []string) Dataset
	Warp(t Thread, dst string, srcs []Dataset, switches []string) Dataset
}

// Driver creates datasets
type Driver interface {
	Name() string
	// Create returns nil on failure. A vector-only dataset is created with
	// zero sizes, zero bands and the Unknown data type.
	Create(t Thread, name string, width, height, nBands int, dtype DataType, options []string) Dataset
}

// String returns the severity name
func (e CPLErr) String() string {
	switch e {
	case None:
		return "None"
	case Debug:
		return "Debug"
	case Warning:
		return "Warning"
	case Failure:
		return "Failure"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}
