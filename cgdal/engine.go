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

// Package cgdal implements native.Engine on top of libgdal's C API.
//
// libgdal keeps its drivers, filesystem handlers and global config options per process:
// every Engine created by New shares them. Thread state (error handlers, thread-local
// config options, errno) lives on the OS thread, which is why Attach locks the calling
// goroutine to its thread until Detach.
package cgdal

/*
#include "cgdal.h"
#include <stdlib.h>

#cgo pkg-config: gdal
#cgo LDFLAGS: -ldl
*/
import "C"
import (
	"fmt"
	"os"
	"runtime"
	"runtime/cgo"
	"sync"
	"syscall"
	"unsafe"

	"github.com/airbusgeo/gdalbridge/internal/vsicache"
	"github.com/airbusgeo/gdalbridge/native"
)

// Engine is the libgdal native.Engine
type Engine struct {
	mu       sync.Mutex
	handlers map[string]cgo.Handle
}

var _ native.Engine = (*Engine)(nil)

// New returns an engine. No driver is registered.
func New() *Engine {
	return &Engine{handlers: make(map[string]cgo.Handle)}
}

type thread struct {
	handlers []cgo.Handle
	locked   bool
}

var _ native.Thread = (*thread)(nil)

//export cgdalGoErrorHandler
func cgdalGoErrorHandler(h C.uintptr_t, lvl C.int, code C.int, msg *C.char) {
	fn := cgo.Handle(h).Value().(native.ErrorHandler)
	fn(native.CPLErr(lvl), native.ErrorNum(code), C.GoString(msg))
}

func (t *thread) PushErrorHandler(h native.ErrorHandler) {
	hd := cgo.NewHandle(h)
	t.handlers = append(t.handlers, hd)
	C.cgdalPushErrorHandler(C.uintptr_t(hd))
}

func (t *thread) PopErrorHandler() {
	last := len(t.handlers) - 1
	if last < 0 {
		return
	}
	C.CPLPopErrorHandler()
	t.handlers[last].Delete()
	t.handlers = t.handlers[:last]
}

func (t *thread) Error(lvl native.CPLErr, code native.ErrorNum, msg string) {
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))
	C.cgdalError(C.CPLErr(lvl), C.int(code), cmsg)
}

func (t *thread) Debug(category, msg string) {
	ccat := C.CString(category)
	defer C.free(unsafe.Pointer(ccat))
	cmsg := C.CString(msg)
	defer C.free(unsafe.Pointer(cmsg))
	C.cgdalDebug(ccat, cmsg)
}

func (t *thread) SetConfigOption(key, value string) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cval := C.CString(value)
	defer C.free(unsafe.Pointer(cval))
	C.CPLSetThreadLocalConfigOption(ckey, cval)
}

func (t *thread) UnsetConfigOption(key string) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	C.CPLSetThreadLocalConfigOption(ckey, nil)
}

func (t *thread) ConfigOption(key, def string) string {
	return configOption(key, def)
}

func (t *thread) SetErrno(errno syscall.Errno) {
	C.cgdalSetErrno(C.int(errno))
}

func (t *thread) Errno() syscall.Errno {
	return syscall.Errno(C.cgdalErrno())
}

// Detach pops any handler left installed and unlocks the OS thread
func (t *thread) Detach() {
	for len(t.handlers) > 0 {
		t.PopErrorHandler()
	}
	if t.locked {
		t.locked = false
		runtime.UnlockOSThread()
	}
}

// Attach locks the calling goroutine to its OS thread
func (e *Engine) Attach() native.Thread {
	runtime.LockOSThread()
	return &thread{locked: true}
}

var releaseName = C.CString("RELEASE_NAME")

// Version returns libgdal's release name, e.g. "3.8.4"
func (e *Engine) Version() string {
	return C.GoString(C.GDALVersionInfo(releaseName))
}

func configOption(key, def string) string {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	cdef := C.CString(def)
	defer C.free(unsafe.Pointer(cdef))
	return C.GoString(C.CPLGetConfigOption(ckey, cdef))
}

// SetConfigOption sets a process-wide config option. An empty value removes it.
func (e *Engine) SetConfigOption(key, value string) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	if value == "" {
		C.CPLSetConfigOption(ckey, nil)
		return
	}
	cval := C.CString(value)
	defer C.free(unsafe.Pointer(cval))
	C.CPLSetConfigOption(ckey, cval)
}

func (e *Engine) ConfigOption(key, def string) string {
	return configOption(key, def)
}

func initializer(fn func()) native.DriverInitializer {
	return native.DriverInitializerFunc(fn)
}

// initializers only lists drivers that are built into every libgdal. Optional drivers
// are available through GDALAllRegister.
var initializers = map[string]native.DriverInitializer{
	"GDALAllRegister":       initializer(func() { C.GDALAllRegister() }),
	"GDALRegister_GTiff":    initializer(func() { C.GDALRegister_GTiff() }),
	"GDALRegister_MEM":      initializer(func() { C.GDALRegister_MEM() }),
	"GDALRegister_VRT":      initializer(func() { C.GDALRegister_VRT() }),
	"GDALRegister_HFA":      initializer(func() { C.GDALRegister_HFA() }),
	"RegisterOGRMEM":        initializer(func() { C.RegisterOGRMEM() }),
	"RegisterOGRGeoJSON":    initializer(func() { C.RegisterOGRGeoJSON() }),
	"RegisterOGRShape":      initializer(func() { C.RegisterOGRShape() }),
	"RegisterOGRGeoPackage": initializer(func() { C.RegisterOGRGeoPackage() }),
	"RegisterOGRVRT":        initializer(func() { C.RegisterOGRVRT() }),
	"RegisterOGRTAB":        initializer(func() { C.RegisterOGRTAB() }),
}

func (e *Engine) DriverInitializers() map[string]native.DriverInitializer {
	ret := make(map[string]native.DriverInitializer, len(initializers))
	for k, v := range initializers {
		ret[k] = v
	}
	return ret
}

type driver struct {
	h C.GDALDriverH
}

func (e *Engine) Driver(name string) native.Driver {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	h := C.GDALGetDriverByName(cname)
	if h == nil {
		return nil
	}
	return &driver{h: h}
}

func (e *Engine) DriverCount() int {
	return int(C.GDALGetDriverCount())
}

func (d *driver) Name() string {
	return C.GoString(C.GDALGetDriverShortName(d.h))
}

func (d *driver) Create(_ native.Thread, name string, width, height, nBands int, dtype native.DataType, options []string) native.Dataset {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	copts := sliceToCStringArray(options)
	defer copts.free()
	h := C.GDALCreate(d.h, cname, C.int(width), C.int(height), C.int(nBands), C.GDALDataType(dtype), copts.cPointer())
	if h == nil {
		return nil
	}
	return newDataset(h)
}

func (e *Engine) FilesystemPrefixes() []string {
	list := C.VSIGetFileSystemsPrefixes()
	defer C.CSLDestroy(list)
	return cStringArrayToSlice(list)
}

// InstallFilesystemHandler installs h through libgdal's plugin handler API. The
// handler is never uninstalled.
func (e *Engine) InstallFilesystemHandler(prefix string, h native.FilesystemHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cprefix := C.CString(prefix)
	defer C.free(unsafe.Pointer(cprefix))
	canUnlink := C.int(0)
	if _, ok := h.(native.Unlinker); ok {
		canUnlink = 1
	}
	hd := cgo.NewHandle(h)
	if C.cgdalInstallPlugin(cprefix, C.uintptr_t(hd), canUnlink) != 0 {
		hd.Delete()
		return fmt.Errorf("VSIInstallPluginHandler(%s) failed", prefix)
	}
	if prev, ok := e.handlers[prefix]; ok {
		// libgdal replaced it, nothing can reach it anymore
		prev.Delete()
	}
	e.handlers[prefix] = hd
	return nil
}

// CreateCachedFile wraps h in a vsicache.Handle. libgdal's own VSICreateCachedFile is
// not part of its C API.
func (e *Engine) CreateCachedFile(h native.VirtualHandle, bufferSize, cacheSize int) native.VirtualHandle {
	return vsicache.New(h, bufferSize, cacheSize)
}

func (e *Engine) VSIOpen(_ native.Thread, path, access string) native.VirtualHandle {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	caccess := C.CString(access)
	defer C.free(unsafe.Pointer(caccess))
	fp := C.VSIFOpenExL(cpath, caccess, 1)
	if fp == nil {
		return nil
	}
	return &vsilFile{fp: fp}
}

func (e *Engine) VSIStat(_ native.Thread, path string, flags native.StatFlags) (native.StatBuf, int) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	var size C.longlong
	var isdir C.int
	if C.cgdalStat(cpath, C.int(flags), &size, &isdir) != 0 {
		return native.StatBuf{}, -1
	}
	sb := native.StatBuf{Size: int64(size)}
	if isdir != 0 {
		sb.Mode |= os.ModeDir
	}
	return sb, 0
}

func (e *Engine) VSIUnlink(_ native.Thread, path string) int {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	return int(C.VSIUnlink(cpath))
}

func (e *Engine) Open(_ native.Thread, name string, flags native.OpenFlags, drivers, options, siblings []string) native.Dataset {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	cdrivers := sliceToCStringArray(drivers)
	defer cdrivers.free()
	coptions := sliceToCStringArray(options)
	defer coptions.free()
	csiblings := sliceToCStringArray(siblings)
	defer csiblings.free()
	sibs := csiblings.cPointer()
	if siblings != nil && len(siblings) == 0 {
		// no sibling at all, as opposed to nil which lets the driver list the directory
		sibs = (**C.char)(C.malloc(C.size_t(unsafe.Sizeof(sibs))))
		*sibs = nil
		defer C.free(unsafe.Pointer(sibs))
	}
	h := C.GDALOpenEx(cname, C.uint(flags), cdrivers.cPointer(), coptions.cPointer(), sibs)
	if h == nil {
		return nil
	}
	return newDataset(h)
}
