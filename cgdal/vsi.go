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

package cgdal

/*
#include "cgdal.h"
#include <stdlib.h>
*/
import "C"
import (
	"runtime/cgo"
	"unsafe"

	"github.com/airbusgeo/gdalbridge/native"
)

// callbacks run on whichever thread libgdal calls them from, and report
// diagnostics and errno on that thread.
func cbThread() native.Thread {
	return &thread{}
}

func fsHandler(fs C.uintptr_t) native.FilesystemHandler {
	return cgo.Handle(fs).Value().(native.FilesystemHandler)
}

func fileHandle(fh C.uintptr_t) native.VirtualHandle {
	return cgo.Handle(fh).Value().(native.VirtualHandle)
}

//export cgdalGoOpen
func cgdalGoOpen(fs C.uintptr_t, filename, access *C.char) C.uintptr_t {
	vh := fsHandler(fs).Open(cbThread(), C.GoString(filename), C.GoString(access), false)
	if vh == nil {
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(vh))
}

//export cgdalGoStat
func cgdalGoStat(fs C.uintptr_t, filename *C.char, flags C.int, size *C.longlong) C.int {
	sb, ret := fsHandler(fs).Stat(cbThread(), C.GoString(filename), native.StatFlags(flags))
	if ret != 0 {
		return C.int(ret)
	}
	*size = C.longlong(sb.Size)
	return 0
}

//export cgdalGoUnlink
func cgdalGoUnlink(fs C.uintptr_t, filename *C.char) C.int {
	ul, ok := fsHandler(fs).(native.Unlinker)
	if !ok {
		return -1
	}
	return C.int(ul.Unlink(cbThread(), C.GoString(filename)))
}

//export cgdalGoSiblingFiles
func cgdalGoSiblingFiles(fs C.uintptr_t, filename *C.char) **C.char {
	sibs := fsHandler(fs).SiblingFiles(cbThread(), C.GoString(filename))
	if sibs == nil {
		return nil
	}
	// CSLAddString never returns an empty list, libgdal expects a lone NULL
	list := (**C.char)(C.CPLCalloc(1, C.size_t(unsafe.Sizeof((*C.char)(nil)))))
	for _, s := range sibs {
		cs := C.CString(s)
		list = C.CSLAddString(list, cs)
		C.free(unsafe.Pointer(cs))
	}
	return list
}

//export cgdalGoTell
func cgdalGoTell(fh C.uintptr_t) C.ulonglong {
	return C.ulonglong(fileHandle(fh).Tell())
}

//export cgdalGoSeek
func cgdalGoSeek(fh C.uintptr_t, off C.longlong, whence C.int) C.int {
	return C.int(fileHandle(fh).Seek(int64(off), int(whence)))
}

//export cgdalGoRead
func cgdalGoRead(fh C.uintptr_t, buf unsafe.Pointer, size, count C.size_t) C.size_t {
	if size == 0 || count == 0 {
		return 0
	}
	b := unsafe.Slice((*byte)(buf), int(size*count))
	return C.size_t(fileHandle(fh).Read(cbThread(), b, int(size), int(count)))
}

//export cgdalGoReadMultiRange
func cgdalGoReadMultiRange(fh C.uintptr_t, n C.int, pdata *unsafe.Pointer, poffsets *C.ulonglong, psizes *C.size_t) C.int {
	if n <= 0 {
		return 0
	}
	data := unsafe.Slice(pdata, int(n))
	coffs := unsafe.Slice(poffsets, int(n))
	csizes := unsafe.Slice(psizes, int(n))
	bufs := make([][]byte, n)
	offsets := make([]int64, n)
	for i := range bufs {
		bufs[i] = unsafe.Slice((*byte)(data[i]), int(csizes[i]))
		offsets[i] = int64(coffs[i])
	}
	return C.int(fileHandle(fh).ReadMultiRange(cbThread(), bufs, offsets))
}

//export cgdalGoRangeStatus
func cgdalGoRangeStatus(fh C.uintptr_t, off, length C.longlong) C.int {
	return C.int(fileHandle(fh).RangeStatus(int64(off), int64(length)))
}

//export cgdalGoEof
func cgdalGoEof(fh C.uintptr_t) C.int {
	if fileHandle(fh).Eof() {
		return 1
	}
	return 0
}

//export cgdalGoWrite
func cgdalGoWrite(fh C.uintptr_t, buf unsafe.Pointer, size, count C.size_t) C.size_t {
	if size == 0 || count == 0 {
		return 0
	}
	b := unsafe.Slice((*byte)(buf), int(size*count))
	return C.size_t(fileHandle(fh).Write(cbThread(), b, int(size), int(count)))
}

//export cgdalGoFlush
func cgdalGoFlush(fh C.uintptr_t) C.int {
	return C.int(fileHandle(fh).Flush(cbThread()))
}

//export cgdalGoTruncate
func cgdalGoTruncate(fh C.uintptr_t, size C.longlong) C.int {
	return C.int(fileHandle(fh).Truncate(cbThread(), int64(size)))
}

//export cgdalGoClose
func cgdalGoClose(fh C.uintptr_t) C.int {
	h := cgo.Handle(fh)
	ret := h.Value().(native.VirtualHandle).Close()
	h.Delete()
	return C.int(ret)
}

// vsilFile is a VSILFILE opened by libgdal
type vsilFile struct {
	fp *C.VSILFILE
}

var _ native.VirtualHandle = (*vsilFile)(nil)

func (f *vsilFile) Seek(off int64, whence int) int {
	return int(C.VSIFSeekL(f.fp, C.vsi_l_offset(off), C.int(whence)))
}

func (f *vsilFile) Tell() int64 {
	return int64(C.VSIFTellL(f.fp))
}

func (f *vsilFile) Read(_ native.Thread, buf []byte, size, count int) int {
	if size == 0 || count == 0 {
		return 0
	}
	return int(C.VSIFReadL(unsafe.Pointer(&buf[0]), C.size_t(size), C.size_t(count), f.fp))
}

func (f *vsilFile) ReadMultiRange(_ native.Thread, bufs [][]byte, offsets []int64) int {
	n := len(bufs)
	if n == 0 {
		return 0
	}
	// C arrays must not hold Go pointers: ranges are read into C memory then copied
	cdata := (*unsafe.Pointer)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(unsafe.Pointer(nil)))))
	defer C.free(unsafe.Pointer(cdata))
	coffs := (*C.vsi_l_offset)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.vsi_l_offset(0)))))
	defer C.free(unsafe.Pointer(coffs))
	csizes := (*C.size_t)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.size_t(0)))))
	defer C.free(unsafe.Pointer(csizes))
	data, offs, sizes := unsafe.Slice(cdata, n), unsafe.Slice(coffs, n), unsafe.Slice(csizes, n)
	for i := range bufs {
		data[i] = C.malloc(C.size_t(len(bufs[i]) + 1))
		defer C.free(data[i])
		offs[i] = C.vsi_l_offset(offsets[i])
		sizes[i] = C.size_t(len(bufs[i]))
	}
	if ret := C.VSIFReadMultiRangeL(C.int(n), cdata, coffs, csizes, f.fp); ret != 0 {
		return int(ret)
	}
	for i := range bufs {
		copy(bufs[i], unsafe.Slice((*byte)(data[i]), len(bufs[i])))
	}
	return 0
}

func (f *vsilFile) RangeStatus(off, length int64) native.RangeStatus {
	return native.RangeStatus(C.VSIFGetRangeStatusL(f.fp, C.vsi_l_offset(off), C.vsi_l_offset(length)))
}

func (f *vsilFile) Eof() bool {
	return C.VSIFEofL(f.fp) != 0
}

func (f *vsilFile) Write(_ native.Thread, buf []byte, size, count int) int {
	if size == 0 || count == 0 {
		return 0
	}
	return int(C.VSIFWriteL(unsafe.Pointer(&buf[0]), C.size_t(size), C.size_t(count), f.fp))
}

func (f *vsilFile) Flush(_ native.Thread) int {
	return int(C.VSIFFlushL(f.fp))
}

func (f *vsilFile) Truncate(_ native.Thread, size int64) int {
	return int(C.VSIFTruncateL(f.fp, C.vsi_l_offset(size)))
}

func (f *vsilFile) Close() int {
	if f.fp == nil {
		return 0
	}
	ret := C.VSIFCloseL(f.fp)
	f.fp = nil
	return int(ret)
}
