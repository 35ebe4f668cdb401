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

package native

import "os"

// StatFlags select what a Stat call must fill and how it reports failures
type StatFlags int

// Stat flags
const (
	StatExistsFlag   StatFlags = 0x1
	StatNatureFlag   StatFlags = 0x2
	StatSizeFlag     StatFlags = 0x4
	StatSetErrorFlag StatFlags = 0x8
)

// StatBuf is the result of a successful Stat call
type StatBuf struct {
	Mode os.FileMode
	Size int64
}

// IsRegular reports whether the stat describes a regular file
func (sb StatBuf) IsRegular() bool {
	return sb.Mode.IsRegular()
}

// RangeStatus describes whether a byte range contains data
type RangeStatus int

// Range statuses
const (
	RangeStatusUnknown RangeStatus = iota
	RangeStatusData
	RangeStatusHole
)

// VirtualHandle is an open file of a virtual filesystem.
//
// Read reads size*count bytes into buf (len(buf) >= size*count) at the cursor and
// returns the number of whole elements read. ReadMultiRange fills every bufs[i]
// from offsets[i] and returns 0 on success, -1 on failure. Seek whence is one of
// io.SeekStart, io.SeekCurrent and io.SeekEnd.
type VirtualHandle interface {
	Seek(off int64, whence int) int
	Tell() int64
	Read(t Thread, buf []byte, size, count int) int
	ReadMultiRange(t Thread, bufs [][]byte, offsets []int64) int
	RangeStatus(off, length int64) RangeStatus
	Eof() bool
	Write(t Thread, buf []byte, size, count int) int
	Flush(t Thread) int
	Truncate(t Thread, size int64) int
	Close() int
}

// FilesystemHandler serves every path starting with the prefix it is installed on.
//
// Filenames are always passed in full, registered prefix included: a handler
// installed on "scheme://" is asked to open "scheme://bucket/file.tif", never
// "bucket/file.tif". SiblingFiles returns base names.
//
// Open returns nil on failure. Stat returns 0 on success, -1 on failure.
// SiblingFiles returns nil when the handler cannot tell which files live next to
// filename, in which case the engine looks for auxiliary files itself; an empty
// non-nil slice means there are none.
type FilesystemHandler interface {
	Open(t Thread, filename, access string, setError bool) VirtualHandle
	Stat(t Thread, filename string, flags StatFlags) (StatBuf, int)
	SiblingFiles(t Thread, filename string) []string
	HasOptimizedReadMultiRange(filename string) bool
}

// Unlinker is implemented by filesystem handlers that can delete files
type Unlinker interface {
	Unlink(t Thread, filename string) int
}
