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

//#include <stdlib.h>
import "C"
import "unsafe"

// cIntArray copies in into C memory owned by the caller. It returns nil for an empty slice.
func cIntArray(in []int) *C.int {
	if len(in) == 0 {
		return nil
	}
	ret := (*C.int)(C.malloc(C.size_t(len(in)) * C.size_t(unsafe.Sizeof(C.int(0)))))
	arr := unsafe.Slice(ret, len(in))
	for i := range in {
		arr[i] = C.int(in[i])
	}
	return ret
}

// cStringArray is a NULL terminated list of C strings
type cStringArray []*C.char

func (ca cStringArray) free() {
	for _, str := range ca {
		C.free(unsafe.Pointer(str))
	}
}

func (ca cStringArray) cPointer() **C.char {
	if len(ca) <= 1 { //nil terminated, must be at least len==2 to be not empty
		return nil
	}
	return (**C.char)(unsafe.Pointer(&ca[0]))
}

func sliceToCStringArray(in []string) cStringArray {
	if len(in) > 0 {
		arr := make([]*C.char, len(in)+1)
		for i := range in {
			arr[i] = C.CString(in[i])
		}
		arr[len(in)] = nil
		return arr
	}
	return nil
}

// cStringArrayToSlice copies a NULL terminated list. A nil list gives a nil slice.
func cStringArrayToSlice(in **C.char) []string {
	if in == nil {
		return nil
	}
	ret := []string{}
	for p := in; *p != nil; p = (**C.char)(unsafe.Add(unsafe.Pointer(p), unsafe.Sizeof(p))) {
		ret = append(ret, C.GoString(*p))
	}
	return ret
}
