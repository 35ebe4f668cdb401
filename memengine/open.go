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
	"path"
	"strings"
	"syscall"

	"github.com/airbusgeo/gdalbridge/native"
	"github.com/fxamacker/cbor/v2"
)

const headerPeekSize = 1024

// Open identifies name with the registered drivers allowed by flags and drivers, and
// opens it with the first one that recognizes it.
func (e *Engine) Open(t native.Thread, name string, flags native.OpenFlags, drivers, options, siblings []string) native.Dataset {
	e.count("Open")
	verbose := flags&native.OfVerboseError != 0
	if name == "" {
		if verbose {
			failf(t, native.IllegalArg, "empty dataset name")
		}
		return nil
	}
	fsys := e.filesystem(name)
	before := emitted(t)
	fh := fsys.Open(t, name, "rb", verbose)
	if fh == nil {
		if verbose && emitted(t) == before {
			if _, ret := fsys.Stat(t, name, native.StatExistsFlag); ret != 0 {
				failf(t, native.OpenFailed, "%s: %s", name, strerror(syscall.ENOENT))
			} else {
				failf(t, native.OpenFailed, "`%s' not recognized as a supported file format.", name)
			}
		}
		return nil
	}
	oi := &openInfo{
		name:     name,
		fs:       fsys,
		fh:       fh,
		update:   flags&native.OfUpdate != 0,
		options:  options,
		siblings: siblings,
	}
	hdr := make([]byte, headerPeekSize)
	n := fh.Read(t, hdr, 1, len(hdr))
	if n < len(hdr) && !fh.Eof() {
		fh.Close()
		if verbose && emitted(t) == before {
			failf(t, native.FileIO, "%s: failed to read header", name)
		}
		return nil
	}
	oi.header = hdr[:n]

	for _, d := range e.candidates(flags, drivers) {
		if d.identify == nil || !d.identify(oi) {
			continue
		}
		if oi.update && !d.update {
			fh.Close()
			failf(t, native.NotSupported, "%s driver does not support update access to existing datasets.", d.name)
			return nil
		}
		d.validateOptions(t, "open", d.openOptions, options)
		ds := d.open(t, oi)
		if ds == nil {
			fh.Close()
			return nil
		}
		e.loadAux(t, oi, ds)
		return ds
	}
	fh.Close()
	if verbose {
		failf(t, native.OpenFailed, "`%s' not recognized as a supported file format.", name)
	}
	return nil
}

func (e *Engine) candidates(flags native.OpenFlags, allowed []string) []*driver {
	wantRaster := flags&native.OfRaster != 0
	wantVector := flags&native.OfVector != 0
	var ret []*driver
	for _, d := range e.registered() {
		if (wantRaster || wantVector) && !(wantRaster && d.raster) && !(wantVector && d.vector) {
			continue
		}
		if len(allowed) > 0 {
			found := false
			for _, a := range allowed {
				if strings.EqualFold(a, d.name) {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		ret = append(ret, d)
	}
	return ret
}

// loadAux merges the metadata of the ".aux.cbor" sidecar of oi into ds. The sidecar is
// only looked up when the sibling list mentions it, or when no sibling list is known.
func (e *Engine) loadAux(t native.Thread, oi *openInfo, ds *memDataset) {
	aux := oi.name + ".aux.cbor"
	siblings := oi.siblings
	if siblings == nil {
		siblings = oi.fs.SiblingFiles(t, oi.name)
	}
	if siblings != nil {
		listed := false
		for _, s := range siblings {
			if s == path.Base(aux) {
				listed = true
				break
			}
		}
		if !listed {
			return
		}
	}
	errno := t.Errno()
	defer t.SetErrno(errno)
	e.count("VSIStat")
	st, ret := oi.fs.Stat(t, aux, native.StatExistsFlag|native.StatSizeFlag)
	if ret != 0 {
		return
	}
	fh := oi.fs.Open(t, aux, "rb", false)
	if fh == nil {
		return
	}
	defer fh.Close()
	data := make([]byte, st.Size)
	if fh.Read(t, data, 1, len(data)) != len(data) {
		warnf(t, native.FileIO, "%s: failed to read auxiliary file", aux)
		return
	}
	var md map[string]map[string]string
	if err := cbor.Unmarshal(data, &md); err != nil {
		warnf(t, native.AppDefined, "%s: ignoring corrupt auxiliary file: %v", aux, err)
		return
	}
	for domain, items := range md {
		for k, v := range items {
			ds.setItem(k, v, domain)
		}
	}
}
