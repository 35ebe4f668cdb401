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
	"strings"

	"github.com/airbusgeo/gdalbridge/native"
)

// majorObject is the part of datasets and bands that carries a description and metadata
type majorObject struct {
	bridge *Bridge
	mo     native.MajorObject
}

const nullHandleMsg = "invalid handle: object was closed or never opened"

// Metadata returns the value of key in the default (or Domain) metadata domain,
// or "" if it is not set
func (mo majorObject) Metadata(key string, opts ...MetadataOption) string {
	mopts := metadataOpts{}
	for _, opt := range opts {
		opt.setMetadataOpt(&mopts)
	}
	if mo.mo == nil {
		return ""
	}
	return mo.mo.MetadataItem(key, mopts.domain)
}

// Metadatas returns all the key/value pairs of a metadata domain, nil if there are none
func (mo majorObject) Metadatas(opts ...MetadataOption) map[string]string {
	mopts := metadataOpts{}
	for _, opt := range opts {
		opt.setMetadataOpt(&mopts)
	}
	if mo.mo == nil {
		return nil
	}
	strslice := mo.mo.Metadata(mopts.domain)
	if len(strslice) == 0 {
		return nil
	}
	ret := make(map[string]string)
	for _, str := range strslice {
		k, v, _ := strings.Cut(str, "=")
		ret[k] = v
	}
	return ret
}

// SetMetadata sets key to value in the default (or Domain) metadata domain
func (mo majorObject) SetMetadata(key, value string, opts ...MetadataOption) error {
	mopts := metadataOpts{}
	for _, opt := range opts {
		opt.setMetadataOpt(&mopts)
	}
	return mo.bridge.call(nil, mopts.errorHandler, func(cc *callContext) {
		if mo.mo == nil {
			cc.raise(nullHandleMsg)
			return
		}
		if ret := mo.mo.SetMetadataItem(cc.thread, key, value, mopts.domain); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// ClearMetadata removes every key of the default (or Domain) metadata domain
func (mo majorObject) ClearMetadata(opts ...MetadataOption) error {
	mopts := metadataOpts{}
	for _, opt := range opts {
		opt.setMetadataOpt(&mopts)
	}
	return mo.bridge.call(nil, mopts.errorHandler, func(cc *callContext) {
		if mo.mo == nil {
			cc.raise(nullHandleMsg)
			return
		}
		if ret := mo.mo.SetMetadata(cc.thread, nil, mopts.domain); ret != native.None {
			cc.forceCPLError(ret)
		}
	})
}

// MetadataDomains returns the list of metadata domains of the object
func (mo majorObject) MetadataDomains() []string {
	if mo.mo == nil {
		return nil
	}
	return mo.mo.MetadataDomains()
}

// Description returns the description/name
func (mo majorObject) Description() string {
	if mo.mo == nil {
		return ""
	}
	return mo.mo.Description()
}

// SetDescription sets the description
func (mo majorObject) SetDescription(description string, opts ...SetDescriptionOption) error {
	sdo := setDescriptionOpts{}
	for _, opt := range opts {
		opt.setDescriptionOpt(&sdo)
	}
	return mo.bridge.call(nil, sdo.errorHandler, func(cc *callContext) {
		if mo.mo == nil {
			cc.raise(nullHandleMsg)
			return
		}
		mo.mo.SetDescription(cc.thread, description)
	})
}
