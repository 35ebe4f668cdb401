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

// Package memengine is an in-process implementation of native.Engine.
//
// It keeps every thread's diagnostic handlers, config overrides and errno in plain Go
// values, serves /vsimem/ from memory and every other unprefixed path from the local
// filesystem, and provides the MEM/Memory, GOBR and GeoJSON drivers. It is used to run
// gdalbridge without libgdal, in tests in particular.
//
// GOBR is not a GDAL format. It is a small container private to this package, built
// with EncodeGOBR, that lets tests exercise file-backed read-only rasters, block
// layouts and sidecar lookups without shipping binary fixtures.
package memengine

import (
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/airbusgeo/gdalbridge/internal/vsicache"
	"github.com/airbusgeo/gdalbridge/native"
)

// Version is reported by Engine.Version
const Version = "memengine 1.0.0"

// Engine is an in-process native.Engine. The zero value is not usable, use New.
type Engine struct {
	logger *slog.Logger

	cfgmu  sync.RWMutex
	config map[string]string

	drvmu        sync.RWMutex
	initializers map[string]native.DriverInitializer
	drivers      map[string]*driver

	fsmu     sync.RWMutex
	handlers map[string]native.FilesystemHandler
	mem      *memFS
	local    *localFS

	statmu  sync.Mutex
	active  int
	leaked  int
	counter map[string]int
}

var _ native.Engine = (*Engine)(nil)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger receiving diagnostics emitted while no handler is installed
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine with no registered driver
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
		config:   make(map[string]string),
		drivers:  make(map[string]*driver),
		handlers: make(map[string]native.FilesystemHandler),
		counter:  make(map[string]int),
		local:    &localFS{},
	}
	e.mem = newMemFS()
	e.handlers[memPrefix] = e.mem
	e.initializers = map[string]native.DriverInitializer{
		"GDALRegister_MEM":   e.registerFunc(newMEMDriver),
		"RegisterOGRMEM":     e.registerFunc(newMemoryDriver),
		"GDALRegister_GOBR":  e.registerFunc(newGOBRDriver),
		"RegisterOGRGeoJSON": e.registerFunc(newGeoJSONDriver),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) registerFunc(mk func(*Engine) *driver) native.DriverInitializer {
	return native.DriverInitializerFunc(func() {
		d := mk(e)
		e.drvmu.Lock()
		defer e.drvmu.Unlock()
		if _, ok := e.drivers[d.name]; !ok {
			e.drivers[d.name] = d
		}
	})
}

// Attach returns a fresh thread. Threads are independent from one another.
func (e *Engine) Attach() native.Thread {
	e.statmu.Lock()
	e.active++
	e.statmu.Unlock()
	return &thread{engine: e}
}

func (e *Engine) Version() string {
	return Version
}

// SetConfigOption sets a global config option. An empty value removes it.
func (e *Engine) SetConfigOption(key, value string) {
	e.cfgmu.Lock()
	defer e.cfgmu.Unlock()
	if value == "" {
		delete(e.config, key)
		return
	}
	e.config[key] = value
}

// ConfigOption returns the global value of key, falling back to the environment
func (e *Engine) ConfigOption(key, def string) string {
	e.cfgmu.RLock()
	v, ok := e.config[key]
	e.cfgmu.RUnlock()
	if ok {
		return v
	}
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func (e *Engine) DriverInitializers() map[string]native.DriverInitializer {
	ret := make(map[string]native.DriverInitializer, len(e.initializers))
	for k, v := range e.initializers {
		ret[k] = v
	}
	return ret
}

func (e *Engine) Driver(name string) native.Driver {
	d := e.driver(name)
	if d == nil {
		return nil
	}
	return d
}

func (e *Engine) driver(name string) *driver {
	e.drvmu.RLock()
	defer e.drvmu.RUnlock()
	return e.drivers[name]
}

// registered returns the registered drivers sorted by name
func (e *Engine) registered() []*driver {
	e.drvmu.RLock()
	defer e.drvmu.RUnlock()
	ret := make([]*driver, 0, len(e.drivers))
	for _, d := range e.drivers {
		ret = append(ret, d)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].name < ret[j].name })
	return ret
}

func (e *Engine) DriverCount() int {
	e.drvmu.RLock()
	defer e.drvmu.RUnlock()
	return len(e.drivers)
}

func (e *Engine) FilesystemPrefixes() []string {
	e.fsmu.RLock()
	defer e.fsmu.RUnlock()
	ret := make([]string, 0, len(e.handlers))
	for p := range e.handlers {
		ret = append(ret, p)
	}
	sort.Strings(ret)
	return ret
}

func (e *Engine) InstallFilesystemHandler(prefix string, h native.FilesystemHandler) error {
	e.fsmu.Lock()
	defer e.fsmu.Unlock()
	e.handlers[prefix] = h
	return nil
}

// filesystem returns the handler with the longest prefix matching path, or the
// local filesystem
func (e *Engine) filesystem(path string) native.FilesystemHandler {
	e.fsmu.RLock()
	defer e.fsmu.RUnlock()
	best := ""
	var h native.FilesystemHandler = e.local
	for p, ph := range e.handlers {
		if strings.HasPrefix(path, p) && len(p) > len(best) {
			best = p
			h = ph
		}
	}
	return h
}

func (e *Engine) CreateCachedFile(h native.VirtualHandle, bufferSize, cacheSize int) native.VirtualHandle {
	return vsicache.New(h, bufferSize, cacheSize)
}

func (e *Engine) VSIOpen(t native.Thread, path, access string) native.VirtualHandle {
	e.count("VSIOpen")
	return e.filesystem(path).Open(t, path, access, true)
}

func (e *Engine) VSIStat(t native.Thread, path string, flags native.StatFlags) (native.StatBuf, int) {
	e.count("VSIStat")
	return e.filesystem(path).Stat(t, path, flags)
}

func (e *Engine) VSIUnlink(t native.Thread, path string) int {
	e.count("VSIUnlink")
	fs := e.filesystem(path)
	u, ok := fs.(native.Unlinker)
	if !ok {
		t.Error(native.Failure, native.NotSupported, path+": unlink not supported")
		return -1
	}
	return u.Unlink(t, path)
}

// PutFile stores data as a /vsimem/ file, replacing any previous content
func (e *Engine) PutFile(path string, data []byte) {
	e.mem.put(path, data)
}

// ReadFile returns a copy of the content of a /vsimem/ file
func (e *Engine) ReadFile(path string) ([]byte, bool) {
	return e.mem.get(path)
}

// ActiveThreads is the number of threads attached and not yet detached
func (e *Engine) ActiveThreads() int {
	e.statmu.Lock()
	defer e.statmu.Unlock()
	return e.active
}

// LeakedThreads is the number of threads that were detached with a handler still
// installed or a config override still set
func (e *Engine) LeakedThreads() int {
	e.statmu.Lock()
	defer e.statmu.Unlock()
	return e.leaked
}

// CallCount returns the number of times op was invoked on the engine or on one of the
// objects it created. op is the method name, e.g. "SetNoDataValue".
func (e *Engine) CallCount(op string) int {
	e.statmu.Lock()
	defer e.statmu.Unlock()
	return e.counter[op]
}

func (e *Engine) count(op string) {
	e.statmu.Lock()
	e.counter[op]++
	e.statmu.Unlock()
}

func (e *Engine) detached(leaked bool) {
	e.statmu.Lock()
	defer e.statmu.Unlock()
	e.active--
	if leaked {
		e.leaked++
	}
}
