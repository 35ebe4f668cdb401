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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"syscall"

	"github.com/airbusgeo/gdalbridge/native"
)

type thread struct {
	engine   *Engine
	handlers []native.ErrorHandler
	config   map[string]string
	errno    syscall.Errno
	emitted  int
	detached bool
}

func (t *thread) PushErrorHandler(h native.ErrorHandler) {
	t.handlers = append(t.handlers, h)
}

func (t *thread) PopErrorHandler() {
	if len(t.handlers) > 0 {
		t.handlers = t.handlers[:len(t.handlers)-1]
	}
}

func (t *thread) Error(lvl native.CPLErr, code native.ErrorNum, msg string) {
	t.emitted++
	if n := len(t.handlers); n > 0 {
		t.handlers[n-1](lvl, code, msg)
		return
	}
	t.engine.logger.Log(context.Background(), slogLevel(lvl), msg, "code", int(code))
}

func slogLevel(lvl native.CPLErr) slog.Level {
	switch lvl {
	case native.None, native.Debug:
		return slog.LevelDebug
	case native.Warning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// debugEnabled reports whether CPL_DEBUG enables category
func (t *thread) debugEnabled(category string) bool {
	v := t.ConfigOption("CPL_DEBUG", "")
	switch strings.ToUpper(v) {
	case "", "OFF", "NO", "FALSE", "0":
		return false
	case "ON", "YES", "TRUE", "1":
		return true
	}
	return strings.EqualFold(v, category)
}

func (t *thread) Debug(category, msg string) {
	if !t.debugEnabled(category) {
		return
	}
	t.Error(native.Debug, native.NoError, category+": "+msg)
}

func (t *thread) SetConfigOption(key, value string) {
	if t.config == nil {
		t.config = make(map[string]string)
	}
	t.config[key] = value
}

func (t *thread) UnsetConfigOption(key string) {
	delete(t.config, key)
}

func (t *thread) ConfigOption(key, def string) string {
	if v, ok := t.config[key]; ok {
		return v
	}
	return t.engine.ConfigOption(key, def)
}

func (t *thread) SetErrno(errno syscall.Errno) {
	t.errno = errno
}

func (t *thread) Errno() syscall.Errno {
	return t.errno
}

func (t *thread) Detach() {
	if t.detached {
		return
	}
	t.detached = true
	t.engine.detached(len(t.handlers) > 0 || len(t.config) > 0)
}

func failf(t native.Thread, code native.ErrorNum, format string, args ...interface{}) {
	t.Error(native.Failure, code, fmt.Sprintf(format, args...))
}

func warnf(t native.Thread, code native.ErrorNum, format string, args ...interface{}) {
	t.Error(native.Warning, code, fmt.Sprintf(format, args...))
}

func debugf(t native.Thread, category, format string, args ...interface{}) {
	t.Debug(category, fmt.Sprintf(format, args...))
}

// emitted returns the number of diagnostics emitted so far on t, or -1 if t was
// not created by this package
func emitted(t native.Thread) int {
	if mt, ok := t.(*thread); ok {
		return mt.emitted
	}
	return -1
}

// configBool parses a YES/NO style config value
func configBool(t native.Thread, key string, def bool) bool {
	v := t.ConfigOption(key, "")
	switch strings.ToUpper(v) {
	case "":
		return def
	case "YES", "ON", "TRUE", "1":
		return true
	default:
		return false
	}
}
