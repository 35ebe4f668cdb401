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
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/airbusgeo/gdalbridge/native"
)

// callContext captures everything the engine reports on the calling thread
// between enter and exit.
type callContext struct {
	bridge *Bridge
	thread native.Thread
	config []string
	eh     ErrorHandler

	messages []string
	failed   bool
	err      error
	forced   error
	errno    syscall.Errno
}

// enter attaches the calling goroutine to an engine thread, installs the context's
// diagnostic handler and applies the thread-local config overrides
func (b *Bridge) enter(config []string, eh ErrorHandler) *callContext {
	cc := &callContext{
		bridge: b,
		config: config,
		eh:     eh,
	}
	cc.thread = b.engine.Attach()
	cc.thread.SetErrno(0)
	cc.thread.PushErrorHandler(cc.handle)
	for _, kv := range config {
		if k, v, ok := strings.Cut(kv, "="); ok {
			cc.thread.SetConfigOption(k, v)
		}
	}
	return cc
}

// exit restores the thread state found at enter and returns the error aggregated
// during the call, or nil
func (cc *callContext) exit() error {
	cc.errno = cc.thread.Errno()
	cc.thread.PopErrorHandler()
	for _, kv := range cc.config {
		// prior values are not restored
		if k, _, ok := strings.Cut(kv, "="); ok {
			cc.thread.UnsetConfigOption(k)
		}
	}
	cc.thread.Detach()
	cc.thread = nil
	switch {
	case len(cc.messages) > 0:
		return errors.New(strings.Join(cc.messages, "\n"))
	case cc.err != nil:
		return cc.err
	default:
		return cc.forced
	}
}

// call runs fn inside a call context
func (b *Bridge) call(config []string, eh ErrorHandler, fn func(cc *callContext)) (err error) {
	cc := b.enter(config, eh)
	defer func() {
		err = cc.exit()
	}()
	fn(cc)
	return
}

// callErrno is call, additionally returning the thread's errno as it was at exit
func (b *Bridge) callErrno(config []string, eh ErrorHandler, fn func(cc *callContext)) (syscall.Errno, error) {
	cc := b.enter(config, eh)
	var err error
	func() {
		defer func() {
			err = cc.exit()
		}()
		fn(cc)
	}()
	return cc.errno, err
}

func (cc *callContext) handle(lvl native.CPLErr, code native.ErrorNum, msg string) {
	if cc.eh != nil {
		if err := cc.callErrorHandler(lvl, code, msg); err != nil {
			cc.err = combine(cc.err, err)
			cc.failed = true
		}
		return
	}
	// warnings fail the call as well
	if lvl < native.Warning {
		cc.bridge.logger.Debug(msg, "category", lvl.String(), "code", int(code))
		return
	}
	cc.messages = append(cc.messages, msg)
}

func (cc *callContext) callErrorHandler(lvl native.CPLErr, code native.ErrorNum, msg string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error handler panic: %v", r)
		}
	}()
	return cc.eh(lvl, int(code), msg)
}

func (cc *callContext) hasFailed() bool {
	return cc.failed || len(cc.messages) > 0
}

// raise emits msg as a failure. If the installed ErrLogger chose not to treat it
// as an error, the call fails with msg anyway.
func (cc *callContext) raise(msg string) {
	cc.thread.Error(native.Failure, native.AppDefined, msg)
	if !cc.hasFailed() && cc.forced == nil {
		cc.forced = errors.New(msg)
	}
}

// forceError makes sure a call known to have failed reports an error
func (cc *callContext) forceError() {
	if !cc.hasFailed() {
		cc.raise("unknown error")
	}
}

func (cc *callContext) forceCPLError(ret native.CPLErr) {
	if !cc.hasFailed() {
		cc.raise(fmt.Sprintf("unknown cpl error %d", ret))
	}
}

func (cc *callContext) forceOGRError(ret native.OGRErr) {
	if !cc.hasFailed() {
		cc.raise(fmt.Sprintf("unknown ogr error %d", ret))
	}
}

// errnoError carries the errno set by the engine alongside the diagnostic text
type errnoError struct {
	error
	errno syscall.Errno
}

func (e errnoError) Unwrap() []error {
	return []error{e.error, e.errno}
}

func withErrno(err error, errno syscall.Errno) error {
	if err == nil || errno == 0 {
		return err
	}
	return errnoError{err, errno}
}
