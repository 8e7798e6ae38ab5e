// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"
)

// last resort channel, used when a data inconsistency stops the store
var log *logger.L

// Initialise - setup the panic log channel
func Initialise() error {
	if nil != log {
		return ErrAlreadyInitialised
	}
	log = logger.New("PANIC")
	if nil == log {
		return ErrInvalidLoggerChannel
	}
	return nil
}

// Finalise - flush any data
func Finalise() {
	if nil != log {
		log.Flush()
	}
}

// Criticalf - log with the caller's position like fmt.Sprintf()
func Criticalf(format string, arguments ...interface{}) {
	internalCriticalf(1, format, arguments...)
}

// Panicf - log with the caller's position then panic
func Panicf(format string, arguments ...interface{}) {
	internalCriticalf(1, format, arguments...)
	Panic("abort, see last messages in log file")
}

// Panic - final panic
func Panic(message string) {
	internalCriticalf(-1, "%s", message)
	time.Sleep(100 * time.Millisecond) // to allow logging output
	panic(message)
}

// PanicIfError - panic only for a non-nil error
func PanicIfError(message string, err error) {
	if nil == err {
		return
	}
	s := fmt.Sprintf("%s failed with error: %v", message, err)
	internalCriticalf(1, "%s", s)
	time.Sleep(100 * time.Millisecond) // to allow logging output
	panic(s)
}

// a negative depth omits the position
func internalCriticalf(depth int, format string, arguments ...interface{}) {
	if depth >= 0 {
		if _, file, line, ok := runtime.Caller(depth + 1); ok {
			a := make([]interface{}, 2, 2+len(arguments))
			a[0] = file
			a[1] = line
			format = "(%q:%d) " + format
			arguments = append(a, arguments...)
		}
	}

	if nil == log {
		fmt.Printf("*** "+format+"\n", arguments...)
		return
	}
	log.Criticalf(format, arguments...)
	log.Flush() // make sure log file is saved
}
