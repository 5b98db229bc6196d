/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package guacerr provides the closed status-code taxonomy shared by every
// fallible operation in the core, along with a small parent-chaining Error
// type. The parser, transport, descriptor channel, pool, lock, identifier
// and router packages return (T, guacerr.Error) instead of a bare error;
// the configuration loader, PID file and logging setup return plain
// errors.
package guacerr

import (
	"fmt"
	"strconv"
)

// CodeError is a numeric status code, one of the closed enumeration below.
// The ordering matches the original libguac GUAC_STATUS_* enumeration so
// that numeric values sent on the wire (see the protocol "error"
// instruction) stay stable across rewrites.
type CodeError uint16

const (
	Success CodeError = iota
	NoMemory
	Closed
	Timeout
	SeeErrno
	IoError
	InvalidArgument
	InternalError
	NoSpace
	InputTooLarge
	ResultTooLarge
	PermissionDenied
	Busy
	NotAvailable
	NotSupported
	NotImplemented
	TryAgain
	ProtocolError
	NotFound
	Canceled
	OutOfRange
	Refused
	TooMany
	WouldBlock
)

var codeNames = map[CodeError]string{
	Success:          "success",
	NoMemory:         "no memory",
	Closed:           "closed",
	Timeout:          "timeout",
	SeeErrno:         "see errno",
	IoError:          "io error",
	InvalidArgument:  "invalid argument",
	InternalError:    "internal error",
	NoSpace:          "no space",
	InputTooLarge:    "input too large",
	ResultTooLarge:   "result too large",
	PermissionDenied: "permission denied",
	Busy:             "busy",
	NotAvailable:     "not available",
	NotSupported:     "not supported",
	NotImplemented:   "not implemented",
	TryAgain:         "try again",
	ProtocolError:    "protocol error",
	NotFound:         "not found",
	Canceled:         "canceled",
	OutOfRange:       "out of range",
	Refused:          "refused",
	TooMany:          "too many",
	WouldBlock:       "would block",
}

// Uint16 returns the raw numeric value of the code.
func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

// String implements fmt.Stringer, returning the decimal code value —
// matching the teacher's errors.CodeError.String (callers that want the
// human label use Message instead).
func (c CodeError) String() string {
	return strconv.Itoa(int(c))
}

// Message returns the human-readable label for the code, or "unknown
// error" if the code is not part of the closed enumeration.
func (c CodeError) Message() string {
	if m, ok := codeNames[c]; ok {
		return m
	}
	return "unknown error"
}

// Error builds a new Error value carrying this code, the code's default
// message, and the given parent errors.
func (c CodeError) Error(parents ...error) Error {
	return newErr(c, c.Message(), parents...)
}

// Errorf builds a new Error value carrying this code and a custom message
// formatted à la fmt.Sprintf, overriding the code's default message text.
// It never attaches parents; use Error(parents...) for that.
func (c CodeError) Errorf(format string, args ...interface{}) Error {
	return newErr(c, fmt.Sprintf(format, args...))
}
