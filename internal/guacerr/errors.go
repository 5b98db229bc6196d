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

package guacerr

import "strings"

// Error is the error type returned by every fallible operation in the
// core. It extends the standard error interface with code inspection and
// parent chaining, mirroring the teacher's errors.Error contract at a
// scope matched to this module's needs.
type Error interface {
	error

	// Code returns the status code carried by this error.
	Code() CodeError

	// IsCode reports whether this error's own code equals the given code.
	IsCode(code CodeError) bool

	// HasCode reports whether this error or any of its parents carry the
	// given code.
	HasCode(code CodeError) bool

	// Add appends the given errors as parents of this error, skipping nil
	// values and the error itself. Parents are kept as given, not
	// flattened.
	Add(parents ...error)

	// Parents returns the direct parent errors of this error.
	Parents() []error
}

type err struct {
	code    CodeError
	message string
	parents []error
}

func newErr(code CodeError, message string, parents ...error) Error {
	e := &err{code: code, message: message}
	e.Add(parents...)
	return e
}

// New builds an Error with an explicit code and message and no implied
// default text, used where the caller wants to attach a user-visible
// message distinct from the code's canonical label (e.g. the "error"
// instruction's short message in spec.md §7).
func New(code CodeError, message string, parents ...error) Error {
	return newErr(code, message, parents...)
}

func (e *err) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.code.Message()
}

func (e *err) Code() CodeError {
	return e.code
}

func (e *err) IsCode(code CodeError) bool {
	return e.code == code
}

func (e *err) HasCode(code CodeError) bool {
	if e.code == code {
		return true
	}
	for _, p := range e.parents {
		if pe, ok := p.(Error); ok && pe.HasCode(code) {
			return true
		}
	}
	return false
}

func (e *err) Add(parents ...error) {
	for _, p := range parents {
		if p == nil {
			continue
		}
		if pe, ok := p.(*err); ok && pe == e {
			continue // never become our own parent
		}
		e.parents = append(e.parents, p)
	}
}

func (e *err) Parents() []error {
	return e.parents
}

// Is implements compatibility with the standard errors.Is: two guacerr
// errors are equal if they carry the same code and the same message,
// compared without regard to case.
func (e *err) Is(target error) bool {
	o, ok := target.(*err)
	if !ok {
		return false
	}
	return e.code == o.code && strings.EqualFold(e.message, o.message)
}
