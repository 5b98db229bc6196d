/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

package router

import "github.com/sabouaram/guacd/internal/guacerr"

// Worker is the handle spec.md calls a "worker handle": the backend
// protocol process's descriptor-channel fd, plus a way to block until it
// exits. It mirrors guacd_proc in the original, minus the pthread/PID
// fields a Go process doesn't need.
type Worker struct {
	// ID is the connection identifier this worker owns, the registry key.
	ID string

	// FDSocket is the UNIX-domain socket descriptor used to hand new
	// client descriptors to the worker via fdpass.
	FDSocket int

	// Wait blocks until the worker has terminated.
	Wait func()
}

// SpawnFunc is the opaque worker-spawning factory spec.md §4.I.3 treats
// the router as a caller of, never an implementer of: "spawn(protocol)
// -> Worker | error".
type SpawnFunc func(protocol string) (*Worker, guacerr.Error)
