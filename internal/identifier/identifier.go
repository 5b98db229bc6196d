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

// Package identifier generates the 37-byte connection identifiers used
// as the worker registry's routing key (spec.md §4.C): a one-byte type
// prefix followed by a lowercase canonical UUIDv4.
package identifier

import (
	"fmt"

	"github.com/hashicorp/go-uuid"

	"github.com/sabouaram/guacd/internal/guacerr"
)

const (
	// PrefixWorker marks an identifier minted for a worker (backend
	// protocol process), the join key used by the "select" handshake.
	PrefixWorker = '$'

	// PrefixUser marks an identifier minted for an attached user/client.
	PrefixUser = '@'

	// Length is the fixed byte length of every identifier: one prefix
	// byte plus a 36-character canonical UUID.
	Length = 37
)

// Generate returns a new 37-byte identifier with the given prefix byte.
func Generate(prefix byte) (string, guacerr.Error) {
	buf, err := uuid.GenerateRandomBytes(16)
	if err != nil {
		return "", guacerr.InternalError.Errorf("generating identifier: %v", err)
	}
	buf[6] = buf[6]&0x0f | 0x40 // version 4
	buf[8] = buf[8]&0x3f | 0x80 // RFC 4122 variant
	id, err := uuid.FormatUUID(buf)
	if err != nil {
		return "", guacerr.InternalError.Errorf("generating identifier: %v", err)
	}
	return fmt.Sprintf("%c%s", prefix, id), nil
}

// IsWorker reports whether id begins with the worker prefix byte, the
// test the connection router uses to distinguish a join from a new
// session (spec.md §4.I.2).
func IsWorker(id string) bool {
	return len(id) > 0 && id[0] == PrefixWorker
}
