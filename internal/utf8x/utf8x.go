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

// Package utf8x provides the pure, total, restartable UTF-8 primitives
// the instruction parser needs to count and frame elements by code
// point rather than by byte (spec.md §4.D). The code-point boundary
// math is stdlib unicode/utf8 (no example in the retrieval pack ships a
// third-party UTF-8 codec — see DESIGN.md); the framing behavior around
// malformed input (forward progress on a bad lead byte, ASCII '?'
// fallback above U+1FFFFF) is this package's own, matching the original
// guac_utf8_* contract.
package utf8x

import "unicode/utf8"

// MaxCodepoint is the protocol's highest code point; Write replaces
// anything above it with ASCII '?'. Write encodes through unicode/utf8,
// so surrogates and code points from U+110000 up to MaxCodepoint are
// also written as '?'.
const MaxCodepoint = 0x1FFFFF

// CharSize returns the byte length implied by a UTF-8 lead byte, 1..4.
// Invalid lead bytes return 1 so callers can always make forward
// progress on malformed input.
func CharSize(lead byte) int {
	switch {
	case lead&0x80 == 0x00:
		return 1
	case lead&0xE0 == 0xC0:
		return 2
	case lead&0xF0 == 0xE0:
		return 3
	case lead&0xF8 == 0xF0:
		return 4
	default:
		return 1
	}
}

// StrLen counts the number of UTF-8 code points in s by summing
// CharSize across the string (s need not be null-terminated; the whole
// slice is consumed).
func StrLen(s []byte) int {
	n := 0
	for i := 0; i < len(s); {
		i += CharSize(s[i])
		n++
	}
	return n
}

// Write encodes one code point into buf, returning the number of bytes
// written, or 0 if buf is too small to hold it. Code points above
// U+10FFFF (including those above MaxCodepoint) and surrogates are
// encoded as the ASCII '?' fallback.
func Write(r rune, buf []byte) int {
	if r < 0 || r > MaxCodepoint {
		r = '?'
	}

	n := utf8.RuneLen(r)
	if n <= 0 {
		n = 1
		r = '?'
	}
	if len(buf) < n {
		return 0
	}

	return utf8.EncodeRune(buf, r)
}

// Read decodes one code point from buf, returning the code point and
// the number of bytes consumed. It returns (0, 0) if buf is too short
// to hold the full sequence implied by its lead byte. An invalid lead
// byte yields the replacement character U+FFFD and consumes exactly 1
// byte, matching the original guac_utf8_read contract.
func Read(buf []byte) (rune, int) {
	if len(buf) == 0 {
		return 0, 0
	}

	need := CharSize(buf[0])
	if need > 1 && len(buf) < need {
		return 0, 0
	}

	r, size := utf8.DecodeRune(buf[:need])
	if r == utf8.RuneError && size <= 1 {
		return utf8.RuneError, 1
	}

	return r, size
}
