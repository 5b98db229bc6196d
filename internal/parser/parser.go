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

// Package parser implements the wire instruction framer: the
// length-prefixed "<len>.<elt>,<len>.<elt>;" grammar every guacd
// instruction uses, both inbound and out. It is grounded on
// original_source/src/libguac/parser.c for the state transitions, with
// one deliberate departure spec.md §9 calls for: completed elements are
// recorded as (offset, length) views into the parser's own buffer
// instead of being NUL-terminated in place, so the buffer is never
// mutated by a read that only observes it.
package parser

import (
	"time"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/utf8x"
)

const (
	// MaxElementLength is the largest element content length, in code
	// points, an instruction may declare (GUAC_INSTRUCTION_MAX_LENGTH).
	MaxElementLength = 8191

	// MaxElements is the largest number of elements (opcode plus
	// arguments) a single instruction may contain.
	MaxElements = 128

	// bufferSize is the parser's fixed internal buffer, and so the largest
	// instruction, in bytes, the parser can assemble; a longer one fails
	// with NoMemory.
	bufferSize = 32 * 1024
)

// State is one of the four states of the instruction grammar.
type State uint8

const (
	StateLength State = iota
	StateContent
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateLength:
		return "length"
	case StateContent:
		return "content"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transport is the subset of the socket abstraction the parser needs to
// fill its buffer from the wire. internal/transport's Socket satisfies
// this without either package importing the other.
type Transport interface {
	Select(timeout time.Duration) (bool, guacerr.Error)
	Read(buf []byte) (int, guacerr.Error)
}

type element struct {
	offset int
	length int
}

// Parser holds the in-progress or completed instruction. It is not safe
// for concurrent use; callers serialize access the way the original
// serializes access to a guac_parser per connection.
type Parser struct {
	buf            []byte
	unparsedStart  int
	unparsedEnd    int
	state          State
	elements       []element
	elementContent int // remaining code points for the in-progress Content element
	elementOffset  int // buffer offset where the in-progress element's content begins
	lengthDigits   int // accumulated decimal length for the Length state
}

// New allocates a parser ready to read its first instruction.
func New() *Parser {
	p := &Parser{buf: make([]byte, bufferSize)}
	p.reset()
	return p
}

func (p *Parser) reset() {
	p.unparsedStart = 0
	p.unparsedEnd = 0
	p.state = StateLength
	p.elements = p.elements[:0]
	p.elementContent = 0
	p.elementOffset = 0
	p.lengthDigits = 0
}

// State returns the parser's current state.
func (p *Parser) State() State {
	return p.state
}

// Opcode returns the completed instruction's opcode. Only meaningful
// once State is StateComplete.
func (p *Parser) Opcode() string {
	if len(p.elements) == 0 {
		return ""
	}
	return p.elementString(p.elements[0])
}

// Args returns the completed instruction's arguments, excluding the
// opcode. Only meaningful once State is StateComplete.
func (p *Parser) Args() []string {
	if len(p.elements) <= 1 {
		return nil
	}
	args := make([]string, len(p.elements)-1)
	for i, e := range p.elements[1:] {
		args[i] = p.elementString(e)
	}
	return args
}

func (p *Parser) elementString(e element) string {
	return string(p.buf[e.offset : e.offset+e.length])
}

// Length reports the number of unparsed bytes currently buffered.
func (p *Parser) Length() int {
	return p.unparsedEnd - p.unparsedStart
}

// Shift copies up to len(dest) unparsed bytes into dest, consuming them
// from the buffer, and returns the number of bytes copied. It is used
// to hand off bytes the parser has buffered but not consumed — e.g. the
// first bytes of a protocol stream read alongside the "select"
// handshake — to whatever reads the connection next.
func (p *Parser) Shift(dest []byte) int {
	n := copy(dest, p.buf[p.unparsedStart:p.unparsedEnd])
	p.unparsedStart += n
	return n
}

// Feed appends data to the parser's buffer and runs the state machine
// over everything unparsed so far, stopping at Complete, Error, or once
// no more progress can be made without more input. It returns the
// number of bytes accepted from data; if that is less than len(data),
// the buffer is full and the caller (Read, typically) must make room —
// via Compact — before feeding the remainder.
func (p *Parser) Feed(data []byte) (int, guacerr.Error) {
	n := copy(p.buf[p.unparsedEnd:], data)
	p.unparsedEnd += n

	if err := p.assemble(); err != nil {
		return n, err
	}
	return n, nil
}

// Compact slides unparsed (and any already-recorded element) bytes down
// to the start of the buffer, reclaiming the space before them. It
// reports false if those bytes already start at offset 0 — meaning there
// is no space left to reclaim, the original's "Instruction too long"
// condition.
func (p *Parser) Compact() bool {
	offset := p.unparsedStart
	if len(p.elements) > 0 && p.elements[0].offset < offset {
		offset = p.elements[0].offset
	}
	if p.state == StateContent && p.elementOffset < offset {
		offset = p.elementOffset
	}
	if offset == 0 {
		return false
	}

	n := copy(p.buf, p.buf[offset:p.unparsedEnd])
	p.unparsedStart -= offset
	p.unparsedEnd = n

	for i := range p.elements {
		p.elements[i].offset -= offset
	}
	p.elementOffset -= offset

	return true
}

// Avail reports how much room remains to Feed before Compact is needed.
func (p *Parser) Avail() int {
	return len(p.buf) - p.unparsedEnd
}

// assemble mirrors guac_parser_append: it consumes as much of
// buf[unparsedStart:unparsedEnd] as the grammar allows, advancing
// unparsedStart, and returns once either a terminal state is reached or
// no further progress is possible with the bytes on hand.
func (p *Parser) assemble() guacerr.Error {
	for p.state != StateComplete && p.state != StateError {
		if len(p.elements) >= MaxElements && p.state != StateComplete {
			p.state = StateError
			return guacerr.ProtocolError.Errorf("instruction exceeds %d elements", MaxElements)
		}

		switch p.state {
		case StateLength:
			if !p.assembleLength() {
				return nil
			}
			if p.state == StateError {
				return guacerr.ProtocolError.Errorf("malformed element length")
			}
		case StateContent:
			if err := p.assembleContent(); err != nil {
				p.state = StateError
				return err
			} else if p.state == StateContent {
				return nil
			}
		}
	}
	return nil
}

// assembleLength consumes decimal digits up to and including the '.'
// that starts an element's content, or reports a parse error on any
// other byte. It returns false if the unparsed region ran out before a
// '.' was found.
func (p *Parser) assembleLength() bool {
	for p.unparsedStart < p.unparsedEnd {
		c := p.buf[p.unparsedStart]

		switch {
		case c >= '0' && c <= '9':
			p.lengthDigits = p.lengthDigits*10 + int(c-'0')
			p.unparsedStart++
			if p.lengthDigits > MaxElementLength {
				p.state = StateError
				return true
			}

		case c == '.':
			p.unparsedStart++
			p.elementContent = p.lengthDigits
			p.elementOffset = p.unparsedStart
			p.lengthDigits = 0
			p.state = StateContent
			return true

		default:
			p.state = StateError
			return true
		}
	}
	return false
}

// assembleContent consumes the element's declared number of code
// points followed by its ',' or ';' terminator, recording the finished
// element as an (offset, length) pair. It returns nil and leaves the
// state at StateContent if the unparsed region ran out mid-element.
func (p *Parser) assembleContent() guacerr.Error {
	for p.unparsedStart < p.unparsedEnd {
		c := p.buf[p.unparsedStart]

		if p.elementContent > 0 {
			size := utf8x.CharSize(c)
			if p.unparsedStart+size > p.unparsedEnd {
				return nil
			}
			p.unparsedStart += size
			p.elementContent--
			continue
		}

		// elementContent == 0: this byte is the terminator.
		p.elements = append(p.elements, element{
			offset: p.elementOffset,
			length: p.unparsedStart - p.elementOffset,
		})
		p.unparsedStart++

		switch c {
		case ';':
			p.state = StateComplete
		case ',':
			p.state = StateLength
		default:
			return guacerr.ProtocolError.Errorf("expected ',' or ';', got %q", c)
		}
		return nil
	}
	return nil
}

// Read blocks, using transport, until a complete instruction has been
// parsed, or returns an error (Closed on EOF, Timeout on a Select
// timeout, ProtocolError on malformed input, NoMemory if an instruction
// overflows the buffer with nowhere left to compact). A fresh Read call
// following a completed instruction resets the parser to begin the next
// one, per the original guac_parser_read contract.
func (p *Parser) Read(transport Transport, timeout time.Duration) guacerr.Error {
	if p.state == StateComplete {
		// Start the next instruction, keeping any bytes already buffered
		// past the previous one.
		start, end := p.unparsedStart, p.unparsedEnd
		p.reset()
		p.unparsedStart, p.unparsedEnd = start, end
	}

	for p.state != StateComplete && p.state != StateError {
		if p.Length() > 0 {
			if err := p.assemble(); err != nil {
				return err
			}
			if p.state == StateComplete || p.state == StateError {
				break
			}
		}

		if p.Avail() == 0 {
			if !p.Compact() {
				return guacerr.NoMemory.Errorf("instruction too long")
			}
			continue
		}

		ready, err := transport.Select(timeout)
		if err != nil {
			return err
		}
		if !ready {
			return guacerr.Timeout.Errorf("timed out waiting for instruction")
		}

		n, err := transport.Read(p.buf[p.unparsedEnd:])
		if err != nil {
			return err
		}
		if n == 0 {
			return guacerr.Closed.Errorf("end of stream reached while reading instruction")
		}
		p.unparsedEnd += n
	}

	if p.state == StateError {
		return guacerr.ProtocolError.Errorf("instruction parse error")
	}
	return nil
}

// Expect reads the next instruction and validates that its opcode
// matches the one expected — the "select" handshake's building block.
func (p *Parser) Expect(transport Transport, timeout time.Duration, opcode string) guacerr.Error {
	if err := p.Read(transport, timeout); err != nil {
		return err
	}
	if p.Opcode() != opcode {
		return guacerr.ProtocolError.Errorf("expected opcode %q, got %q", opcode, p.Opcode())
	}
	return nil
}
