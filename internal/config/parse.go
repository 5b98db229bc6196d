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

package config

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// ParseError is a grammar violation with a 1-based line/column pointer
// into the source buffer, per spec.md §4.J.1.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
}

const (
	maxNameLen  = 255
	maxValueLen = 8191
)

// parseBuffer runs the hand-written recursive-descent scanner spec.md
// §4.J.1 specifies over data, one line at a time, and deposits every
// recognized section/param pair into an *ini.File: ini.v1's Section/Key
// types are the structured store the rest of this package queries,
// while line/column bookkeeping stays under this package's own control
// since ini.v1's own parser does not report positions this grammar's
// shape requires.
func parseBuffer(data []byte) (*ini.File, error) {
	f := ini.Empty()
	section := ini.DefaultSection

	lines := strings.Split(string(data), "\n")
	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		lineNo := i + 1

		if i == len(lines)-1 && line == "" {
			// trailing newline (or empty file) contributes no line
			continue
		}

		sec, param, perr := parseLine(line, lineNo)
		if perr != nil {
			return nil, perr
		}

		switch {
		case sec != "":
			section = sec
			if _, err := f.NewSection(section); err != nil {
				return nil, &ParseError{Line: lineNo, Column: 1, Message: err.Error()}
			}
		case param != nil:
			if section == ini.DefaultSection {
				return nil, &ParseError{Line: lineNo, Column: 1, Message: "param outside of any section"}
			}
			if _, err := f.Section(section).NewKey(param.name, param.value); err != nil {
				return nil, &ParseError{Line: lineNo, Column: 1, Message: err.Error()}
			}
		}
	}

	return f, nil
}

type kv struct {
	name  string
	value string
}

// parseLine scans one line against:
//
//	line  ::= ws decl ws comment? EOL
//	decl  ::= section | param | ε
//
// returning either a section name, a recognized param, or both zero
// values for a blank/comment-only line.
func parseLine(line string, lineNo int) (section string, param *kv, err *ParseError) {
	col := 1
	pos := 0
	skipWS := func() {
		for pos < len(line) && (line[pos] == ' ' || line[pos] == '\t') {
			pos++
			col++
		}
	}

	skipWS()
	if pos >= len(line) || line[pos] == '#' {
		return "", nil, nil
	}

	if line[pos] == '[' {
		start := pos + 1
		end := strings.IndexByte(line[start:], ']')
		if end < 0 {
			return "", nil, &ParseError{Line: lineNo, Column: col, Message: "unterminated section header"}
		}
		name := line[start : start+end]
		if e := validateName(name); e != "" {
			return "", nil, &ParseError{Line: lineNo, Column: col + 1, Message: e}
		}
		pos = start + end + 1
		col += end + 2
		skipWS()
		return name, nil, checkTrailing(line, pos, lineNo, col)
	}

	nameStart := pos
	for pos < len(line) && isNameByte(line[pos]) {
		pos++
	}
	name := line[nameStart:pos]
	if name == "" {
		return "", nil, &ParseError{Line: lineNo, Column: col, Message: fmt.Sprintf("unexpected character %q", line[pos])}
	}
	if e := validateName(name); e != "" {
		return "", nil, &ParseError{Line: lineNo, Column: col, Message: e}
	}
	col += pos - nameStart

	skipWS()
	if pos >= len(line) || line[pos] != '=' {
		return "", nil, &ParseError{Line: lineNo, Column: col, Message: "expected '='"}
	}
	pos++
	col++
	skipWS()

	valueStart := pos
	value, newPos, e := parseValue(line, pos, lineNo, col)
	if e != nil {
		return "", nil, e
	}
	col += newPos - valueStart
	pos = newPos

	skipWS()
	return "", &kv{name: name, value: value}, checkTrailing(line, pos, lineNo, col)
}

func checkTrailing(line string, pos, lineNo, col int) *ParseError {
	for pos < len(line) {
		if line[pos] == ' ' || line[pos] == '\t' {
			pos++
			col++
			continue
		}
		if line[pos] == '#' {
			return nil
		}
		return &ParseError{Line: lineNo, Column: col, Message: fmt.Sprintf("unexpected character %q", line[pos])}
	}
	return nil
}

func parseValue(line string, pos, lineNo, col int) (string, int, *ParseError) {
	if pos < len(line) && line[pos] == '"' {
		var b strings.Builder
		pos++
		for pos < len(line) {
			c := line[pos]
			if c == '\\' && pos+1 < len(line) && (line[pos+1] == '"' || line[pos+1] == '\\') {
				b.WriteByte(line[pos+1])
				pos += 2
				continue
			}
			if c == '"' {
				pos++
				if b.Len() > maxValueLen {
					return "", 0, &ParseError{Line: lineNo, Column: col, Message: "value too long"}
				}
				return b.String(), pos, nil
			}
			b.WriteByte(c)
			pos++
		}
		return "", 0, &ParseError{Line: lineNo, Column: col, Message: "unterminated quoted value"}
	}

	start := pos
	for pos < len(line) {
		c := line[pos]
		if c == '#' || c == '"' || c == ' ' || c == '\t' {
			break
		}
		pos++
	}
	if pos == start {
		return "", 0, &ParseError{Line: lineNo, Column: col, Message: "expected a value"}
	}
	if pos-start > maxValueLen {
		return "", 0, &ParseError{Line: lineNo, Column: col, Message: "value too long"}
	}
	return line[start:pos], pos, nil
}

func isNameByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}

func validateName(name string) string {
	if len(name) == 0 || len(name) > maxNameLen {
		return "name must be 1-255 characters"
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return fmt.Sprintf("invalid character %q in name", name[i])
		}
	}
	return ""
}
