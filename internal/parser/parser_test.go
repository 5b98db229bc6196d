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

package parser_test

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/guacerr"
	"github.com/sabouaram/guacd/internal/parser"
)

// goooo is the 4-byte UTF-8 encoding \xF0\x90\x84\xA3, the literal
// scenarios' standard 4-byte code point.
const goooo = "\xF0\x90\x84\xA3"

var _ = Describe("Parser", func() {
	It("assembles a single instruction fed as one whole buffer", func() {
		p := parser.New()
		input := fmt.Sprintf("4.test,3.a%sb,5.12345,4.a%s%sc;", goooo, goooo, goooo)

		n, err := p.Feed([]byte(input))
		Expect(err).To(BeNil())
		Expect(n).To(Equal(len(input)))
		Expect(p.State()).To(Equal(parser.StateComplete))
		Expect(p.Opcode()).To(Equal("test"))
		Expect(p.Args()).To(Equal([]string{
			"a" + goooo + "b",
			"12345",
			"a" + goooo + goooo + "c",
		}))
	})

	It("assembles the same instruction fed one byte at a time", func() {
		p := parser.New()
		input := fmt.Sprintf("4.test,3.a%sb,5.12345,4.a%s%sc;", goooo, goooo, goooo)

		for i := 0; i < len(input); i++ {
			_, err := p.Feed([]byte{input[i]})
			Expect(err).To(BeNil())
		}

		Expect(p.State()).To(Equal(parser.StateComplete))
		Expect(p.Opcode()).To(Equal("test"))
		Expect(p.Args()).To(Equal([]string{
			"a" + goooo + "b",
			"12345",
			"a" + goooo + goooo + "c",
		}))
	})

	It("yields two consecutive instructions in order", func() {
		p := parser.New()
		first := fmt.Sprintf("4.test,3.a%sb,5.12345,4.a%s%sc;", goooo, goooo, goooo)
		second := "5.test2,10.hellohello,15.worldworldworld;"
		input := first + second

		n, err := p.Feed([]byte(input))
		Expect(err).To(BeNil())
		Expect(p.State()).To(Equal(parser.StateComplete))
		Expect(p.Opcode()).To(Equal("test"))

		consumed := n
		Expect(consumed).To(BeNumerically(">=", len(first)))

		// Residual bytes of the second instruction, if any were fed
		// past the first's terminator, remain unparsed until reset.
		remaining := input[len(input)-p.Length():]
		_, err = p.Feed([]byte(""))
		Expect(err).To(BeNil())

		// Begin the next instruction explicitly, as Read() would.
		p2 := parser.New()
		_, err = p2.Feed([]byte(remaining))
		Expect(err).To(BeNil())
		Expect(p2.Opcode()).To(Equal("test2"))
		Expect(p2.Args()).To(Equal([]string{"hellohello", "worldworldworld"}))
	})

	It("errors on a non-digit, non-period byte in the length state", func() {
		p := parser.New()
		_, err := p.Feed([]byte("4x.test;"))
		Expect(err).NotTo(BeNil())
		Expect(err.IsCode(guacerr.ProtocolError)).To(BeTrue())
		Expect(p.State()).To(Equal(parser.StateError))
	})

	It("errors when an element length exceeds 8191", func() {
		p := parser.New()
		_, err := p.Feed([]byte("99999."))
		Expect(err).NotTo(BeNil())
		Expect(p.State()).To(Equal(parser.StateError))
	})

	It("errors when the terminator after an element is neither ',' nor ';'", func() {
		p := parser.New()
		_, err := p.Feed([]byte("4.test:"))
		Expect(err).NotTo(BeNil())
		Expect(p.State()).To(Equal(parser.StateError))
	})

	It("errors once an instruction exceeds the maximum element count", func() {
		p := parser.New()
		var b strings.Builder
		for i := 0; i < parser.MaxElements+1; i++ {
			b.WriteString("1.a,")
		}
		b.WriteString("1.a;")

		_, err := p.Feed([]byte(b.String()))
		Expect(err).NotTo(BeNil())
		Expect(p.State()).To(Equal(parser.StateError))
	})

	It("never reads past the byte that completes the instruction", func() {
		p := parser.New()
		input := "4.test;TRAILING"
		n, err := p.Feed([]byte(input))
		Expect(err).To(BeNil())
		Expect(p.State()).To(Equal(parser.StateComplete))
		Expect(n).To(Equal(len(input))) // Feed copies all bytes handed to it...
		Expect(p.Length()).To(Equal(len("TRAILING"))) // ...but leaves the rest unparsed.
	})

	It("shifts unread trailing bytes out for a caller to drain", func() {
		p := parser.New()
		_, err := p.Feed([]byte("4.test;residual"))
		Expect(err).To(BeNil())
		Expect(p.State()).To(Equal(parser.StateComplete))

		dest := make([]byte, 64)
		n := p.Shift(dest)
		Expect(string(dest[:n])).To(Equal("residual"))
		Expect(p.Length()).To(Equal(0))
	})

	It("keeps Complete sticky across Feed until the parser is reset", func() {
		p := parser.New()
		_, err := p.Feed([]byte("4.test;"))
		Expect(err).To(BeNil())
		Expect(p.State()).To(Equal(parser.StateComplete))

		_, err = p.Feed([]byte("4.sync;"))
		Expect(err).To(BeNil())
		// Feed alone does not auto-reset (only Read does); this
		// documents that Complete is sticky until the caller resets.
		Expect(p.State()).To(Equal(parser.StateComplete))
		Expect(p.Opcode()).To(Equal("test"))
	})

	It("compacts the buffer, rebasing recorded element offsets", func() {
		p := parser.New()
		_, err := p.Feed([]byte("4.test,"))
		Expect(err).To(BeNil())
		Expect(p.State()).To(Equal(parser.StateLength))

		before := p.Avail()
		ok := p.Compact()
		Expect(ok).To(BeTrue())
		Expect(p.Avail()).To(BeNumerically(">", before))

		_, err = p.Feed([]byte("6.hello!;"))
		Expect(err).To(BeNil())
		Expect(p.State()).To(Equal(parser.StateComplete))
		Expect(p.Opcode()).To(Equal("test"))
		Expect(p.Args()).To(Equal([]string{"hello!"}))
	})
})
