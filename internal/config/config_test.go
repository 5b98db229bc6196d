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

package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/guacd/internal/config"
)

func writeTemp(dir, content string) string {
	path := filepath.Join(dir, "guacd.conf")
	Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
	return path
}

var _ = Describe("Load", func() {
	It("returns defaults when the file does not exist", func() {
		cfg, err := config.Load(filepath.Join(GinkgoT().TempDir(), "missing.conf"))
		Expect(err).To(BeNil())
		Expect(cfg).To(Equal(config.Default()))
	})

	It("parses recognized sections and keys", func() {
		path := writeTemp(GinkgoT().TempDir(), ""+
			"# a comment line\n"+
			"[server]\n"+
			"bind_host = 127.0.0.1\n"+
			"bind_port = \"4822\"\n"+
			"\n"+
			"[daemon]\n"+
			"log_level = debug\n"+
			"pid_file = /var/run/guacd.pid\n")

		cfg, err := config.Load(path)
		Expect(err).To(BeNil())
		Expect(cfg.BindHost).To(Equal("127.0.0.1"))
		Expect(cfg.BindPort).To(Equal("4822"))
		Expect(cfg.LogLevel).To(Equal("debug"))
		Expect(cfg.PIDFile).To(Equal("/var/run/guacd.pid"))
	})

	It("reports a 1-based line:column pointer for a param outside any section", func() {
		path := writeTemp(GinkgoT().TempDir(), "bind_host = 127.0.0.1\n")

		_, err := config.Load(path)
		Expect(err).NotTo(BeNil())
		pe, ok := err.(*config.ParseError)
		Expect(ok).To(BeTrue())
		Expect(pe.Line).To(Equal(1))
		Expect(pe.Error()).To(ContainSubstring("1:1:"))
	})

	It("reports a pointer at the offending column for a malformed line", func() {
		path := writeTemp(GinkgoT().TempDir(), "[server]\nbind_host @ 127.0.0.1\n")

		_, err := config.Load(path)
		Expect(err).NotTo(BeNil())
		pe, ok := err.(*config.ParseError)
		Expect(ok).To(BeTrue())
		Expect(pe.Line).To(Equal(2))
		Expect(pe.Column).To(Equal(11))
	})
})

var _ = Describe("Merge", func() {
	It("lets CLI flags override the loaded file", func() {
		cfg := config.Default()
		cfg.BindHost = "127.0.0.1"

		merged := config.Merge(cfg, config.Flags{BindHost: "10.0.0.1", LogLevel: "trace"})
		Expect(merged.BindHost).To(Equal("10.0.0.1"))
		Expect(merged.LogLevel).To(Equal("trace"))
		Expect(merged.BindPort).To(Equal(cfg.BindPort))
	})
})

var _ = Describe("Validate", func() {
	It("accepts the default record", func() {
		Expect(config.Default().Validate()).To(BeNil())
	})

	It("rejects an unrecognized log level", func() {
		cfg := config.Default()
		cfg.LogLevel = "verbose"
		Expect(cfg.Validate()).NotTo(BeNil())
	})
})
