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
	"os"
)

// Load reads path and returns the recognized options layered over
// Default(). A missing file is not an error, per spec.md §6.3; any
// other read failure, or a grammar violation, is returned as-is (a
// *ParseError in the latter case, ready for "line:column: message").
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	f, perr := parseBuffer(data)
	if perr != nil {
		return cfg, perr
	}

	if sec := f.Section("server"); sec != nil {
		if k, e := sec.GetKey("bind_host"); e == nil {
			cfg.BindHost = k.String()
		}
		if k, e := sec.GetKey("bind_port"); e == nil {
			cfg.BindPort = k.String()
		}
	}
	if sec := f.Section("daemon"); sec != nil {
		if k, e := sec.GetKey("pid_file"); e == nil {
			cfg.PIDFile = k.String()
		}
		if k, e := sec.GetKey("log_level"); e == nil {
			cfg.LogLevel = k.String()
		}
	}
	if sec := f.Section("ssl"); sec != nil {
		if k, e := sec.GetKey("server_certificate"); e == nil {
			cfg.CertFile = k.String()
		}
		if k, e := sec.GetKey("server_key"); e == nil {
			cfg.KeyFile = k.String()
		}
	}

	return cfg, nil
}

// Flags is the set of CLI overrides spec.md §6.3 names; a zero-value
// field means "not given on the command line" and leaves the
// file/default value untouched. Foreground is deliberately absent here:
// unlike the other options it is tri-state (not-given / explicitly
// foreground / explicitly background), which this zero-value-means-
// absent convention can't express, so cmd/guacd handles it directly
// against cobra's Flags().Changed instead of through Merge.
type Flags struct {
	BindHost string
	BindPort string
	PIDFile  string
	LogLevel string
	CertFile string
	KeyFile  string
}

// Merge layers f over cfg, CLI flags winning per spec.md §6.3's "CLI
// flags override the file".
func Merge(cfg Config, f Flags) Config {
	if f.BindHost != "" {
		cfg.BindHost = f.BindHost
	}
	if f.BindPort != "" {
		cfg.BindPort = f.BindPort
	}
	if f.PIDFile != "" {
		cfg.PIDFile = f.PIDFile
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.CertFile != "" {
		cfg.CertFile = f.CertFile
	}
	if f.KeyFile != "" {
		cfg.KeyFile = f.KeyFile
	}
	return cfg
}
