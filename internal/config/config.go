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

// Package config loads the daemon's configuration per spec.md §4.J: an
// INI-like file merged with CLI flags, producing an immutable record.
// Grammar conformance and 1-based line/column error pointers are hand
// rolled (parse.go); gopkg.in/ini.v1's File/Section/Key types hold the
// recognized data once a line is accepted, the way the teacher's
// httpserver/config.go holds its ServerConfig fields.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sabouaram/guacd/internal/logging"
)

// Default listening address/port, matching guacd's own historical
// defaults (0.0.0.0:4822).
const (
	DefaultBindHost = "0.0.0.0"
	DefaultBindPort = "4822"
)

// Config is the immutable record spec.md §6.3 describes: CLI flags take
// precedence over the config file, and the file is entirely optional.
type Config struct {
	BindHost string `validate:"required,hostname_rfc1123|ip"`
	BindPort string `validate:"required,numeric"`

	PIDFile string `validate:"omitempty,filepath"`

	LogLevel string `validate:"required,oneof=trace debug info warning error"`

	CertFile string `validate:"omitempty,filepath"`
	KeyFile  string `validate:"omitempty,filepath"`

	// MaxWorkers bounds concurrently *spawned* connections (spec.md §5);
	// not a recognized file or CLI option, fixed to a sane default
	// until a future option is added for it.
	MaxWorkers int
}

// Level returns the parsed log_level, defaulting to InfoLevel for a
// blank or malformed value (LogLevel is validated separately, so this
// only matters before validation runs).
func (c Config) Level() logging.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Default returns the record used when no config file is present and no
// CLI flags are given, per spec.md §6.3's "missing file is not an error".
func Default() Config {
	return Config{
		BindHost:   DefaultBindHost,
		BindPort:   DefaultBindPort,
		LogLevel:   logging.InfoLevel.String(),
		MaxWorkers: 64,
	}
}

// Validate checks the record against its struct tags, following the
// teacher's httpserver/config.go ServerConfig.Validate pattern: wrap
// every failing field into one aggregate error.
func (c Config) Validate() error {
	v := validator.New()
	err := v.Struct(c)
	if err == nil {
		return nil
	}

	if _, ok := err.(*validator.InvalidValidationError); ok {
		return err
	}

	var msgs []string
	for _, e := range err.(validator.ValidationErrors) {
		msgs = append(msgs, fmt.Sprintf("field %q fails constraint %q", e.Field(), e.ActualTag()))
	}
	return fmt.Errorf("config validation: %v", msgs)
}
