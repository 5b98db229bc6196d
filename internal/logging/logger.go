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

package logging

import (
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging handle threaded through every component of the
// core. Fields attach structured context (connection id, opcode, ...)
// the way logrus.Entry does, without exposing logrus types at call
// sites.
type Logger interface {
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger

	Trace(args ...interface{})
	Debug(args ...interface{})
	Info(args ...interface{})
	Warning(args ...interface{})
	Error(args ...interface{})

	// StdLogger adapts this Logger to a *log.Logger at the given level,
	// for the few standard-library and third-party APIs (e.g. http.Server
	// .ErrorLog) that require one.
	StdLogger(lvl Level) *log.Logger
}

type logger struct {
	e *logrus.Entry
}

// New builds a Logger writing to w (os.Stderr if nil) at the given
// level, in the teacher's plain-text formatter style.
func New(lvl Level, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl.logrus())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &logger{e: logrus.NewEntry(l)}
}

func (g *logger) WithField(key string, value interface{}) Logger {
	return &logger{e: g.e.WithField(key, value)}
}

func (g *logger) WithFields(fields map[string]interface{}) Logger {
	return &logger{e: g.e.WithFields(fields)}
}

func (g *logger) Trace(args ...interface{})   { g.e.Trace(args...) }
func (g *logger) Debug(args ...interface{})   { g.e.Debug(args...) }
func (g *logger) Info(args ...interface{})    { g.e.Info(args...) }
func (g *logger) Warning(args ...interface{}) { g.e.Warn(args...) }
func (g *logger) Error(args ...interface{})   { g.e.Error(args...) }

// writer adapts a Logger+Level pair to io.Writer so log.New can use it.
type writer struct {
	l   *logger
	lvl Level
}

func (w *writer) Write(p []byte) (int, error) {
	msg := string(p)
	switch w.lvl {
	case TraceLevel:
		w.l.Trace(msg)
	case DebugLevel:
		w.l.Debug(msg)
	case WarningLevel:
		w.l.Warning(msg)
	case ErrorLevel:
		w.l.Error(msg)
	default:
		w.l.Info(msg)
	}
	return len(p), nil
}

func (g *logger) StdLogger(lvl Level) *log.Logger {
	return log.New(&writer{l: g, lvl: lvl}, "", 0)
}
