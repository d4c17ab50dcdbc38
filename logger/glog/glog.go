// Go support for leveled logs, analogous to https://code.google.com/p/google-glog/
//
// Copyright 2013 Google Inc. All Rights Reserved.
// Modifications copyright 2017 ETC Dev Team. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package glog implements leveled, Google-glog-style logging on top of the
// standard library. Every log statement is written at a numeric verbosity
// level; V(n) reports whether level n is currently enabled, so call sites
// read glog.V(logger.Debug).Infof("...") and pay almost nothing when the
// level is disabled.
//
// This is a trimmed reimplementation: it keeps the severity/verbosity/
// vmodule machinery of the original but drops on-disk log rotation and
// compaction, since a long-running daemon process is expected to hand that
// off to an external tool (logrotate, journald) rather than manage it
// in-process.
package glog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultVerbosity establishes the default verbosity Level for to-file
// (debug) logging.
var DefaultVerbosity = 5

// DefaultDisplay establishes the default verbosity Level for display
// (stderr) logging.
var DefaultDisplay = 3

// DefaultToStdErr establishes the default bool toggling whether logging
// should be directed ONLY to stderr.
var DefaultToStdErr = false

// DefaultAlsoToStdErr establishes the default bool toggling whether logging
// should be written to BOTH file and stderr.
var DefaultAlsoToStdErr = false

// severity identifies the sort of log: info, warning etc.
// Severity is determined by the method called upon the receiver Verbose,
// eg. glog.V(logger.Debug).Warnf("this log's severity is %v", warningLog)
type severity int32

const (
	infoLog severity = iota
	warningLog
	errorLog
	fatalLog
	numSeverity = 4
)

const severityChar = "IWEF"

const severityColorReset = "\x1b[0m"

var severityColor = []string{"\x1b[2m", "\x1b[33m", "\x1b[31m", "\x1b[35m"} // info:dim warn:yellow error:red fatal:magenta

// SetV sets the global verbosity level.
func SetV(v int) { logging.verbosity.set(Level(v)) }

// SetD sets the global display (stderr) verbosity level.
func SetD(v int) { display.verbosity.set(Level(v)) }

// SetToStderr sets whether logging is directed exclusively to stderr.
func SetToStderr(toStderr bool) {
	logging.mu.Lock()
	logging.toStderr = toStderr
	logging.mu.Unlock()
}

// SetAlsoToStderr sets whether logging is directed to both file and stderr.
func SetAlsoToStderr(to bool) {
	logging.mu.Lock()
	logging.alsoToStderr = to
	logging.mu.Unlock()
}

// GetVModule returns the vmodule filter, suitable for registration with
// flag.Var.
func GetVModule() *moduleSpec { return &logging.vmodule }

// GetVerbosity returns the file-logging verbosity level, suitable for
// registration with flag.Var.
func GetVerbosity() *Level { return &logging.verbosity }

// GetDisplayable returns the stderr-display verbosity level, suitable for
// registration with flag.Var.
func GetDisplayable() *Level { return &display.verbosity }

// Level is exported because it appears in the arguments to V and D and is
// the value of the -verbosity and -displayverbosity flags.
type Level int32

func (l *Level) get() Level       { return Level(atomic.LoadInt32((*int32)(l))) }
func (l *Level) set(val Level)    { atomic.StoreInt32((*int32)(l), int32(val)) }
func (l *Level) String() string   { return strconv.FormatInt(int64(*l), 10) }
func (l *Level) Get() interface{} { return *l }

func (l *Level) Set(value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	l.set(Level(v))
	return nil
}

// moduleSpec represents the -vmodule flag, a comma-separated list of
// pattern=N settings for per-file verbosity overrides.
type moduleSpec struct {
	mu     sync.Mutex
	filter []modulePat
}

type modulePat struct {
	pattern string
	literal bool
	level   Level
}

func (m *modulePat) match(file string) bool {
	if m.literal {
		return file == m.pattern
	}
	match, _ := regexp.MatchString(m.pattern, file)
	return match
}

func (m *moduleSpec) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	for i, f := range m.filter {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%d", f.pattern, f.level)
	}
	return b.String()
}

func (m *moduleSpec) Get() interface{} { return m }

var errVmoduleSyntax = errors.New("syntax error: expect comma-separated list of filename=N")

// Set parses a -vmodule value, e.g. "table=2,bencode=1".
func (m *moduleSpec) Set(value string) error {
	var filter []modulePat
	for _, pat := range strings.Split(value, ",") {
		if pat == "" {
			continue
		}
		patLev := strings.Split(pat, "=")
		if len(patLev) != 2 || len(patLev[0]) == 0 || len(patLev[1]) == 0 {
			return errVmoduleSyntax
		}
		pattern := patLev[0]
		v, err := strconv.Atoi(patLev[1])
		if err != nil {
			return errVmoduleSyntax
		}
		literal := !strings.ContainsAny(pattern, `\.*+?[]()|`)
		filter = append(filter, modulePat{pattern, literal, Level(v)})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = filter
	return nil
}

type loggingT struct {
	mu           sync.Mutex
	toStderr     bool
	alsoToStderr bool
	verbosity    Level
	vmodule      moduleSpec
	out          io.Writer
	file         *os.File
}

var logging loggingT
var display loggingT

func init() {
	logging.verbosity.set(Level(DefaultVerbosity))
	logging.toStderr = DefaultToStdErr
	logging.alsoToStderr = DefaultAlsoToStdErr
	display.verbosity.set(Level(DefaultDisplay))
}

// SetLogFile directs file-level logging (everything up to -verbosity) to the
// named file, in addition to any stderr display configured via
// -displayverbosity.
func SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	logging.mu.Lock()
	logging.file = f
	logging.out = bufio.NewWriter(f)
	logging.mu.Unlock()
	return nil
}

// Flush flushes all pending log I/O.
func Flush() {
	logging.mu.Lock()
	if w, ok := logging.out.(*bufio.Writer); ok {
		w.Flush()
	}
	logging.mu.Unlock()
}

func (l *loggingT) header(s severity) string {
	now := time.Now()
	_, file, line, ok := runtime.Caller(3)
	if !ok {
		file = "???"
		line = 1
	} else if slash := strings.LastIndex(file, "/"); slash >= 0 {
		file = file[slash+1:]
	}
	return fmt.Sprintf("%c%02d%02d %02d:%02d:%02d %s:%d] ",
		severityChar[s], now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second(), file, line)
}

func (l *loggingT) output(s severity, msg string) {
	line := l.header(s) + msg
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	l.mu.Lock()
	if l.out != nil && !l.toStderr {
		io.WriteString(l.out, line)
		if s >= errorLog {
			l.mu.Unlock()
			Flush()
			l.mu.Lock()
		}
	}
	if l.toStderr || l.alsoToStderr || l.out == nil {
		fmt.Fprint(os.Stderr, severityColor[s]+line+severityColorReset)
	}
	l.mu.Unlock()
}

func (l *loggingT) println(s severity, args ...interface{}) { l.output(s, fmt.Sprintln(args...)) }
func (l *loggingT) printf(s severity, format string, args ...interface{}) {
	l.output(s, fmt.Sprintf(format, args...))
}

func (l *loggingT) exit(err error) {
	Flush()
	if err != nil {
		os.Exit(2)
	}
	os.Exit(1)
}

// Separator returns a line of the given rune repeated to a standard banner
// width, used by mlog's session-start file header.
func Separator(iterable string) string {
	if len(iterable) == 0 {
		return ""
	}
	return strings.Repeat(iterable, 72/len(iterable))
}

// Verbose is returned by V and acts as a boolean: logging calls on it are
// no-ops when the requested level exceeds the configured verbosity.
type Verbose bool

// Displayable is returned by D for the stderr-only display threshold.
type Displayable bool

// V reports whether verbosity at the given level is currently enabled for
// file logging.
func V(level Level) Verbose {
	return Verbose(level <= logging.verbosity.get())
}

// D reports whether verbosity at the given level is currently enabled for
// stderr display.
func D(level Level) Displayable {
	return Displayable(level <= display.verbosity.get())
}

func (v Verbose) Info(args ...interface{})   { if v { logging.println(infoLog, args...) } }
func (v Verbose) Infoln(args ...interface{}) { if v { logging.println(infoLog, args...) } }
func (v Verbose) Infof(format string, args ...interface{}) {
	if v {
		logging.printf(infoLog, format, args...)
	}
}
func (v Verbose) Warn(args ...interface{})      { if v { logging.println(warningLog, args...) } }
func (v Verbose) Warningln(args ...interface{}) { if v { logging.println(warningLog, args...) } }
func (v Verbose) Warningf(format string, args ...interface{}) {
	if v {
		logging.printf(warningLog, format, args...)
	}
}
func (v Verbose) Error(args ...interface{})   { if v { logging.println(errorLog, args...) } }
func (v Verbose) Errorln(args ...interface{}) { if v { logging.println(errorLog, args...) } }
func (v Verbose) Errorf(format string, args ...interface{}) {
	if v {
		logging.printf(errorLog, format, args...)
	}
}

func (d Displayable) Infoln(args ...interface{}) { if d { display.println(infoLog, args...) } }
func (d Displayable) Infof(format string, args ...interface{}) {
	if d {
		display.printf(infoLog, format, args...)
	}
}
func (d Displayable) Warnln(args ...interface{}) { if d { display.println(warningLog, args...) } }
func (d Displayable) Warnf(format string, args ...interface{}) {
	if d {
		display.printf(warningLog, format, args...)
	}
}
func (d Displayable) Errorln(args ...interface{}) { if d { display.println(errorLog, args...) } }
func (d Displayable) Errorf(format string, args ...interface{}) {
	if d {
		display.printf(errorLog, format, args...)
	}
}

func Info(args ...interface{})                    { logging.println(infoLog, args...) }
func Infoln(args ...interface{})                  { logging.println(infoLog, args...) }
func Infof(format string, args ...interface{})    { logging.printf(infoLog, format, args...) }
func Warning(args ...interface{})                 { logging.println(warningLog, args...) }
func Warningln(args ...interface{})               { logging.println(warningLog, args...) }
func Warningf(format string, args ...interface{}) { logging.printf(warningLog, format, args...) }
func Error(args ...interface{})                   { logging.println(errorLog, args...) }
func Errorln(args ...interface{})                 { logging.println(errorLog, args...) }
func Errorf(format string, args ...interface{})   { logging.printf(errorLog, format, args...) }

func Fatal(args ...interface{}) {
	logging.println(fatalLog, args...)
	logging.exit(errors.New(fmt.Sprint(args...)))
}
func Fatalln(args ...interface{}) {
	logging.println(fatalLog, args...)
	logging.exit(errors.New(fmt.Sprintln(args...)))
}
func Fatalf(format string, args ...interface{}) {
	logging.printf(fatalLog, format, args...)
	logging.exit(fmt.Errorf(format, args...))
}

func Exit(args ...interface{}) {
	logging.println(errorLog, args...)
	logging.exit(nil)
}
func Exitln(args ...interface{}) {
	logging.println(errorLog, args...)
	logging.exit(nil)
}
func Exitf(format string, args ...interface{}) {
	logging.printf(errorLog, format, args...)
	logging.exit(nil)
}
