// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package logger provides the leveled, multi-sink logging facade used
// throughout the dht node. glog is the primary sink (stderr, or one log
// file set with glog.SetLogFile); LogSystems are secondary sinks (machine-readable json,
// or the mlog line format) that a Logger fans its messages out to.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ethereumproject/dht/logger/glog"
)

// LogLevel is a type alias for glog.Level so that package-level severity
// constants below can be passed directly to glog.V without conversion,
// e.g. glog.V(logger.Detail).Infof(...).
type LogLevel = glog.Level

const (
	Silence LogLevel = iota
	Error
	Warn
	Info
	Debug
	Detail
)

// LogSystem is a secondary logging sink. Unlike glog, which writes leveled
// text to stderr/disk, a LogSystem receives every line a Logger emits and
// decides for itself whether and how to record it.
type LogSystem interface {
	LogPrint(level LogLevel, msg string)
}

var (
	logSystems []LogSystem
)

// Flush flushes glog's buffered output. LogSystems registered here write
// synchronously and need no flushing of their own.
func Flush() {
	glog.Flush()
}

// AddLogSystem registers a LogSystem to receive all future Logger output.
func AddLogSystem(sys LogSystem) {
	logSystems = append(logSystems, sys)
}

// Logger is a named logging facade. Its name is prefixed to every line it
// emits, both to glog and to any registered LogSystems.
type Logger struct {
	name string
}

// NewLogger returns a Logger tagged with the given component name, e.g.
// logger.NewLogger("table").
func NewLogger(name string) *Logger {
	return &Logger{name: name}
}

func (l *Logger) send(level LogLevel, msg string) {
	for _, sys := range logSystems {
		sys.LogPrint(level, msg)
	}
	switch {
	case level <= Error:
		glog.V(level).Errorln("[" + l.name + "] " + msg)
	case level == Warn:
		glog.V(level).Warningln("[" + l.name + "] " + msg)
	default:
		glog.V(level).Infoln("[" + l.name + "] " + msg)
	}
}

func (l *Logger) Errorln(v ...interface{}) { l.send(Error, fmt.Sprintln(v...)) }
func (l *Logger) Warnln(v ...interface{})  { l.send(Warn, fmt.Sprintln(v...)) }
func (l *Logger) Infoln(v ...interface{})  { l.send(Info, fmt.Sprintln(v...)) }
func (l *Logger) Debugln(v ...interface{}) { l.send(Debug, fmt.Sprintln(v...)) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.send(Error, fmt.Sprintf(format, v...)) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.send(Warn, fmt.Sprintf(format, v...)) }
func (l *Logger) Infof(format string, v ...interface{})  { l.send(Info, fmt.Sprintf(format, v...)) }
func (l *Logger) Debugf(format string, v ...interface{}) { l.send(Debug, fmt.Sprintf(format, v...)) }

// Sendf writes a pre-formatted line (such as an MLogT rendering) directly
// to every registered LogSystem, bypassing glog and severity filtering
// entirely: mlog lines are gated by component registration, not verbosity.
// calldepth is accepted for interface parity with call sites that pass a
// runtime.Caller depth but is otherwise unused.
func (l *Logger) Sendf(calldepth int, line string) {
	for _, sys := range logSystems {
		sys.LogPrint(Silence, line)
	}
}

// stdLogSystem writes plain "date time message" lines to writer,
// filtering anything above the configured LogLevel.
type stdLogSystem struct {
	writer io.Writer
	level  LogLevel
}

// NewStdLogSystem returns a LogSystem that writes human-readable lines to
// writer, dropping anything more verbose than level. flags is accepted for
// interface parity with the standard library's log.Logger flag bits.
func NewStdLogSystem(writer io.Writer, flags int, level LogLevel) LogSystem {
	return &stdLogSystem{writer: writer, level: level}
}

func (t *stdLogSystem) LogPrint(level LogLevel, msg string) {
	if level > t.level {
		return
	}
	fmt.Fprintf(t.writer, "%s %s", time.Now().Format("2006/01/02 15:04:05"), msg)
}

// jsonLogSystem writes one JSON object per line: {"t":..., "lvl":..., "msg":...}
type jsonLogSystem struct {
	enc *json.Encoder
}

// NewJsonLogSystem returns a LogSystem that writes newline-delimited JSON
// records, for consumption by external log-aggregation tooling.
func NewJsonLogSystem(writer io.Writer) LogSystem {
	return &jsonLogSystem{enc: json.NewEncoder(writer)}
}

func (t *jsonLogSystem) LogPrint(level LogLevel, msg string) {
	t.enc.Encode(map[string]interface{}{
		"t":   time.Now().UTC(),
		"lvl": int(level),
		"msg": msg,
	})
}

// mlogLogSystem writes the structured mlog line format described by MLogT,
// optionally prefixed with a timestamp.
type mlogLogSystem struct {
	writer        io.Writer
	level         LogLevel
	withTimestamp bool
}

// NewMLogSystem returns a LogSystem tuned for mlog-formatted lines: messages
// are written as-is (Logger.Sendf already rendered them via MLogT.String()),
// optionally prefixed with a timestamp column.
func NewMLogSystem(writer io.Writer, flags int, level LogLevel, withTimestamp bool) LogSystem {
	return &mlogLogSystem{writer: writer, level: level, withTimestamp: withTimestamp}
}

func (t *mlogLogSystem) LogPrint(level LogLevel, msg string) {
	if level > t.level {
		return
	}
	if t.withTimestamp {
		fmt.Fprintf(t.writer, "%d %s", time.Now().UnixNano(), msg)
		return
	}
	fmt.Fprint(t.writer, msg)
}
