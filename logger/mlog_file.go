// Copyright 2017 The go-ethereum Authors
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

// File I/O and registry for mlogs: structured, machine-readable event
// lines, kept separate from glog's free-text debug stream. A component
// registers the lines it can emit with MLogRegisterAvailable.

package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ethereumproject/dht/common"
	"github.com/ethereumproject/dht/logger/glog"
)

var (
	// If non-empty, overrides the choice of directory in which to write logs.
	mLogDir *string = new(string)

	errMLogComponentUnavailable = errors.New("provided component name is unavailable")

	mlogRegistryAvailable = make(map[string][]*MLogT)
	mlogRegistryActive    = make(map[string]*Logger)
	mlogRegLock           sync.RWMutex

	mlogEnabled = true
	mlogFormat  = MLogPlain
)

// mlogComponent names a registered mlog component; MLogT.Send takes one to
// pick the Logger its line goes to.
type mlogComponent string

var (
	pid      = os.Getpid()
	program  = filepath.Base(os.Args[0])
	host     = "unknownhost"
	userName = "unknownuser"
)

func init() {
	h, err := os.Hostname()
	if err == nil {
		host = shortHostname(h)
	}

	current, err := user.Current()
	if err == nil {
		userName = current.Username
	}
	userName = strings.Replace(userName, `\`, "_", -1)
}

// SetMlogEnabled toggles whether MLogT.Send writes anything at all.
func SetMlogEnabled(on bool) { mlogEnabled = on }

// MlogEnabled reports the current enabled state.
func MlogEnabled() bool { return mlogEnabled }

// MLogFormat selects the rendering MLogT.Send uses for its output line.
type MLogFormat int

const (
	MLogPlain MLogFormat = iota
	MLogKV
	MLogJSON
)

func (f MLogFormat) String() string {
	switch f {
	case MLogKV:
		return "kv"
	case MLogJSON:
		return "json"
	default:
		return "plain"
	}
}

// SetMLogFormatFromString sets the active mlog rendering format by name:
// "plain", "kv", or "json".
func SetMLogFormatFromString(s string) error {
	switch s {
	case "plain":
		mlogFormat = MLogPlain
	case "kv":
		mlogFormat = MLogKV
	case "json":
		mlogFormat = MLogJSON
	default:
		return fmt.Errorf("unknown mlog format: %q", s)
	}
	return nil
}

// GetMLogFormat returns the currently active mlog rendering format.
func GetMLogFormat() MLogFormat { return mlogFormat }

// Reset clears all mlog global state. It exists for test isolation; a
// running node never needs to call it.
func Reset() {
	mlogRegLock.Lock()
	mlogRegistryAvailable = make(map[string][]*MLogT)
	mlogRegistryActive = make(map[string]*Logger)
	mlogRegLock.Unlock()
	logSystems = nil
	mlogEnabled = true
	mlogFormat = MLogPlain
}

// MLogRegisterAvailable registers, under name, the set of mlog lines a
// component can emit. Calling it again for the same name replaces the set
// of lines registered for it.
func MLogRegisterAvailable(name string, lines []*MLogT) mlogComponent {
	mlogRegLock.Lock()
	mlogRegistryAvailable[name] = lines
	mlogRegLock.Unlock()
	return mlogComponent(name)
}

// GetMLogRegistryAvailable returns the full set of known mlog components
// and the lines they can emit.
func GetMLogRegistryAvailable() map[string][]*MLogT {
	mlogRegLock.RLock()
	defer mlogRegLock.RUnlock()
	out := make(map[string][]*MLogT, len(mlogRegistryAvailable))
	for k, v := range mlogRegistryAvailable {
		out[k] = v
	}
	return out
}

// GetMLogRegistryActive returns the components currently emitting lines.
func GetMLogRegistryActive() map[string]*Logger {
	mlogRegLock.RLock()
	defer mlogRegLock.RUnlock()
	out := make(map[string]*Logger, len(mlogRegistryActive))
	for k, v := range mlogRegistryActive {
		out[k] = v
	}
	return out
}

// MLogRegisterComponentsFromContext declares the full desired active mlog
// component set from a comma-separated string, replacing whatever was
// active before. A token prefixed with "!" switches the whole string into
// exclude mode: every available component becomes active except the ones
// named (with or without "!"). Without any "!" token the string is treated
// as an explicit inclusion list, and naming an unknown component is an error.
func MLogRegisterComponentsFromContext(s string) error {
	tokens := strings.Split(s, ",")
	names := make(map[string]bool, len(tokens))
	exclude := false
	for _, tok := range tokens {
		t := strings.TrimSpace(tok)
		if strings.HasPrefix(t, "!") {
			exclude = true
			t = t[1:]
		}
		if t != "" {
			names[t] = true
		}
	}

	mlogRegLock.Lock()
	mlogRegistryActive = make(map[string]*Logger)
	mlogRegLock.Unlock()

	if exclude {
		mlogRegLock.RLock()
		avail := make([]string, 0, len(mlogRegistryAvailable))
		for c := range mlogRegistryAvailable {
			avail = append(avail, c)
		}
		mlogRegLock.RUnlock()
		for _, c := range avail {
			if !names[c] {
				MLogRegisterActive(mlogComponent(c))
			}
		}
		return nil
	}

	for name := range names {
		mlogRegLock.RLock()
		_, ok := mlogRegistryAvailable[name]
		mlogRegLock.RUnlock()
		if !ok {
			return fmt.Errorf("%v: '%s'", errMLogComponentUnavailable, name)
		}
		MLogRegisterActive(mlogComponent(name))
	}
	return nil
}

// MLogRegisterActive registers a component for mlogging. Only registered
// components write to the mlog sinks.
func MLogRegisterActive(component mlogComponent) {
	mlogRegLock.Lock()
	mlogRegistryActive[string(component)] = NewLogger(string(component))
	mlogRegLock.Unlock()
}

// SetMLogDir sets the mlog directory, into which one mlog file per session
// will be written.
func SetMLogDir(str string) { *mLogDir = str }

func createLogDirs() error {
	if *mLogDir != "" {
		return os.MkdirAll(*mLogDir, os.ModePerm)
	}
	return errors.New("createLogDirs received empty string")
}

// shortHostname returns its argument, truncating at the first period.
func shortHostname(hostname string) string {
	if i := strings.Index(hostname, "."); i >= 0 {
		return hostname[:i]
	}
	return hostname
}

func logName(t time.Time) (name, link string) {
	name = fmt.Sprintf("%s.%s.%s.mlog.%04d%02d%02d-%02d%02d%02d.%d",
		program, host, userName,
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), pid)
	return name, program + ".log"
}

// CreateMLogFile creates a new log file tagged with t, symlinked from a
// stable name, and writes a short session-start banner to it.
func CreateMLogFile(t time.Time) (f *os.File, filename string, err error) {
	if e := createLogDirs(); e != nil {
		return nil, "", e
	}

	name, link := logName(t)
	fname := filepath.Join(*mLogDir, name)

	f, e := os.Create(fname)
	if e != nil {
		return nil, fname, e
	}

	symlink := filepath.Join(*mLogDir, link)
	os.Remove(symlink)
	os.Symlink(name, symlink)

	fmt.Fprintf(f, "Log file created at: %s\n", t.Format("2006/01/02 15:04:05"))
	fmt.Fprintf(f, "Running on machine: %s\n", host)
	fmt.Fprintf(f, "Binary: Built with %s %s for %s/%s\n", runtime.Compiler, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	cmps := []string{}
	for k := range GetMLogRegistryActive() {
		cmps = append(cmps, k)
	}
	fmt.Fprintf(f, "Registered components: %v\n", cmps)
	fmt.Fprintln(f, glog.Separator("-"))

	return f, fname, nil
}

// MLogT defines an mlog LINE: a subject-verb-receiver triple plus a fixed
// set of typed details.
type MLogT struct {
	Description string
	Receiver    string
	Verb        string
	Subject     string
	Details     []MLogDetailT
}

// MLogDetailT defines one detail field of an mlog LINE.
type MLogDetailT struct {
	Owner string
	Key   string
	Value interface{}
}

// AssignDetails fills in the Value of each pre-declared detail, in order.
// It fatals on an argument-count mismatch, since that means a call site
// drifted from its MLogT declaration.
func (m *MLogT) AssignDetails(detailVals ...interface{}) *MLogT {
	if len(detailVals) != len(m.Details) {
		glog.Fatalf("mlog: wrong number of details set, want: %d got: %d", len(m.Details), len(detailVals))
	}
	for i, v := range detailVals {
		m.Details[i].Value = v
	}
	return m
}

func (m *MLogT) event() string {
	return strings.Join([]string{
		strings.ToLower(m.Receiver),
		strings.ToLower(m.Verb),
		strings.ToLower(m.Subject),
	}, ".")
}

// FormatPlain renders the line as "session=ID RECEIVER VERB SUBJECT [val] [val] ...".
func (m *MLogT) FormatPlain() string {
	out := fmt.Sprintf("session=%s %s %s %s", common.SessionID, m.Receiver, m.Verb, m.Subject)
	for _, d := range m.Details {
		out += fmt.Sprintf(" [%v]", d.Value)
	}
	return out
}

// FormatKV renders the line as space-separated key=value pairs.
func (m *MLogT) FormatKV() string {
	out := fmt.Sprintf("session=%s event=%s", common.SessionID, m.event())
	for _, d := range m.Details {
		out += fmt.Sprintf(" %s.%s=%v", strings.ToLower(d.Owner), strings.ToLower(d.Key), d.Value)
	}
	return out
}

// FormatJSON renders the line as a single JSON object.
func (m *MLogT) FormatJSON(component mlogComponent) string {
	obj := map[string]interface{}{
		"component": string(component),
		"session":   common.SessionID,
		"event":     m.event(),
	}
	for _, d := range m.Details {
		obj[strings.ToLower(d.Owner)+"."+strings.ToLower(d.Key)] = d.Value
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// FormatDocumentation renders a human-readable description of this line,
// used to self-document the mlog vocabulary a component can emit.
func (m *MLogT) FormatDocumentation(component mlogComponent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s.%s.%s\n", m.Receiver, m.Verb, m.Subject)
	fmt.Fprintf(&b, "%s\n\nDetails:\n", m.Description)
	for _, d := range m.Details {
		fmt.Fprintf(&b, "  $%s:%s (%v)\n", d.Owner, d.Key, d.Value)
	}
	return b.String()
}

// Send renders and writes this line, if mlogging is enabled and component
// is currently registered active.
func (m *MLogT) Send(component mlogComponent) {
	if !mlogEnabled {
		return
	}
	mlogRegLock.RLock()
	l := mlogRegistryActive[string(component)]
	mlogRegLock.RUnlock()
	if l == nil {
		return
	}

	var line string
	switch mlogFormat {
	case MLogKV:
		line = m.FormatKV()
	case MLogJSON:
		line = m.FormatJSON(component)
	default:
		line = m.FormatPlain()
	}
	l.Sendf(1, line)
}
