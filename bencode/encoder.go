package bencode

import (
	"bytes"
	"fmt"
)

// Encoder incrementally builds a BEncoded message. Dictionary keys must be
// added in ascending lexicographic order: AddDictionaryElement panics on a
// key that sorts before the previous one, since an out-of-order dictionary
// is always a programming error, never a runtime condition to recover
// from.
type Encoder struct {
	buf     bytes.Buffer
	lastKey []byte
	hasKey  bool
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// AddString writes a length-prefixed byte string element.
func (e *Encoder) AddString(v []byte) {
	fmt.Fprintf(&e.buf, "%d:", len(v))
	e.buf.Write(v)
}

// AddStringValue is a convenience wrapper around AddString for Go strings.
func (e *Encoder) AddStringValue(v string) {
	e.AddString([]byte(v))
}

// AddInt writes an integer element.
func (e *Encoder) AddInt(v int64) {
	fmt.Fprintf(&e.buf, "i%de", v)
}

// StartDictionary opens a dictionary.
func (e *Encoder) StartDictionary() {
	e.lastKey = nil
	e.hasKey = false
	e.buf.WriteByte('d')
}

// EndDictionary closes the most recently opened dictionary.
func (e *Encoder) EndDictionary() {
	e.lastKey = nil
	e.hasKey = false
	e.buf.WriteByte('e')
}

// AddDictionaryElement writes a key/value pair inside the currently open
// dictionary. It panics if k does not sort strictly after the previous key
// written since the most recent StartDictionary or EndDictionary call. Only
// that one previous key is tracked: keys a dictionary received before a
// nested dictionary was opened are not compared with keys it receives
// after that nested dictionary is closed.
func (e *Encoder) AddDictionaryElement(k []byte, v []byte) {
	if e.hasKey && bytes.Compare(k, e.lastKey) <= 0 {
		panic(fmt.Sprintf("bencode: dictionary keys out of lexicographic order: %q after %q", k, e.lastKey))
	}
	e.AddString(k)
	e.AddString(v)
	e.lastKey = append([]byte(nil), k...)
	e.hasKey = true
}

// AddDictionaryStringElement is a convenience wrapper for string-valued
// dictionary entries.
func (e *Encoder) AddDictionaryStringElement(k, v string) {
	e.AddDictionaryElement([]byte(k), []byte(v))
}

// AddDictionaryIntElement writes a key with an integer value.
func (e *Encoder) AddDictionaryIntElement(k string, v int64) {
	if e.hasKey && bytes.Compare([]byte(k), e.lastKey) <= 0 {
		panic(fmt.Sprintf("bencode: dictionary keys out of lexicographic order: %q after %q", k, e.lastKey))
	}
	e.AddString([]byte(k))
	e.AddInt(v)
	e.lastKey = []byte(k)
	e.hasKey = true
}

// StartList opens a list.
func (e *Encoder) StartList() { e.buf.WriteByte('l') }

// EndList closes the most recently opened list.
func (e *Encoder) EndList() { e.buf.WriteByte('e') }

// AddListStrings writes a list of byte-string elements in one call.
func (e *Encoder) AddListStrings(vals [][]byte) {
	e.StartList()
	for _, v := range vals {
		e.AddString(v)
	}
	e.EndList()
}

// Bytes returns the encoded message built so far.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// EncodeDict is a convenience helper that encodes a flat dictionary of
// byte-string values whose keys are already in ascending order, as
// produced by sorting a Go map's keys before calling it.
func EncodeDict(keys []string, values map[string][]byte) []byte {
	e := NewEncoder()
	e.StartDictionary()
	for _, k := range keys {
		e.AddDictionaryElement([]byte(k), values[k])
	}
	e.EndDictionary()
	return e.Bytes()
}
