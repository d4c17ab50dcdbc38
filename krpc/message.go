// Package krpc implements the DHT's KRPC message framework: queries,
// responses and errors, correlated by a short transaction id and
// serialized as BEncoded dictionaries.
package krpc

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/ethereumproject/dht/bencode"
	"github.com/ethereumproject/dht/dht"
)

// Message types, the value of the top-level "y" field.
const (
	TypeQuery    = "q"
	TypeResponse = "r"
	TypeError    = "e"
)

// Query names, the value of the top-level "q" field on a query message.
const (
	QueryPing     = "ping"
	QueryFindNode = "find_node"
)

// Message is a parsed KRPC envelope. Only the fields relevant to its Y/Q
// are populated; callers type-switch on Y and Q to decide which to read.
type Message struct {
	TransactionID string
	Y             string // "q", "r", or "e"
	Q             string // query name, set only when Y == TypeQuery

	// Query arguments ("a" dictionary).
	ID     dht.NodeId
	Target dht.NodeId

	// Response fields ("r" dictionary).
	RNodes []byte // concatenated compact packed nodes, when present

	// Error fields ("e" list): [code, message].
	ErrorCode    int64
	ErrorMessage string
}

// ErrMalformed is returned when a message is structurally valid BEncode
// but missing a field this package requires for its declared type, or when
// a caller asks for a response-only field on a message that isn't one.
type ErrMalformed struct {
	Field string
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("krpc: malformed message: missing field %q", e.Field)
}

// GetNodes returns the compact packed-nodes payload of a find_node
// response. It fails with ErrMalformed if called on anything but a
// TypeResponse message: a query or error has no "r/nodes" field to read,
// and returning RNodes's zero value for those would silently look like an
// empty node list instead of a programming mistake.
func (m *Message) GetNodes() ([]byte, error) {
	if m.Y != TypeResponse {
		return nil, &ErrMalformed{Field: "r/nodes"}
	}
	return m.RNodes, nil
}

// Decode parses a raw KRPC message.
func Decode(b []byte) (*Message, error) {
	flat, err := bencode.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	t, ok := flat["/t"]
	if !ok {
		return nil, &ErrMalformed{Field: "t"}
	}
	y, ok := flat["/y"]
	if !ok {
		return nil, &ErrMalformed{Field: "y"}
	}

	m := &Message{TransactionID: t, Y: y}

	switch y {
	case TypeQuery:
		q, ok := flat["/q"]
		if !ok {
			return nil, &ErrMalformed{Field: "q"}
		}
		m.Q = q
		idHex, ok := flat["/a/id"]
		if !ok {
			return nil, &ErrMalformed{Field: "a/id"}
		}
		id, err := dht.ParseBytes([]byte(idHex))
		if err != nil {
			return nil, fmt.Errorf("krpc: %v", err)
		}
		m.ID = id

		if q == QueryFindNode {
			targetRaw, ok := flat["/a/target"]
			if !ok {
				return nil, &ErrMalformed{Field: "a/target"}
			}
			target, err := dht.ParseBytes([]byte(targetRaw))
			if err != nil {
				return nil, fmt.Errorf("krpc: %v", err)
			}
			m.Target = target
		}

	case TypeResponse:
		idRaw, ok := flat["/r/id"]
		if !ok {
			return nil, &ErrMalformed{Field: "r/id"}
		}
		id, err := dht.ParseBytes([]byte(idRaw))
		if err != nil {
			return nil, fmt.Errorf("krpc: %v", err)
		}
		m.ID = id
		if nodes, ok := flat["/r/nodes"]; ok {
			m.RNodes = []byte(nodes)
		}

	case TypeError:
		// represented on the wire as a list ["/e/0"]=code, ["/e/1"]=message
		codeRaw, ok := flat["/e/0"]
		if !ok {
			return nil, &ErrMalformed{Field: "e/0"}
		}
		if _, ok := flat["/e/1"]; !ok {
			return nil, &ErrMalformed{Field: "e/1"}
		}
		code, err := strconv.ParseInt(codeRaw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("krpc: invalid error code %q: %v", codeRaw, err)
		}
		m.ErrorCode = code
		m.ErrorMessage = flat["/e/1"]

	default:
		return nil, fmt.Errorf("krpc: unknown message type %q", y)
	}

	return m, nil
}
