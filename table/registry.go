// Package table implements the DHT's routing coordinator: the callback
// registry that correlates outgoing queries with their replies, the
// RoutingTable that wires the routing tree and wire codec together behind
// a node's UDP socket, and the Store that persists the tree's contacts.
package table

import (
	"net"
	"sync"
	"time"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/krpc"
	"github.com/ethereumproject/dht/metrics"
)

// CallbackTimeLimit is how long a registered callback is kept before it's
// considered stale and discarded unanswered.
const CallbackTimeLimit = 3 * time.Minute

// CallbackFunc processes a matched reply. It reports whether the callback
// considers itself satisfied. Match removes a matched callback whichever
// value it returns, so every callback handles at most one reply.
type CallbackFunc func(*krpc.Message) bool

// Callback is a single pending expectation: "the next message from this
// source, of this kind, matching this transaction id, should go to this
// function."
type Callback struct {
	fn            CallbackFunc
	kind          string // query name ("ping", "find_node") or "r"/"e"
	transactionID string // empty means "don't filter by transaction id"
	expected      *net.UDPAddr // nil means "don't filter by source endpoint"
	created       time.Time
}

func (c *Callback) isOld() bool {
	return time.Since(c.created) > CallbackTimeLimit
}

// verifyConstraints reports whether m, received from, satisfies this
// callback's filters. The endpoint check guards against a message that
// carries the right sender id and transaction id but arrived from a
// different address than the one the query was actually sent to - a
// spoofed or misrouted reply shouldn't be able to satisfy a callback just
// by guessing the id and transaction.
func (c *Callback) verifyConstraints(m *krpc.Message, from *net.UDPAddr) bool {
	if c.kind != "" && messageKind(m) != c.kind {
		return false
	}
	if c.transactionID != "" && m.TransactionID != c.transactionID {
		return false
	}
	if c.expected != nil && (from == nil || !c.expected.IP.Equal(from.IP) || c.expected.Port != from.Port) {
		return false
	}
	return true
}

func messageKind(m *krpc.Message) string {
	if m.Y == krpc.TypeQuery {
		return m.Q
	}
	return m.Y
}

// CallbackRegistry correlates outgoing queries with their eventual
// replies. Callbacks are keyed by the NodeId of the peer they expect to
// hear back from, since a single peer may have several callbacks pending
// (a ping and a find_node in flight at once).
type CallbackRegistry struct {
	mu   sync.Mutex
	byID map[dht.NodeId][]*Callback
}

// NewCallbackRegistry returns an empty registry.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{byID: make(map[dht.NodeId][]*Callback)}
}

// Register adds a callback awaiting a reply from source. kind restricts it
// to a specific query name or response/error type; pass "" to match any.
// transactionID restricts it to a specific transaction; pass "" to match
// any. expected, if non-nil, restricts matching to replies that actually
// arrive from that UDP endpoint; pass nil to match a reply from any
// address claiming to be source.
func (r *CallbackRegistry) Register(source dht.NodeId, kind, transactionID string, expected *net.UDPAddr, fn CallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[source] = append(r.byID[source], &Callback{
		fn:            fn,
		kind:          kind,
		transactionID: transactionID,
		expected:      expected,
		created:       time.Now(),
	})
	metrics.CallbacksRegistered.Mark(1)
}

// Match looks for a callback registered against source that accepts m,
// received from the UDP endpoint from. If found, it is removed from the
// registry and invoked; Match reports whether a callback was found and
// invoked (regardless of the callback's own return value). Expired
// callbacks encountered along the way are dropped rather than matched.
func (r *CallbackRegistry) Match(source dht.NodeId, from *net.UDPAddr, m *krpc.Message) bool {
	r.mu.Lock()
	pending := r.byID[source]

	kept := pending[:0]
	var matched *Callback
	for _, c := range pending {
		if matched != nil {
			kept = append(kept, c)
			continue
		}
		if c.isOld() {
			metrics.CallbacksExpired.Mark(1)
			continue
		}
		if c.verifyConstraints(m, from) {
			matched = c
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		delete(r.byID, source)
	} else {
		r.byID[source] = kept
	}
	r.mu.Unlock()

	if matched == nil {
		return false
	}
	metrics.CallbacksMatched.Mark(1)
	matched.fn(m)
	return true
}

// Expire drops every callback older than CallbackTimeLimit across the
// whole registry, independent of any particular reply arriving. Calling it
// periodically keeps queries that never get a reply from pinning memory
// forever; nothing in this package schedules it.
func (r *CallbackRegistry) Expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, pending := range r.byID {
		kept := pending[:0]
		for _, c := range pending {
			if c.isOld() {
				metrics.CallbacksExpired.Mark(1)
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			delete(r.byID, id)
		} else {
			r.byID[id] = kept
		}
	}
}

// Len returns the total number of callbacks currently pending, across all
// sources. Intended for tests and diagnostics.
func (r *CallbackRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, pending := range r.byID {
		n += len(pending)
	}
	return n
}
