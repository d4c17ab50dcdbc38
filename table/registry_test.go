package table

import (
	"net"
	"testing"
	"time"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/krpc"
)

func TestCallbackRegistryMatchesByKindAndTransaction(t *testing.T) {
	r := NewCallbackRegistry()
	source := dht.Random()

	var called bool
	r.Register(source, krpc.TypeResponse, "aa", nil, func(m *krpc.Message) bool {
		called = true
		return true
	})

	reply := &krpc.Message{Y: krpc.TypeResponse, TransactionID: "aa"}
	if !r.Match(source, nil, reply) {
		t.Fatal("expected Match to find the registered callback")
	}
	if !called {
		t.Fatal("callback function was not invoked")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after the callback was consumed", r.Len())
	}
}

func TestCallbackRegistryRejectsWrongTransaction(t *testing.T) {
	r := NewCallbackRegistry()
	source := dht.Random()
	r.Register(source, krpc.TypeResponse, "aa", nil, func(m *krpc.Message) bool { return true })

	reply := &krpc.Message{Y: krpc.TypeResponse, TransactionID: "zz"}
	if r.Match(source, nil, reply) {
		t.Fatal("Match should not find a callback registered for a different transaction id")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (the callback should still be pending)", r.Len())
	}
}

func TestCallbackRegistryRejectsUnknownSource(t *testing.T) {
	r := NewCallbackRegistry()
	r.Register(dht.Random(), "", "", nil, func(m *krpc.Message) bool { return true })
	if r.Match(dht.Random(), nil, &krpc.Message{Y: krpc.TypeResponse}) {
		t.Fatal("Match should not find a callback for an unrelated source")
	}
}

func TestCallbackRegistryExpiresOldCallbacks(t *testing.T) {
	r := NewCallbackRegistry()
	source := dht.Random()
	r.Register(source, "", "", nil, func(m *krpc.Message) bool { return true })
	r.byID[source][0].created = time.Now().Add(-CallbackTimeLimit - time.Second)

	r.Expire()
	if r.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after Expire drops the stale callback", r.Len())
	}
}

func TestCallbackRegistrySkipsExpiredDuringMatch(t *testing.T) {
	r := NewCallbackRegistry()
	source := dht.Random()
	r.Register(source, "", "", nil, func(m *krpc.Message) bool { return true })
	r.byID[source][0].created = time.Now().Add(-CallbackTimeLimit - time.Second)

	if r.Match(source, nil, &krpc.Message{Y: krpc.TypeResponse}) {
		t.Fatal("Match should not match an expired callback")
	}
}

func TestCallbackRegistryMultipleCallbacksPerSource(t *testing.T) {
	r := NewCallbackRegistry()
	source := dht.Random()
	r.Register(source, krpc.QueryPing, "aa", nil, func(m *krpc.Message) bool { return true })
	r.Register(source, krpc.QueryFindNode, "bb", nil, func(m *krpc.Message) bool { return true })

	if !r.Match(source, nil, &krpc.Message{Y: krpc.TypeQuery, Q: krpc.QueryFindNode, TransactionID: "bb"}) {
		t.Fatal("expected to match the find_node callback")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (only the matched callback should be removed)", r.Len())
	}
}

// TestCallbackRegistryRejectsUnexpectedEndpoint covers the case a reply
// carries the right source id, kind, and transaction id but arrives from a
// different UDP endpoint than the one the query was sent to.
func TestCallbackRegistryRejectsUnexpectedEndpoint(t *testing.T) {
	r := NewCallbackRegistry()
	source := dht.Random()
	expected := &net.UDPAddr{IP: net.ParseIP("203.0.113.1"), Port: 6881}
	r.Register(source, krpc.TypeResponse, "aa", expected, func(m *krpc.Message) bool { return true })

	unexpected := &net.UDPAddr{IP: net.ParseIP("198.51.100.7"), Port: 6881}
	reply := &krpc.Message{Y: krpc.TypeResponse, TransactionID: "aa"}
	if r.Match(source, unexpected, reply) {
		t.Fatal("Match should not accept a reply from an unexpected endpoint")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (the callback should still be pending)", r.Len())
	}

	if !r.Match(source, expected, reply) {
		t.Fatal("expected Match to accept a reply from the expected endpoint")
	}
}
