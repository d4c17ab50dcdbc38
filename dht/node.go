package dht

import (
	"fmt"
	"net"
	"time"
)

// Freshness constants governing how a Contact's reliability is judged.
const (
	// GoodInterval is how long a contact is considered good after its last
	// successful reply.
	GoodInterval = 15 * time.Minute
	// AllowedUnanswered is the number of consecutive unanswered queries a
	// contact may accrue before it is considered bad rather than merely
	// questionable.
	AllowedUnanswered = 10
)

// PackedNodeSize is the wire size of a compact packed node: 20-byte id,
// 4-byte IPv4 address, 2-byte port, all in network byte order.
const PackedNodeSize = IdLength + 4 + 2

// Contact is a remote node as tracked by the routing table: its identity,
// reachable endpoint, and freshness bookkeeping.
type Contact struct {
	Id   NodeId
	Addr *net.UDPAddr

	lastTimeGood     time.Time
	unansweredQueries int
}

// NewContact returns a Contact for id at addr, initialized as good.
func NewContact(id NodeId, addr *net.UDPAddr) *Contact {
	c := &Contact{Id: id, Addr: addr}
	c.SetGood()
	return c
}

// SetGood records a successful reply from this contact: it becomes good and
// its unanswered-query count resets to zero.
func (c *Contact) SetGood() {
	c.lastTimeGood = time.Now()
	c.unansweredQueries = 0
}

// NoteUnanswered records that a query sent to this contact went
// unanswered.
func (c *Contact) NoteUnanswered() {
	c.unansweredQueries++
}

// LastTimeGood returns the last time this contact replied successfully.
func (c *Contact) LastTimeGood() time.Time { return c.lastTimeGood }

// IsGood reports whether the contact replied within the last GoodInterval.
func (c *Contact) IsGood() bool {
	return time.Since(c.lastTimeGood) < GoodInterval
}

// IsQuestionable reports whether the contact is stale but hasn't yet
// accrued enough unanswered queries to be considered bad.
func (c *Contact) IsQuestionable() bool {
	return !c.IsGood() && c.unansweredQueries <= AllowedUnanswered
}

// IsBad reports whether the contact is stale and has accrued more than
// AllowedUnanswered consecutive unanswered queries.
func (c *Contact) IsBad() bool {
	return !c.IsGood() && c.unansweredQueries > AllowedUnanswered
}

// PackedNode parses a 26-byte compact node entry into its id and endpoint.
func PackedNode(b []byte) (NodeId, *net.UDPAddr, error) {
	if len(b) != PackedNodeSize {
		return NodeId{}, nil, fmt.Errorf("dht: invalid packed node length: got %d, want %d", len(b), PackedNodeSize)
	}
	id, err := ParseBytes(b[:IdLength])
	if err != nil {
		return NodeId{}, nil, err
	}
	ip := net.IPv4(b[IdLength], b[IdLength+1], b[IdLength+2], b[IdLength+3])
	port := int(b[IdLength+4])<<8 | int(b[IdLength+5])
	return id, &net.UDPAddr{IP: ip, Port: port}, nil
}

// Pack renders the contact as a 26-byte compact node entry. It panics if
// Addr isn't an IPv4 address, since the compact format has no room for
// anything else.
func (c *Contact) Pack() []byte {
	ip4 := c.Addr.IP.To4()
	if ip4 == nil {
		panic("dht: Pack requires an IPv4 address")
	}
	out := make([]byte, 0, PackedNodeSize)
	out = append(out, c.Id[:]...)
	out = append(out, ip4...)
	out = append(out, byte(c.Addr.Port>>8), byte(c.Addr.Port))
	return out
}
