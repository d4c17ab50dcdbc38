package table

import (
	"net"
	"testing"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/krpc"
)

// fakeConn records every datagram written to it, keyed by destination, so
// tests can inspect what a RoutingTable sent without a real socket.
type fakeConn struct {
	sent []sentDatagram
}

type sentDatagram struct {
	b    []byte
	addr *net.UDPAddr
}

func (f *fakeConn) WriteToUDP(b []byte, addr *net.UDPAddr) (int, error) {
	cp := make([]byte, len(b))
	copy(cp, b)
	f.sent = append(f.sent, sentDatagram{b: cp, addr: addr})
	return len(b), nil
}

func remoteAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(8, 8, 8, 8), Port: 6881}
}

func TestHandlePingQuerySendsReply(t *testing.T) {
	conn := &fakeConn{}
	rt := NewRoutingTable(dht.Random(), conn)

	peerID := dht.Random()
	query := krpc.EncodePingQuery("aa", peerID.ToBytes())

	if err := rt.HandleMessage(query, remoteAddr()); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1", len(conn.sent))
	}
	reply, err := krpc.Decode(conn.sent[0].b)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Y != krpc.TypeResponse || reply.TransactionID != "aa" {
		t.Fatalf("reply = %+v, want a type-r response to transaction aa", reply)
	}
	if _, ok := rt.Tree().FindContact(peerID); !ok {
		t.Fatal("expected the querying peer to be added as a contact")
	}
}

func TestHandleFindNodeQueryReturnsClosestContacts(t *testing.T) {
	conn := &fakeConn{}
	self := dht.Random()
	rt := NewRoutingTable(self, conn)

	for i := 0; i < 5; i++ {
		rt.Tree().AddContact(dht.NewContact(dht.Random(), &net.UDPAddr{IP: net.IPv4(9, 9, 9, byte(i)), Port: 6881}))
	}

	peerID := dht.Random()
	target := dht.Random()
	query := krpc.EncodeFindNodeQuery("zz", peerID.ToBytes(), target.ToBytes())

	if err := rt.HandleMessage(query, remoteAddr()); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	reply, err := krpc.Decode(conn.sent[0].b)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if len(reply.RNodes)%dht.PackedNodeSize != 0 {
		t.Fatalf("RNodes length %d is not a multiple of %d", len(reply.RNodes), dht.PackedNodeSize)
	}
	// The five seeded contacts plus the querying peer, all in the root
	// bucket, so Closest returns every one of them.
	if got, want := len(reply.RNodes)/dht.PackedNodeSize, 6; got != want {
		t.Fatalf("reply carries %d packed nodes, want %d", got, want)
	}
}

func TestPingRegistersCallbackAndMarksContactGood(t *testing.T) {
	conn := &fakeConn{}
	rt := NewRoutingTable(dht.Random(), conn)

	target := dht.NewContact(dht.Random(), remoteAddr())
	if err := rt.Ping(target); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d datagrams, want 1", len(conn.sent))
	}

	query, err := krpc.Decode(conn.sent[0].b)
	if err != nil {
		t.Fatalf("decode query: %v", err)
	}

	reply := krpc.EncodePingReply(query.TransactionID, target.Id.ToBytes())
	if err := rt.HandleMessage(reply, target.Addr); err != nil {
		t.Fatalf("HandleMessage(reply): %v", err)
	}
	if !target.IsGood() {
		t.Fatal("expected the target contact to be marked good after the reply")
	}
}

func TestUnsolicitedReplyLogsWithoutError(t *testing.T) {
	conn := &fakeConn{}
	rt := NewRoutingTable(dht.Random(), conn)

	reply := krpc.EncodePingReply("qq", dht.Random().ToBytes())
	if err := rt.HandleMessage(reply, remoteAddr()); err != nil {
		t.Fatalf("HandleMessage should not error on an unmatched reply: %v", err)
	}
}

func TestHandleQueryDropsRetransmittedDuplicate(t *testing.T) {
	conn := &fakeConn{}
	rt := NewRoutingTable(dht.Random(), conn)

	peerID := dht.Random()
	query := krpc.EncodePingQuery("dd", peerID.ToBytes())

	if err := rt.HandleMessage(query, remoteAddr()); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if err := rt.HandleMessage(query, remoteAddr()); err != nil {
		t.Fatalf("HandleMessage (retransmit): %v", err)
	}
	if len(conn.sent) != 1 {
		t.Fatalf("sent %d replies, want 1 (retransmit should be deduped)", len(conn.sent))
	}
}

func TestBootstrapAndMaintenanceAreNotImplemented(t *testing.T) {
	rt := NewRoutingTable(dht.Random(), &fakeConn{})
	if err := rt.Bootstrap(); err != ErrNotImplemented {
		t.Fatalf("Bootstrap() = %v, want ErrNotImplemented", err)
	}
	if err := rt.TableMaintenance(); err != ErrNotImplemented {
		t.Fatalf("TableMaintenance() = %v, want ErrNotImplemented", err)
	}
	if err := rt.LookForNode(dht.Random()); err != ErrNotImplemented {
		t.Fatalf("LookForNode() = %v, want ErrNotImplemented", err)
	}
}
