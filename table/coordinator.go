package table

import (
	"errors"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/krpc"
	"github.com/ethereumproject/dht/logger"
	"github.com/ethereumproject/dht/metrics"
	"github.com/ethereumproject/dht/table/netutil"
	lru "github.com/hashicorp/golang-lru"
)

// recentQueryCacheSize bounds how many (sender, transaction) pairs a table
// remembers in order to drop retransmitted queries instead of answering
// them twice. Sized for a steady stream of lookups from a few thousand
// distinct peers without dominating heap usage.
const recentQueryCacheSize = 4096

// ErrNotImplemented is returned by RoutingTable operations this node
// doesn't yet perform: bootstrapping from the public rendezvous servers,
// background table maintenance, and the lookup-for-node session used to
// satisfy get_peers-style queries. A node built only from Ping/FindNode
// can run without any of the three; they're left as explicit stubs for a
// collaborator layer to fill in, the same way the code this is grounded
// on raised "Not Implemented Yet" for each.
var ErrNotImplemented = errors.New("table: not implemented yet")

// BootstrapAddresses lists the well-known DHT rendezvous servers a new
// node can fall back on once its own routing tree has too few contacts to
// self-sustain a lookup.
var BootstrapAddresses = []string{
	"router.bittorrent.com:6881",
	"router.utorrent.com:6881",
}

// MinimumNodesBeforeBootstrap is the contact count under which a node
// should prefer the bootstrap servers over its own (too-sparse) tree.
const MinimumNodesBeforeBootstrap = 10

// Conn is the minimal socket interface RoutingTable needs, satisfied by
// *net.UDPConn. Tests supply an in-memory fake.
type Conn interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// RoutingTable is the coordinator binding a node's routing tree, wire
// codec, and callback registry to a UDP socket: it is the thing that
// actually sends and receives DHT traffic.
type RoutingTable struct {
	self dht.NodeId
	tree *dht.RoutingTree
	cb   *CallbackRegistry
	conn Conn
	log  *logger.Logger

	ipLimit   netutil.DistinctNetSet
	seen      *lru.Cache // recent (sender id, transaction) query keys
	blocklist *Blocklist

	txnCounter uint32
}

// NewRoutingTable returns a coordinator for a freshly chosen self id, bound
// to conn for sending.
func NewRoutingTable(self dht.NodeId, conn Conn) *RoutingTable {
	seen, err := lru.New(recentQueryCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which
		// recentQueryCacheSize never is.
		panic(err)
	}
	return &RoutingTable{
		self:    self,
		tree:    dht.NewRoutingTree(self),
		cb:      NewCallbackRegistry(),
		conn:    conn,
		log:     logger.NewLogger("table"),
		ipLimit: netutil.DistinctNetSet{Subnet: 24, Limit: 4},
		seen:    seen,
	}
}

// SetBlocklist installs a live-reloadable ban list; endpoints it reports as
// blocked are rejected by considerContact regardless of anything else about
// the contact.
func (rt *RoutingTable) SetBlocklist(b *Blocklist) { rt.blocklist = b }

// Self returns the node's own id.
func (rt *RoutingTable) Self() dht.NodeId { return rt.self }

// Tree returns the underlying routing tree.
func (rt *RoutingTable) Tree() *dht.RoutingTree { return rt.tree }

// Size returns the number of contacts currently tracked.
func (rt *RoutingTable) Size() int { return rt.tree.Size() }

func (rt *RoutingTable) newTransaction() string {
	n := atomic.AddUint32(&rt.txnCounter, 1)
	return strconv.FormatUint(uint64(n), 36)
}

// considerContact validates a reported endpoint against the sender it was
// relayed by, then adds or refreshes it in the routing tree. Endpoints
// that look spoofed (a LAN or loopback address claimed by a WAN peer) are
// dropped rather than trusted.
func (rt *RoutingTable) considerContact(id dht.NodeId, addr *net.UDPAddr, relayedBy net.IP) {
	if id == rt.self {
		return
	}
	if rt.blocklist.Blocked(addr.IP) {
		metrics.ContactsDropped.Mark(1)
		return
	}
	if err := netutil.CheckRelayIP(relayedBy, addr.IP); err != nil {
		metrics.ContactsDropped.Mark(1)
		rt.log.Debugf("rejecting relayed contact %s at %s: %v", id, addr, err)
		return
	}
	if _, known := rt.tree.FindContact(id); !known && !rt.ipLimit.Add(addr.IP) {
		metrics.ContactsDropped.Mark(1)
		return
	}
	if rt.tree.AddContact(dht.NewContact(id, addr)) {
		metrics.ContactsAdded.Mark(1)
	}
}

// Ping sends a ping query to target and registers a callback that marks
// the contact good when (and if) a matching reply arrives.
func (rt *RoutingTable) Ping(target *dht.Contact) error {
	txn := rt.newTransaction()
	msg := krpc.EncodePingQuery(txn, rt.self.ToBytes())

	rt.cb.Register(target.Id, krpc.TypeResponse, txn, target.Addr, func(reply *krpc.Message) bool {
		target.SetGood()
		metrics.MsgPingReplyIn.Mark(1)
		return true
	})

	metrics.MsgPingOut.Mark(1)
	return rt.send(msg, target.Addr)
}

// FindNode sends a find_node query to target, asking for the contacts it
// knows closest to queryTarget. Discovered contacts are folded into the
// routing tree as the reply is processed.
func (rt *RoutingTable) FindNode(target *dht.Contact, queryTarget dht.NodeId) error {
	txn := rt.newTransaction()
	msg := krpc.EncodeFindNodeQuery(txn, rt.self.ToBytes(), queryTarget.ToBytes())

	rt.cb.Register(target.Id, krpc.TypeResponse, txn, target.Addr, func(reply *krpc.Message) bool {
		metrics.MsgFindNodeReplyIn.Mark(1)
		nodes, err := reply.GetNodes()
		if err != nil {
			return true
		}
		rt.ingestPackedNodes(nodes, target.Addr.IP)
		return true
	})

	metrics.MsgFindNodeOut.Mark(1)
	return rt.send(msg, target.Addr)
}

func (rt *RoutingTable) ingestPackedNodes(packed []byte, relayedBy net.IP) {
	for off := 0; off+dht.PackedNodeSize <= len(packed); off += dht.PackedNodeSize {
		id, addr, err := dht.PackedNode(packed[off : off+dht.PackedNodeSize])
		if err != nil {
			metrics.MsgMalformedIn.Mark(1)
			continue
		}
		rt.considerContact(id, addr, relayedBy)
	}
}

// HandleMessage decodes a raw datagram received from addr and dispatches
// it: queries get an immediate reply, responses are routed to whichever
// callback is waiting for them.
func (rt *RoutingTable) HandleMessage(raw []byte, addr *net.UDPAddr) error {
	metrics.DatagramIn.Mark(1)
	metrics.DatagramInBytes.Mark(int64(len(raw)))

	m, err := krpc.Decode(raw)
	if err != nil {
		metrics.MsgMalformedIn.Mark(1)
		return err
	}

	switch m.Y {
	case krpc.TypeQuery:
		return rt.handleQuery(m, addr)
	case krpc.TypeResponse:
		rt.considerContact(m.ID, addr, addr.IP)
		if !rt.cb.Match(m.ID, addr, m) {
			rt.log.Warnf("reply without a pending callback from %s", m.ID)
		}
		return nil
	case krpc.TypeError:
		metrics.MsgErrorIn.Mark(1)
		rt.log.Debugf("error reply %d: %s", m.ErrorCode, m.ErrorMessage)
		return nil
	default:
		metrics.MsgMalformedIn.Mark(1)
		return errors.New("table: unhandled message type")
	}
}

func (rt *RoutingTable) handleQuery(m *krpc.Message, addr *net.UDPAddr) error {
	rt.considerContact(m.ID, addr, addr.IP)

	dedupeKey := m.ID.String() + "/" + m.TransactionID
	if rt.seen.Contains(dedupeKey) {
		metrics.DatagramDropped.Mark(1)
		return nil
	}
	rt.seen.Add(dedupeKey, struct{}{})

	switch m.Q {
	case krpc.QueryPing:
		metrics.MsgPingIn.Mark(1)
		reply := krpc.EncodePingReply(m.TransactionID, rt.self.ToBytes())
		metrics.MsgPingReplyOut.Mark(1)
		return rt.send(reply, addr)

	case krpc.QueryFindNode:
		metrics.MsgFindNodeIn.Mark(1)
		closest := rt.tree.Closest(m.Target, dht.BucketSize)
		packed := make([][]byte, 0, len(closest))
		for _, c := range closest {
			if c.Addr.IP.To4() == nil {
				continue
			}
			packed = append(packed, c.Pack())
		}
		reply := krpc.EncodeFindNodeReply(m.TransactionID, rt.self.ToBytes(), packed)
		metrics.MsgFindNodeReplyOut.Mark(1)
		return rt.send(reply, addr)

	default:
		metrics.MsgMalformedIn.Mark(1)
		return errors.New("table: unknown query type " + m.Q)
	}
}

func (rt *RoutingTable) send(msg []byte, addr *net.UDPAddr) error {
	n, err := rt.conn.WriteToUDP(msg, addr)
	if err != nil {
		return err
	}
	metrics.DatagramOut.Mark(1)
	metrics.DatagramOutBytes.Mark(int64(n))
	return nil
}

// Bootstrap contacts the well-known rendezvous servers to seed an empty
// or near-empty routing tree. Not implemented: doing this safely means
// batched, rate-limited pinging plus a self-lookup, which belongs to a
// session-management layer this package doesn't own.
func (rt *RoutingTable) Bootstrap() error {
	return ErrNotImplemented
}

// TableMaintenance periodically refreshes stale buckets and evicts bad
// contacts. Not implemented for the same reason as Bootstrap: it requires
// a scheduling layer above the coordinator.
func (rt *RoutingTable) TableMaintenance() error {
	return ErrNotImplemented
}

// LookForNode runs an iterative find_node lookup converging on target.
// Not implemented: get_peers/announce_peer-style session lookups are out
// of scope for this node.
func (rt *RoutingTable) LookForNode(target dht.NodeId) error {
	return ErrNotImplemented
}
