package krpc

import (
	"testing"

	checker "gopkg.in/check.v1"

	"github.com/ethereumproject/dht/dht"
)

func Test(t *testing.T) { checker.TestingT(t) }

type MessageSuite struct{}

var _ = checker.Suite(&MessageSuite{})

func (s *MessageSuite) TestPingQueryRoundtrip(c *checker.C) {
	id := dht.Random()
	raw := EncodePingQuery("ht", id.ToBytes())

	m, err := Decode(raw)
	c.Assert(err, checker.IsNil)
	c.Assert(m.Y, checker.Equals, TypeQuery)
	c.Assert(m.Q, checker.Equals, QueryPing)
	c.Assert(m.TransactionID, checker.Equals, "ht")
	c.Assert(m.ID, checker.Equals, id)
}

func (s *MessageSuite) TestFindNodeReplyRoundtrip(c *checker.C) {
	id := dht.Random()
	n1 := dht.Random()
	addr1 := &dhtAddr{ip: [4]byte{1, 2, 3, 4}, port: 6881}
	packed := append(n1.ToBytes(), addr1.bytes()...)

	raw := EncodeFindNodeReply("zz", id.ToBytes(), [][]byte{packed})
	m, err := Decode(raw)
	c.Assert(err, checker.IsNil)
	c.Assert(m.Y, checker.Equals, TypeResponse)
	c.Assert(m.ID, checker.Equals, id)
	c.Assert(len(m.RNodes), checker.Equals, dht.PackedNodeSize)
}

// dhtAddr is a tiny helper building a packed IPv4+port suffix without
// pulling in net.UDPAddr for this one test.
type dhtAddr struct {
	ip   [4]byte
	port uint16
}

func (a *dhtAddr) bytes() []byte {
	return []byte{a.ip[0], a.ip[1], a.ip[2], a.ip[3], byte(a.port >> 8), byte(a.port)}
}
