package krpc

import "github.com/ethereumproject/dht/bencode"

// EncodeFindNodeQuery renders a find_node query:
//
//	d1:ad2:id20:<id>6:target20:<target>e1:q9:find_node1:t<n>:<transactionID>1:y1:qe
func EncodeFindNodeQuery(transactionID string, id, target []byte) []byte {
	e := bencode.NewEncoder()
	e.StartDictionary()

	e.AddString([]byte("a"))
	e.StartDictionary()
	e.AddDictionaryStringElement("id", string(id))
	e.AddDictionaryStringElement("target", string(target))
	e.EndDictionary()

	e.AddDictionaryStringElement("q", QueryFindNode)
	e.AddDictionaryStringElement("t", transactionID)
	e.AddDictionaryStringElement("y", TypeQuery)

	e.EndDictionary()
	return e.Bytes()
}

// EncodeFindNodeReply renders a find_node response whose "nodes" value is
// the concatenation of one or more 26-byte compact packed nodes:
//
//	d1:rd2:id20:<id>5:nodes<n>:<packed...>e1:t<n>:<transactionID>1:y1:re
func EncodeFindNodeReply(transactionID string, id []byte, packedNodes [][]byte) []byte {
	e := bencode.NewEncoder()
	e.StartDictionary()

	e.AddString([]byte("r"))
	e.StartDictionary()
	e.AddDictionaryStringElement("id", string(id))

	var nodes []byte
	for _, p := range packedNodes {
		nodes = append(nodes, p...)
	}
	e.AddDictionaryElement([]byte("nodes"), nodes)
	e.EndDictionary()

	e.AddDictionaryStringElement("t", transactionID)
	e.AddDictionaryStringElement("y", TypeResponse)

	e.EndDictionary()
	return e.Bytes()
}
