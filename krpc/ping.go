package krpc

import "github.com/ethereumproject/dht/bencode"

// EncodePingQuery renders a ping query:
//
//	d1:ad2:id20:<id>e1:q4:ping1:t<n>:<transactionID>1:y1:qe
func EncodePingQuery(transactionID string, id []byte) []byte {
	e := bencode.NewEncoder()
	e.StartDictionary()

	e.AddString([]byte("a"))
	e.StartDictionary()
	e.AddDictionaryStringElement("id", string(id))
	e.EndDictionary()

	e.AddDictionaryStringElement("q", QueryPing)
	e.AddDictionaryStringElement("t", transactionID)
	e.AddDictionaryStringElement("y", TypeQuery)

	e.EndDictionary()
	return e.Bytes()
}

// EncodePingReply renders a ping response:
//
//	d1:rd2:id20:<id>e1:t<n>:<transactionID>1:y1:re
func EncodePingReply(transactionID string, id []byte) []byte {
	e := bencode.NewEncoder()
	e.StartDictionary()

	e.AddString([]byte("r"))
	e.StartDictionary()
	e.AddDictionaryStringElement("id", string(id))
	e.EndDictionary()

	e.AddDictionaryStringElement("t", transactionID)
	e.AddDictionaryStringElement("y", TypeResponse)

	e.EndDictionary()
	return e.Bytes()
}
