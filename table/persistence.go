package table

import (
	"errors"

	"github.com/ethereumproject/dht/dht"
	"github.com/ethereumproject/dht/ethdb"
)

// PersistenceVersion is the only body format this package knows how to
// write and load. Version 0 never had its body format finalized upstream
// and is rejected outright rather than guessed at.
const PersistenceVersion = 1

// ErrUnsupportedVersion is returned by Load when the store's version byte
// doesn't match PersistenceVersion.
var ErrUnsupportedVersion = errors.New("table: unsupported persistence version")

var keyContacts = []byte("contacts")

// Store persists a routing tree's contacts to a goleveldb database so a
// node can reload its peers across restarts instead of bootstrapping from
// scratch every time.
type Store struct {
	db *ethdb.LDBDatabase
}

// OpenStore opens (creating if necessary) a leveldb-backed store at path.
func OpenStore(path string, cache, handles int) (*Store, error) {
	db, err := ethdb.NewLDBDatabase(path, cache, handles)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() { s.db.Close() }

// Save writes every IPv4 contact currently in tree to the store, replacing
// whatever was saved before. Contacts without an IPv4 address are skipped.
func (s *Store) Save(tree *dht.RoutingTree) error {
	body := make([]byte, 1, 1+tree.Size()*dht.PackedNodeSize)
	body[0] = PersistenceVersion

	for _, c := range tree.AllContacts() {
		if c.Addr.IP.To4() == nil {
			continue
		}
		body = append(body, c.Pack()...)
	}
	return s.db.Put(keyContacts, body)
}

// Load reads the saved contacts back and adds each to tree. It returns
// ErrUnsupportedVersion if the stored body's version byte isn't
// PersistenceVersion - this includes version 0, whose body layout was
// never finalized and so can never be safely decoded.
func (s *Store) Load(tree *dht.RoutingTree) error {
	body, err := s.db.Get(keyContacts)
	if err != nil {
		return err
	}
	if len(body) < 1 {
		return ErrUnsupportedVersion
	}
	if body[0] != PersistenceVersion {
		return ErrUnsupportedVersion
	}

	body = body[1:]
	for off := 0; off+dht.PackedNodeSize <= len(body); off += dht.PackedNodeSize {
		id, addr, err := dht.PackedNode(body[off : off+dht.PackedNodeSize])
		if err != nil {
			continue
		}
		tree.AddContact(dht.NewContact(id, addr))
	}
	return nil
}
