package table

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/ethereumproject/dht/dht"
)

func TestStoreSaveAndLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "contacts"), 16, 16)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	self := dht.Random()
	tree := dht.NewRoutingTree(self)
	for i := 0; i < 6; i++ {
		tree.AddContact(dht.NewContact(dht.Random(), &net.UDPAddr{IP: net.IPv4(1, 2, 3, byte(i)), Port: 6881}))
	}

	if err := store.Save(tree); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := dht.NewRoutingTree(self)
	if err := store.Load(loaded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Size() != tree.Size() {
		t.Fatalf("loaded %d contacts, want %d", loaded.Size(), tree.Size())
	}
}

func TestStoreLoadRejectsVersionZero(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "contacts"), 16, 16)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	if err := store.db.Put(keyContacts, []byte{0}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	tree := dht.NewRoutingTree(dht.Random())
	if err := store.Load(tree); err != ErrUnsupportedVersion {
		t.Fatalf("Load() = %v, want ErrUnsupportedVersion", err)
	}
}

func TestStoreLoadRejectsFutureVersion(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "contacts"), 16, 16)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer store.Close()

	if err := store.db.Put(keyContacts, []byte{PersistenceVersion + 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	tree := dht.NewRoutingTree(dht.Random())
	if err := store.Load(tree); err != ErrUnsupportedVersion {
		t.Fatalf("Load() = %v, want ErrUnsupportedVersion", err)
	}
}
