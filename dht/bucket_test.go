package dht

import (
	"net"
	"testing"
)

func addrFor(n byte) *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(10, 0, 0, n), Port: 6881}
}

func idWithFirstByte(b byte) NodeId {
	var id NodeId
	id[0] = b
	return id
}

func TestBucketAddWithinBounds(t *testing.T) {
	b := NewBucket(MinId, MaxId)
	c := NewContact(idWithFirstByte(0x42), addrFor(1))
	if !b.Add(c) {
		t.Fatal("expected Add to succeed")
	}
	if b.Size() != 1 {
		t.Fatalf("size = %d, want 1", b.Size())
	}
	got, ok := b.Find(c.Id)
	if !ok || got != c {
		t.Fatal("Find did not return the inserted contact")
	}
}

func TestBucketAddOutOfBoundsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-bounds contact")
		}
	}()
	low, high := idWithFirstByte(0x10), idWithFirstByte(0x20)
	b := NewBucket(low, high)
	b.Add(NewContact(idWithFirstByte(0x30), addrFor(1)))
}

func TestBucketAddDuplicateRefreshesNotDuplicates(t *testing.T) {
	b := NewBucket(MinId, MaxId)
	id := idWithFirstByte(0x01)
	b.Add(NewContact(id, addrFor(1)))
	b.Add(NewContact(id, addrFor(2)))
	if b.Size() != 1 {
		t.Fatalf("size = %d, want 1 after re-adding the same id", b.Size())
	}
}

func TestBucketFullRejectsNewContact(t *testing.T) {
	b := NewBucket(MinId, MaxId)
	for i := 0; i < BucketSize; i++ {
		if !b.Add(NewContact(idWithFirstByte(byte(i)), addrFor(byte(i)))) {
			t.Fatalf("Add #%d should have succeeded", i)
		}
	}
	if b.Add(NewContact(idWithFirstByte(200), addrFor(200))) {
		t.Fatal("Add into a full bucket of good contacts should fail")
	}
}

func TestBucketRemove(t *testing.T) {
	b := NewBucket(MinId, MaxId)
	id := idWithFirstByte(0x05)
	b.Add(NewContact(id, addrFor(5)))
	if !b.Remove(id) {
		t.Fatal("expected Remove to report success")
	}
	if b.Size() != 0 {
		t.Fatalf("size = %d, want 0", b.Size())
	}
	if b.Remove(id) {
		t.Fatal("removing an already-removed id should report false")
	}
}

func TestBucketContactsSortedById(t *testing.T) {
	b := NewBucket(MinId, MaxId)
	order := []byte{5, 1, 9, 3}
	for _, v := range order {
		b.Add(NewContact(idWithFirstByte(v), addrFor(v)))
	}
	contacts := b.Contacts()
	for i := 1; i < len(contacts); i++ {
		if !contacts[i-1].Id.Less(contacts[i].Id) {
			t.Fatalf("contacts not sorted: %v", contacts)
		}
	}
}
