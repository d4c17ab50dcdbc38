package dht

import (
	"fmt"
	"sort"
)

// BucketSize is K, the maximum number of contacts a single bucket holds.
const BucketSize = 8

// Bucket holds up to BucketSize contacts whose ids fall within [Low, High].
// Contacts are kept sorted by id so lookups and range checks are simple
// binary searches.
type Bucket struct {
	Low, High NodeId
	contacts  []*Contact
}

// NewBucket returns an empty bucket spanning the closed interval [low, high].
func NewBucket(low, high NodeId) *Bucket {
	return &Bucket{Low: low, High: high}
}

// InBounds reports whether id falls within the bucket's interval.
func (b *Bucket) InBounds(id NodeId) bool {
	return InRange(id, b.Low, b.High)
}

// Size returns the number of contacts currently held.
func (b *Bucket) Size() int { return len(b.contacts) }

// Full reports whether the bucket is at capacity.
func (b *Bucket) Full() bool { return len(b.contacts) >= BucketSize }

// Contacts returns the bucket's contacts in ascending id order. The slice
// is a copy; mutating it doesn't affect the bucket.
func (b *Bucket) Contacts() []*Contact {
	out := make([]*Contact, len(b.contacts))
	copy(out, b.contacts)
	return out
}

func (b *Bucket) indexOf(id NodeId) (int, bool) {
	i := sort.Search(len(b.contacts), func(i int) bool {
		return !b.contacts[i].Id.Less(id)
	})
	if i < len(b.contacts) && b.contacts[i].Id == id {
		return i, true
	}
	return i, false
}

// Find returns the contact with the given id, if present.
func (b *Bucket) Find(id NodeId) (*Contact, bool) {
	i, ok := b.indexOf(id)
	if !ok {
		return nil, false
	}
	return b.contacts[i], true
}

// Add inserts c into the bucket, or refreshes it if c's id is already
// present. It reports whether the contact now occupies a slot: false means
// the bucket was full and none of its contacts was bad enough to evict, so
// c was rejected (the caller, RoutingTree, then decides whether to split).
//
// Add never duplicates a contact already tracked: re-adding a known id is
// treated as a liveness refresh, not a second insertion.
func (b *Bucket) Add(c *Contact) bool {
	if c == nil {
		panic("dht: nil contact")
	}
	if !b.InBounds(c.Id) {
		panic(fmt.Sprintf("dht: contact %s is out of bounds for bucket [%s, %s]", c.Id, b.Low, b.High))
	}

	if i, ok := b.indexOf(c.Id); ok {
		b.contacts[i].SetGood()
		return true
	}

	if b.Full() {
		b.removeBad()
	}
	if b.Full() {
		return false
	}

	i, _ := b.indexOf(c.Id)
	b.contacts = append(b.contacts, nil)
	copy(b.contacts[i+1:], b.contacts[i:])
	b.contacts[i] = c
	return true
}

// Remove drops the contact with the given id, if present, and reports
// whether one was removed.
func (b *Bucket) Remove(id NodeId) bool {
	i, ok := b.indexOf(id)
	if !ok {
		return false
	}
	b.contacts = append(b.contacts[:i], b.contacts[i+1:]...)
	return true
}

// removeBad evicts every contact currently judged bad, making room for new
// insertions without discarding contacts that are merely questionable.
func (b *Bucket) removeBad() {
	kept := b.contacts[:0]
	for _, c := range b.contacts {
		if !c.IsBad() {
			kept = append(kept, c)
		}
	}
	b.contacts = kept
}

// ContainsSelf reports whether id falls within the bucket's range; used by
// RoutingTree to decide whether a full bucket is eligible for splitting.
func (b *Bucket) ContainsSelf(self NodeId) bool {
	return b.InBounds(self)
}
