package dht

import (
	"sort"
	"sync"
)

// RoutingTree is the node's view of the rest of the id space: a set of
// buckets whose intervals partition [MinId, MaxId], refined by splitting
// whenever a full bucket containing the table's own id needs more room.
//
// Reads (lookups, size queries) take a read lock. AddContact modifies
// buckets, so it holds the write lock for the whole insertion, including
// any splits it performs.
type RoutingTree struct {
	self NodeId

	mu      sync.RWMutex
	buckets []*Bucket // kept sorted by Low
}

// NewRoutingTree returns a tree for a node whose own id is self, with a
// single bucket spanning the entire id space.
func NewRoutingTree(self NodeId) *RoutingTree {
	t := &RoutingTree{self: self}
	t.Clear()
	return t
}

// Clear resets the tree to its initial single-bucket state.
func (t *RoutingTree) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buckets = []*Bucket{NewBucket(MinId, MaxId)}
}

// Self returns the id this tree is rooted at.
func (t *RoutingTree) Self() NodeId { return t.self }

// findBucketLocked returns the index of the bucket whose range contains id.
// Callers must hold at least a read lock.
func (t *RoutingTree) findBucketLocked(id NodeId) int {
	i := sort.Search(len(t.buckets), func(i int) bool {
		return !t.buckets[i].High.Less(id)
	})
	if i < len(t.buckets) && t.buckets[i].InBounds(id) {
		return i
	}
	// Should be unreachable: buckets always partition the full id space.
	panic("dht: no bucket covers id " + id.String())
}

// AddContact inserts or refreshes a contact. It reports whether the
// contact ended up tracked: false means its bucket was full with no bad
// contact to evict and either doesn't contain the table's own id (so isn't
// eligible for splitting) or can't be split any further, and the contact
// was dropped.
func (t *RoutingTree) AddContact(c *Contact) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.findBucketLocked(c.Id)
	bucket := t.buckets[i]
	for {
		if ok := bucket.Add(c); ok {
			return true
		}
		if !bucket.ContainsSelf(t.self) {
			return false
		}

		// The bucket is full, doesn't have room, but covers our own id:
		// split it and retry the insertion in whichever half now covers c.
		lower, upper, ok := t.splitLocked(i)
		if !ok {
			// Already maximally split (bucket spans a single id); nothing
			// more to do.
			return false
		}
		if bucket = lower; !lower.InBounds(c.Id) {
			i, bucket = i+1, upper
		}
	}
}

// splitLocked splits the bucket at index i into two halves, redistributing
// its contacts, and reports the new (lower, upper) buckets. Callers must
// hold the write lock.
func (t *RoutingTree) splitLocked(i int) (lower, upper *Bucket, ok bool) {
	bucket := t.buckets[i]
	midLow, midHigh, ok := SplitInHalf(bucket.Low, bucket.High)
	if !ok {
		return nil, nil, false
	}

	lower = NewBucket(bucket.Low, midLow)
	upper = NewBucket(midHigh, bucket.High)
	for _, c := range bucket.Contacts() {
		if lower.InBounds(c.Id) {
			lower.Add(c)
		} else {
			upper.Add(c)
		}
	}

	t.buckets = append(t.buckets, nil)
	copy(t.buckets[i+2:], t.buckets[i+1:])
	t.buckets[i] = lower
	t.buckets[i+1] = upper
	return lower, upper, true
}

// RemoveContact removes the contact with the given id from whichever
// bucket covers it, and reports whether one was removed.
func (t *RoutingTree) RemoveContact(id NodeId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	i := t.findBucketLocked(id)
	return t.buckets[i].Remove(id)
}

// FindContact returns the contact with the given id, if tracked.
func (t *RoutingTree) FindContact(id NodeId) (*Contact, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i := t.findBucketLocked(id)
	return t.buckets[i].Find(id)
}

// Size returns the total number of contacts tracked across all buckets.
func (t *RoutingTree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, b := range t.buckets {
		n += b.Size()
	}
	return n
}

// AllContacts returns every contact tracked across all buckets, in no
// particular order. Used by the persistence layer to snapshot the tree.
func (t *RoutingTree) AllContacts() []*Contact {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, b := range t.buckets {
		n += b.Size()
	}
	out := make([]*Contact, 0, n)
	for _, b := range t.buckets {
		out = append(out, b.contacts...)
	}
	return out
}

// BucketCount returns the number of buckets currently in the tree.
func (t *RoutingTree) BucketCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.buckets)
}

// Closest returns up to n contacts closest to target by XOR distance,
// gathered by walking outward from target's own bucket to neighboring
// buckets until enough candidates are collected or the whole tree has been
// scanned.
func (t *RoutingTree) Closest(target NodeId, n int) []*Contact {
	t.mu.RLock()
	defer t.mu.RUnlock()

	all := make([]*Contact, 0, n*2)
	center := t.findBucketLocked(target)
	lo, hi := center, center-1
	for lo >= 0 || hi < len(t.buckets)-1 {
		if lo >= 0 {
			all = append(all, t.buckets[lo].contacts...)
			lo--
		}
		if hi < len(t.buckets)-1 {
			hi++
			if hi != center {
				all = append(all, t.buckets[hi].contacts...)
			}
		}
		if len(all) >= n*2 {
			break
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].Id.Xor(target).Less(all[j].Id.Xor(target))
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
