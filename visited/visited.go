// Package visited provides a concurrent, sharded set of seen fingerprints
// with optional per-fingerprint ancestry for witness-path reconstruction.
package visited

import (
	"sync"

	"github.com/luxfi/checker/fingerprint"
)

// Ancestry records how a fingerprint was first reached: the fingerprint of
// the predecessor state and the action that produced this one. Root records
// (initial states) set Root to true; ParentFP and Action are meaningless on
// a root record.
type Ancestry[A any] struct {
	Root     bool
	ParentFP fingerprint.Fingerprint
	Action   A
	// InitIndex identifies which of the model's InitialStates this record
	// descends from, when Root is true.
	InitIndex int
}

type entry[A any] struct {
	anc Ancestry[A]
}

type shard[A any] struct {
	mu sync.RWMutex
	m  map[fingerprint.Fingerprint]entry[A]
}

// Set is a sharded concurrent set of fingerprints, each carrying at most one
// ancestry record, written once on first insertion.
type Set[A any] struct {
	shards []*shard[A]
	mask   uint64
}

// shardCountFor returns the smallest power of two >= hint, floored at 1.
func shardCountFor(hint int) int {
	if hint < 1 {
		hint = 1
	}
	n := 1
	for n < hint {
		n <<= 1
	}
	return n
}

// New returns a Set sharded across shardHint (rounded up to a power of two)
// shards. A typical caller passes runtime.GOMAXPROCS(0).
func New[A any](shardHint int) *Set[A] {
	n := shardCountFor(shardHint)
	s := &Set[A]{
		shards: make([]*shard[A], n),
		mask:   uint64(n - 1),
	}
	for i := range s.shards {
		s.shards[i] = &shard[A]{m: make(map[fingerprint.Fingerprint]entry[A])}
	}
	return s
}

// shardFor picks a shard by the top bits of fp. Fingerprints are hash
// digests, so their top bits spread evenly; fingerprints that differ only
// in their low bits (such as small sequential values) share a shard.
func (s *Set[A]) shardFor(fp fingerprint.Fingerprint) *shard[A] {
	idx := (uint64(fp) >> 56) & s.mask
	return s.shards[idx]
}

// InsertIfAbsent inserts fp with the given ancestry iff fp is not already
// present, and reports whether the insertion happened. Only the first
// insertion's ancestry is retained.
func (s *Set[A]) InsertIfAbsent(fp fingerprint.Fingerprint, anc Ancestry[A]) bool {
	sh := s.shardFor(fp)

	sh.mu.RLock()
	_, present := sh.m[fp]
	sh.mu.RUnlock()
	if present {
		return false
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, present := sh.m[fp]; present {
		return false
	}
	sh.m[fp] = entry[A]{anc: anc}
	return true
}

// Contains reports whether fp has been inserted.
func (s *Set[A]) Contains(fp fingerprint.Fingerprint) bool {
	sh := s.shardFor(fp)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	_, present := sh.m[fp]
	return present
}

// Ancestry returns the ancestry record for fp, if any.
func (s *Set[A]) Ancestry(fp fingerprint.Fingerprint) (Ancestry[A], bool) {
	sh := s.shardFor(fp)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, present := sh.m[fp]
	return e.anc, present
}

// Len returns the number of unique fingerprints recorded.
func (s *Set[A]) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}
