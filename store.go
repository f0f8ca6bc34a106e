package zag

import (
	"slices"
	"sync"
)

// Store owns the current EntrySet and serializes replacements of it.
//
// Readers receive immutable snapshots. Writers submit whole-set
// replacements through Update, Merge and Remove; updates are applied in call
// order and subscribers observe them in the same order.
type Store struct {
	// emitMu serializes update+notify so subscribers see versions in order.
	emitMu sync.Mutex

	mu      sync.Mutex
	set     EntrySet
	version uint64
	subs    map[uint64]func(EntrySet)
	order   []uint64 // live subscription ids, ascending
	nextSub uint64
}

// NewStore creates a Store holding entries.
func NewStore(entries ...Entry) *Store {
	return &Store{
		set:  NewEntrySet(entries...),
		subs: make(map[uint64]func(EntrySet)),
	}
}

// Snapshot returns the current set.
func (s *Store) Snapshot() EntrySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Version increases by one on every applied update.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Update replaces the current set with fn(current) and notifies subscribers.
//
// fn must not call back into the Store.
func (s *Store) Update(fn func(EntrySet) EntrySet) EntrySet {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	return s.apply(func(cur EntrySet) (EntrySet, bool) {
		return fn(cur), true
	})
}

// Merge inserts entries, replacing any with the same name.
func (s *Store) Merge(entries ...Entry) EntrySet {
	return s.Update(func(cur EntrySet) EntrySet {
		return cur.Merge(entries...)
	})
}

// Remove deletes name. Removing an absent name changes nothing and
// notifies no one.
func (s *Store) Remove(name string) EntrySet {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	return s.apply(func(cur EntrySet) (EntrySet, bool) {
		if _, ok := cur.Get(name); !ok {
			return cur, false
		}
		return cur.Remove(name), true
	})
}

// apply runs fn under the lock and, if fn reports a change, installs the
// result and notifies subscribers. The caller holds emitMu.
func (s *Store) apply(fn func(EntrySet) (EntrySet, bool)) EntrySet {
	s.mu.Lock()
	next, changed := fn(s.set)
	if !changed {
		s.mu.Unlock()
		return next
	}
	s.set = next
	s.version++
	subs := s.subscribers()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

// Subscribe registers fn to receive every new set. Subscribers run on the
// updating goroutine and must not update the Store. The returned function
// unregisters fn.
func (s *Store) Subscribe(fn func(EntrySet)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.order = append(s.order, id)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		if i := slices.Index(s.order, id); i >= 0 {
			s.order = slices.Delete(s.order, i, i+1)
		}
		s.mu.Unlock()
	}
}

func (s *Store) subscribers() []func(EntrySet) {
	out := make([]func(EntrySet), 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.subs[id])
	}
	return out
}
