package service

import "sync"

// keyedMutex hands out one mutex per entity id, created on first use and
// dropped once the last holder releases it.  It replaces the row locks the
// same flows would take in a database: all reads and writes for an entity
// happen inside its critical section, so no two operations can act on the
// same stale snapshot.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// lock blocks until the entity's mutex is held and returns its release
// func.  Distinct ids use distinct mutexes, so ordered acquisition of two
// different ids cannot self-deadlock.
func (k *keyedMutex) lock(id string) func() {
	k.mu.Lock()
	e := k.entries[id]
	if e == nil {
		e = &lockEntry{}
		k.entries[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, id)
		}
		k.mu.Unlock()
	}
}

// LockTable holds the three lock keyspaces the teller core serializes on.
// Lock ordering across keyspaces is fixed: account before machine.  A
// transfer takes its two account locks in ascending account id.
type LockTable struct {
	accounts *keyedMutex
	machines *keyedMutex
	cards    *keyedMutex
}

func NewLockTable() *LockTable {
	return &LockTable{
		accounts: newKeyedMutex(),
		machines: newKeyedMutex(),
		cards:    newKeyedMutex(),
	}
}

func (t *LockTable) LockAccount(id string) func() { return t.accounts.lock(id) }
func (t *LockTable) LockMachine(id string) func() { return t.machines.lock(id) }
func (t *LockTable) LockCard(id string) func()    { return t.cards.lock(id) }
