// Package lock implements the process-global, path-keyed reader/writer
// lock registry: many concurrent readers of the same path, or one writer,
// never both, with acquisition timeouts and owner-checked release.
//
// Grounded on shockwave/pkg/shockwave/server.BaseServer's connection-
// tracking map (sync-guarded map[T]struct{} with explicit track/untrack
// lifecycle), generalized from "track a live connection" to "track live
// lock holders per path" since spec.md's file-serving component needs
// cooperative exclusion between concurrent requests touching the same
// on-disk path rather than just connection bookkeeping.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimeout is returned when Acquire could not obtain the lock before
	// its deadline.
	ErrTimeout = errors.New("lock: acquire timed out")

	// ErrIllegalUpgrade is returned when a reader owner attempts to acquire
	// a write lock on the same path it already holds for reading — the
	// registry refuses upgrades outright rather than risk a deadlock
	// between two readers each waiting to upgrade.
	ErrIllegalUpgrade = errors.New("lock: read lock cannot be upgraded to a write lock")

	// ErrNotOwner is returned when Release is called by a token that is
	// not a current holder of the entry it names.
	ErrNotOwner = errors.New("lock: release called by non-owner")
)

// Mode is the kind of hold a Token represents.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// Token identifies one acquired hold, returned by Acquire and required by
// Release. Tokens are not interchangeable between paths or modes.
type Token struct {
	path  string
	mode  Mode
	owner string
	state *releaseState
}

// releaseState is shared by every copy of a Token so a second Release
// call by the legitimate owner can be recognized as a no-op (spec.md
// §4.9: "repeated release by the owner is NOP") even after the entry
// itself has forgotten that owner — or been removed from the registry
// outright, the common single-holder case.
type releaseState struct {
	mu       sync.Mutex
	released bool
}

type entry struct {
	mu sync.Mutex

	readers   map[string]struct{}
	writer    string
	writerSet bool

	waiters []chan struct{} // FIFO of goroutines blocked waiting for the entry to free up
}

func newEntry() *entry {
	return &entry{readers: make(map[string]struct{})}
}

// Registry is the process-global lock table, keyed by absolute path.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry returns an empty Registry. Applications hold one Registry
// for the lifetime of the process.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// AcquireRead blocks until a read hold on path is granted for owner, ctx
// is done, or timeout elapses, whichever comes first. owner identifies
// the logical caller (e.g. an exchange ID) so a later AcquireWrite call
// by the same owner on the same path can be recognized as an illegal
// upgrade rather than a fresh, unrelated acquisition.
func (r *Registry) AcquireRead(ctx context.Context, path, owner string, timeout time.Duration) (Token, error) {
	return r.acquire(ctx, path, owner, ModeRead, timeout)
}

// AcquireWrite blocks until an exclusive hold on path is granted to owner.
func (r *Registry) AcquireWrite(ctx context.Context, path, owner string, timeout time.Duration) (Token, error) {
	return r.acquire(ctx, path, owner, ModeWrite, timeout)
}

func (r *Registry) acquire(ctx context.Context, path, owner string, mode Mode, timeout time.Duration) (Token, error) {
	deadline := time.Now().Add(timeout)

	for {
		e := r.entryFor(path)
		e.mu.Lock()

		if _, isReader := e.readers[owner]; isReader && mode == ModeWrite {
			e.mu.Unlock()
			return Token{}, ErrIllegalUpgrade
		}

		if granted := tryGrant(e, owner, mode); granted {
			e.mu.Unlock()
			return Token{path: path, mode: mode, owner: owner, state: &releaseState{}}, nil
		}

		wake := make(chan struct{})
		e.waiters = append(e.waiters, wake)
		e.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Token{}, ErrTimeout
		}
		timer := time.NewTimer(remaining)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
			return Token{}, ErrTimeout
		case <-ctx.Done():
			timer.Stop()
			return Token{}, ctx.Err()
		}
	}
}

// tryGrant attempts to grant mode to owner under e.mu already held,
// returning true on success. A write grant requires no readers and no
// writer; a read grant requires no writer.
func tryGrant(e *entry, owner string, mode Mode) bool {
	switch mode {
	case ModeWrite:
		if len(e.readers) == 0 && !e.writerSet {
			e.writerSet = true
			e.writer = owner
			return true
		}
	case ModeRead:
		if !e.writerSet {
			e.readers[owner] = struct{}{}
			return true
		}
	}
	return false
}

// Release gives up tok's hold. If the entry has no remaining holders
// after release, it is removed from the registry, per the teacher's
// untrack-on-last-release convention. A second Release of the same tok
// is a no-op (spec.md §4.9); a tok that never held a lock at all (the
// zero Token, or a state wiped by something other than Release) is
// rejected with ErrNotOwner.
func (r *Registry) Release(tok Token) error {
	if tok.state == nil {
		return ErrNotOwner
	}
	tok.state.mu.Lock()
	if tok.state.released {
		tok.state.mu.Unlock()
		return nil
	}
	tok.state.released = true
	tok.state.mu.Unlock()

	r.mu.Lock()
	e, ok := r.entries[tok.path]
	r.mu.Unlock()
	if !ok {
		return ErrNotOwner
	}

	e.mu.Lock()
	switch tok.mode {
	case ModeWrite:
		if !e.writerSet || e.writer != tok.owner {
			e.mu.Unlock()
			return ErrNotOwner
		}
		e.writerSet = false
		e.writer = ""
	case ModeRead:
		if _, ok := e.readers[tok.owner]; !ok {
			e.mu.Unlock()
			return ErrNotOwner
		}
		delete(e.readers, tok.owner)
	}
	waiters := e.waiters
	e.waiters = nil
	empty := len(e.readers) == 0 && !e.writerSet
	e.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	if empty {
		r.mu.Lock()
		if cur, ok := r.entries[tok.path]; ok && cur == e {
			cur.mu.Lock()
			stillEmpty := len(cur.readers) == 0 && !cur.writerSet
			cur.mu.Unlock()
			if stillEmpty {
				delete(r.entries, tok.path)
			}
		}
		r.mu.Unlock()
	}
	return nil
}

func (r *Registry) entryFor(path string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[path]
	if !ok {
		e = newEntry()
		r.entries[path] = e
	}
	return e
}
