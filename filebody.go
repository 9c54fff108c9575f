package exchange

import (
	"context"
	"time"

	"github.com/watt-toolkit/exchange/lock"
	"github.com/watt-toolkit/exchange/respbody"
)

// FileServer opens on-disk files as response bodies, coordinating with a
// path lock registry (C9) so a file being written by one exchange cannot
// be read by another mid-write. Grounded on spec.md §4.12's requirement
// that file bodies participate in the same lock registry that handlers
// reach directly through Engine.Locks, rather than reading files unguarded.
type FileServer struct {
	locks       *lock.Registry
	lockTimeout time.Duration
}

// NewFileServer returns a FileServer that acquires read locks from locks,
// waiting up to lockTimeout for each acquisition before reporting
// KindLockTimeout. NewEngine builds one from the Engine's own Config
// (TimeoutFileLock) and Engine.Files returns it, so application code
// rarely needs to call this directly.
func NewFileServer(locks *lock.Registry, lockTimeout time.Duration) *FileServer {
	return &FileServer{locks: locks, lockTimeout: lockTimeout}
}

// Open acquires a read lock on path under owner (typically the
// requesting exchange's ExchangeID) and returns a BodySource streaming
// the file's contents. The lock is released when the returned body is
// closed, whether by a full read-to-EOF or an early Close.
func (s *FileServer) Open(ctx context.Context, path, owner string) (BodySource, error) {
	tok, err := s.locks.AcquireRead(ctx, path, owner, s.lockTimeout)
	if err != nil {
		return nil, translateLockError(err)
	}

	body, err := respbody.OpenFile(path, &lockRelease{registry: s.locks, token: tok})
	if err != nil {
		_ = s.locks.Release(tok)
		return nil, err
	}
	return body, nil
}

// lockRelease adapts one acquired lock.Token to respbody's fileLock
// capability interface, so respbody never needs to import the lock
// package directly.
type lockRelease struct {
	registry *lock.Registry
	token    lock.Token
}

func (l *lockRelease) ReleaseRead() error {
	return l.registry.Release(l.token)
}

func translateLockError(err error) error {
	switch err {
	case lock.ErrTimeout:
		return wrapError(KindLockTimeout, ErrLockTimeout)
	case lock.ErrIllegalUpgrade:
		return wrapError(KindIllegalLockUpgrade, ErrIllegalLockUpgrade)
	case lock.ErrNotOwner:
		return wrapError(KindIllegalMonitorState, ErrIllegalMonitorState)
	default:
		return err
	}
}
