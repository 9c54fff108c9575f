package exchange

import (
	"errors"
	"net"
	"os"
	"time"
)

// idleTimeoutScheduler arms a deadline around each read or write on a
// channel and translates a resulting deadline-exceeded error into the
// matching IdleTimeout Error, per spec.md §4.8. Grounded on
// shockwave/http11.Connection.setDeadline, generalized from a single
// per-connection deadline (armed once before Parse) to a deadline armed
// around every individual read and every individual write, since spec.md
// requires the timer not be reset mid-operation and to cover writes too.
type idleTimeoutScheduler struct {
	conn    net.Conn
	timeout time.Duration
}

func newIdleTimeoutScheduler(conn net.Conn, timeout time.Duration) *idleTimeoutScheduler {
	return &idleTimeoutScheduler{conn: conn, timeout: timeout}
}

// armRead sets a read deadline for the next read operation; callers must
// call disarm when the read completes (success or failure) to avoid
// leaking a deadline onto an unrelated later read.
func (s *idleTimeoutScheduler) armRead() error {
	if s.timeout <= 0 {
		return nil
	}
	return s.conn.SetReadDeadline(time.Now().Add(s.timeout))
}

func (s *idleTimeoutScheduler) armWrite() error {
	if s.timeout <= 0 {
		return nil
	}
	return s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
}

func (s *idleTimeoutScheduler) disarm() {
	if s.timeout <= 0 {
		return
	}
	// A zero Time clears the deadline. Errors here are not actionable:
	// the connection may already be closed by the caller's error path.
	_ = s.conn.SetDeadline(time.Time{})
}

// classifyIOError converts a raw I/O error observed during a timed read or
// write into the appropriate tagged Error. readSide distinguishes the
// IdleTimeout(read) vs IdleTimeout(write) default response mapping.
func classifyIOError(err error, readSide bool) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		if readSide {
			return ErrIdleTimeoutRead
		}
		return ErrIdleTimeoutWrite
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		if readSide {
			return ErrIdleTimeoutRead
		}
		return ErrIdleTimeoutWrite
	}
	return err
}

// shutdownStream half-closes the read and write sides of conn where the
// connection type supports it, then closes the whole connection. The
// scheduler does not call it: idle timeouts are enforced by the deadlines
// armRead/armWrite set, whose expiry fails the pending I/O and is mapped
// to IdleTimeout by classifyIOError.
func shutdownStream(conn net.Conn) {
	type closeReader interface{ CloseRead() error }
	type closeWriter interface{ CloseWrite() error }
	if cr, ok := conn.(closeReader); ok {
		_ = cr.CloseRead()
	}
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
	_ = conn.Close()
}
