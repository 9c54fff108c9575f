package exchange

import "errors"

// Kind tags an Error with the taxonomy category from which the exception
// pipeline (C7) picks a default response. Kept flat and switchable instead
// of a type hierarchy, per the teacher's own sentinel-error style.
type Kind uint8

const (
	KindOther Kind = iota

	// Client framing
	KindBadHeader
	KindRequestLineParse
	KindVersionParse
	KindVersionTooOld
	KindVersionTooNew
	KindIllegalRequestBody
	KindIllegalResponseBody

	// Resource limit
	KindMaxHeadSize
	KindMaxBody
	KindMaxTrailers

	// Resolution
	KindNoRouteFound
	KindMethodNotAllowed
	KindMediaTypeUnsupported
	KindRouteCollision
	KindPatternInvalid

	// Flow
	KindResponseRejected
	KindIllegalState
	KindIdleTimeoutRead
	KindIdleTimeoutWrite
	KindLockTimeout
	KindIllegalLockUpgrade
	KindIllegalMonitorState
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindBadHeader:
		return "BadHeader"
	case KindRequestLineParse:
		return "RequestLineParseError"
	case KindVersionParse:
		return "VersionParseError"
	case KindVersionTooOld:
		return "VersionTooOld"
	case KindVersionTooNew:
		return "VersionTooNew"
	case KindIllegalRequestBody:
		return "IllegalRequestBody"
	case KindIllegalResponseBody:
		return "IllegalResponseBody"
	case KindMaxHeadSize:
		return "MaxHeadSize"
	case KindMaxBody:
		return "MaxBody"
	case KindMaxTrailers:
		return "MaxTrailers"
	case KindNoRouteFound:
		return "NoRouteFound"
	case KindMethodNotAllowed:
		return "MethodNotAllowed"
	case KindMediaTypeUnsupported:
		return "MediaTypeUnsupported"
	case KindRouteCollision:
		return "RouteCollision"
	case KindPatternInvalid:
		return "PatternInvalid"
	case KindResponseRejected:
		return "ResponseRejected"
	case KindIllegalState:
		return "IllegalState"
	case KindIdleTimeoutRead, KindIdleTimeoutWrite:
		return "IdleTimeout"
	case KindLockTimeout:
		return "LockTimeout"
	case KindIllegalLockUpgrade:
		return "IllegalLockUpgrade"
	case KindIllegalMonitorState:
		return "IllegalMonitorState"
	case KindDisconnect:
		return "Disconnect"
	default:
		return "Other"
	}
}

// Error is the single error type the exchange driver ever produces on its
// own behalf. The exception pipeline switches on Kind; Unwrap keeps
// errors.Is/As working against the wrapped sentinel.
type Error struct {
	Kind Kind
	Err  error

	// Reason carries extra context a default handler may want, e.g. the
	// set of allowed methods for KindMethodNotAllowed.
	Reason any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// wrapError builds an Error of the given Kind wrapping err, optionally
// attaching a Reason value (e.g. the offending header line, a byte count).
func wrapError(kind Kind, err error, reason ...any) *Error {
	e := &Error{Kind: kind, Err: err}
	if len(reason) > 0 {
		e.Reason = reason[0]
	}
	return e
}

// Sentinel errors, grounded on shockwave/http11/errors.go's pre-allocated
// package-var style.
var (
	ErrInvalidRequestLine    = newError(KindRequestLineParse, "exchange: invalid request line")
	ErrInvalidMethod         = newError(KindRequestLineParse, "exchange: invalid method")
	ErrInvalidPath           = newError(KindRequestLineParse, "exchange: invalid request target")
	ErrVersionParse          = newError(KindVersionParse, "exchange: malformed HTTP version")
	ErrVersionTooOld         = newError(KindVersionTooOld, "exchange: HTTP version below minimum")
	ErrVersionTooNew         = newError(KindVersionTooNew, "exchange: HTTP version above maximum")
	ErrBadHeader             = newError(KindBadHeader, "exchange: malformed header")
	ErrFoldedHeader          = newError(KindBadHeader, "exchange: obsolete line folding rejected")
	ErrDuplicateContentLen   = newError(KindBadHeader, "exchange: conflicting Content-Length headers")
	ErrFramingConflict       = newError(KindBadHeader, "exchange: Content-Length and Transfer-Encoding both present")
	ErrIllegalRequestBody    = newError(KindIllegalRequestBody, "exchange: method must not carry a body")
	ErrMaxHeadSize           = newError(KindMaxHeadSize, "exchange: request head too large")
	ErrMaxTrailers           = newError(KindMaxTrailers, "exchange: trailers too large")
	ErrMaxBody               = newError(KindMaxBody, "exchange: buffered request body too large")
	ErrNoRouteFound          = newError(KindNoRouteFound, "exchange: no route for path")
	ErrMediaTypeUnsupported  = newError(KindMediaTypeUnsupported, "exchange: unsupported media type")
	ErrRouteCollision        = newError(KindRouteCollision, "exchange: route collides with an existing registration")
	ErrPatternInvalid        = newError(KindPatternInvalid, "exchange: invalid route pattern")
	ErrIllegalState          = newError(KindIllegalState, "exchange: illegal channel state")
	ErrIllegalResponseBody   = newError(KindIllegalResponseBody, "exchange: response must not carry a body")
	ErrIdleTimeoutRead       = newError(KindIdleTimeoutRead, "exchange: idle read timeout")
	ErrIdleTimeoutWrite      = newError(KindIdleTimeoutWrite, "exchange: idle write timeout")
	ErrLockTimeout           = newError(KindLockTimeout, "exchange: path lock acquisition timed out")
	ErrIllegalLockUpgrade    = newError(KindIllegalLockUpgrade, "exchange: read lock cannot be upgraded to a write lock")
	ErrIllegalMonitorState   = newError(KindIllegalMonitorState, "exchange: lock released by non-owner")
	ErrDisconnect            = newError(KindDisconnect, "exchange: peer disconnected")
)

// MethodNotAllowed carries the set of implemented methods for a path whose
// method did not match any registered route.
type MethodNotAllowedError struct {
	*Error
	Method  string
	Allowed []string
}

func newMethodNotAllowed(method string, allowed []string) *MethodNotAllowedError {
	return &MethodNotAllowedError{
		Error:   &Error{Kind: KindMethodNotAllowed, Err: errors.New("exchange: method not allowed")},
		Method:  method,
		Allowed: allowed,
	}
}

// Unwrap returns the embedded *Error directly rather than the promoted
// *Error.Unwrap (which would return the wrapped plain error instead,
// defeating errors.As(err, &exchErr) one level too deep).
func (e *MethodNotAllowedError) Unwrap() error { return e.Error }

// ResponseRejected signals an interim response could not be delivered to a
// client that does not support it.
type ResponseRejectedError struct {
	*Error
	Reason string
}

func newResponseRejected(reason string) *ResponseRejectedError {
	return &ResponseRejectedError{
		Error:  &Error{Kind: KindResponseRejected, Err: errors.New("exchange: response rejected: " + reason)},
		Reason: reason,
	}
}

// Unwrap returns the embedded *Error directly; see MethodNotAllowedError's
// Unwrap for why this override is necessary.
func (e *ResponseRejectedError) Unwrap() error { return e.Error }
