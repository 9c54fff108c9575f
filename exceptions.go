package exchange

import (
	"errors"
	"io"
)

// ExceptionHandler maps an error raised anywhere in an exchange (parsing,
// routing, a before/after action, the route handler itself) to a
// Response. Handlers are tried in registration order; a handler that
// cannot handle a particular error returns (nil, false) so the next
// handler (or the terminal default mapping) gets a turn, per spec.md
// §4.7. Grounded on shockwave/server's panic-recovery convention,
// generalized into an explicit chain because spec.md requires
// application-supplied handlers to run ahead of, and be able to
// completely override, the built-in default mapping.
type ExceptionHandler func(err error, req *Request) (*Response, bool)

// exceptionPipeline runs a chain of ExceptionHandlers followed by the
// terminal default mapping table (defaultMapping), capping the number of
// error responses a single exchange may emit at maxErrorResponses —
// spec.md §4.7's guard against an exception handler itself erroring
// repeatedly and looping forever.
type exceptionPipeline struct {
	handlers              []ExceptionHandler
	maxErrorResponses     int
	implementMissingOptions bool
	emitted               int
}

func newExceptionPipeline(handlers []ExceptionHandler, maxErrorResponses int, implementMissingOptions bool) *exceptionPipeline {
	return &exceptionPipeline{
		handlers:                handlers,
		maxErrorResponses:       maxErrorResponses,
		implementMissingOptions: implementMissingOptions,
	}
}

// handle converts err into a Response for req. If the pipeline has
// already emitted maxErrorResponses responses for this exchange, handle
// returns an Error tagged KindIllegalState instead of a Response,
// signaling the driver must close the connection outright rather than
// attempt yet another error response.
func (p *exceptionPipeline) handle(err error, req *Request) (*Response, error) {
	if p.emitted >= p.maxErrorResponses {
		return nil, wrapError(KindIllegalState, ErrIllegalState, "max_error_responses exceeded")
	}

	for _, h := range p.handlers {
		if resp, ok := h(err, req); ok {
			p.emitted++
			return resp, nil
		}
	}

	p.emitted++
	return defaultMapping(err, p.implementMissingOptions), nil
}

// defaultMapping is the terminal fallback every exchange falls back to
// once every application-supplied ExceptionHandler has declined an
// error, per spec.md §4.7's exact status-code table. implementMissingOptions
// gates the MethodNotAllowed -> 204 special case, per spec.md §4.4/§4.7:
// a MethodNotAllowedError already carries the method of the request that
// triggered it, so no separate request is needed here.
func defaultMapping(err error, implementMissingOptions bool) *Response {
	var exchErr *Error
	if !errors.As(err, &exchErr) {
		return textError(500, "Internal Server Error")
	}

	switch exchErr.Kind {
	case KindRequestLineParse, KindVersionParse, KindBadHeader:
		return textError(400, "Bad Request")
	case KindVersionTooOld:
		return textError(426, "Upgrade Required").WithHeader("Upgrade", "HTTP/1.1")
	case KindVersionTooNew:
		return textError(505, "HTTP Version Not Supported")
	case KindIllegalRequestBody:
		return textError(400, "Bad Request")
	case KindMaxHeadSize, KindMaxTrailers, KindMaxBody:
		return textError(413, "Payload Too Large")
	case KindNoRouteFound:
		return textError(404, "Not Found")
	case KindMethodNotAllowed:
		mna, ok := err.(*MethodNotAllowedError)
		if ok && implementMissingOptions && mna.Method == "OPTIONS" {
			return NewResponse(204, NewHeader(), EmptyBody).WithHeader("Allow", joinMethods(mna.Allowed))
		}
		resp := textError(405, "Method Not Allowed")
		if ok {
			resp = resp.WithHeader("Allow", joinMethods(mna.Allowed))
		}
		return resp
	case KindMediaTypeUnsupported:
		return textError(415, "Unsupported Media Type")
	case KindResponseRejected:
		return textError(500, "Internal Server Error")
	case KindIdleTimeoutRead:
		return textError(408, "Request Timeout")
	case KindIdleTimeoutWrite:
		return nil // the write side timed out; no response can be delivered
	case KindLockTimeout:
		return textError(503, "Service Unavailable")
	case KindIllegalLockUpgrade, KindIllegalMonitorState:
		return textError(500, "Internal Server Error")
	case KindDisconnect:
		return nil // connection is already gone; nothing to write
	default:
		return textError(500, "Internal Server Error")
	}
}

func textError(status int, body string) *Response {
	h := NewHeader()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	return NewResponse(status, h, newErrBody(body))
}

// errBody is a minimal single-shot BodySource for the default error
// bodies built into this package, kept local to avoid this package
// depending on respbody for its own built-in responses.
type errBody struct {
	data []byte
	done bool
}

func newErrBody(s string) BodySource { return &errBody{data: []byte(s)} }

func (b *errBody) Next() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}
	b.done = true
	return b.data, nil
}
func (b *errBody) Len() (int64, bool) { return int64(len(b.data)), true }
func (b *errBody) Close() error       { return nil }

func joinMethods(methods []string) string {
	out := ""
	for i, m := range methods {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}
