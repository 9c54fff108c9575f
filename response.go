package exchange

import "io"

// BodySource is the capability set response bodies implement, per
// spec.md §4.12/§9: a finite, non-restartable iterator of byte chunks,
// plus Close and a possibly-unknown Len. Concrete sources (empty, byte
// buffer, string, file, generator) live in package respbody.
type BodySource interface {
	// Next returns the next chunk of the body, or io.EOF once exhausted.
	// A file-backed source (respbody.FileBody) reuses one buffer, so its
	// chunk is valid only until the next call to Next.
	Next() ([]byte, error)

	// Len returns the body's total length and true if known in advance,
	// or (0, false) if unknown (e.g. a generator-backed body).
	Len() (int64, bool)

	// Close releases any held resources (file handles, path locks) even
	// if iteration ended early.
	Close() error
}

// emptyBody is the zero-length BodySource, returned by Response values
// with no body (1xx, 204, 304, HEAD/CONNECT responses, ...).
type emptyBody struct{}

func (emptyBody) Next() ([]byte, error) { return nil, io.EOF }
func (emptyBody) Len() (int64, bool)    { return 0, true }
func (emptyBody) Close() error          { return nil }

// EmptyBody is the shared empty BodySource instance.
var EmptyBody BodySource = emptyBody{}

// Response is an immutable value: status, optional reason phrase, headers,
// and a body source. The same value may be sent on multiple exchanges,
// concurrently, per spec.md §3.
type Response struct {
	Status       int
	ReasonPhrase string // optional; "" means use the standard phrase
	Header       *Header
	Body         BodySource
}

// NewResponse builds a Response with the given status and body. A nil
// body is normalized to EmptyBody.
func NewResponse(status int, header *Header, body BodySource) *Response {
	if header == nil {
		header = NewHeader()
	}
	if body == nil {
		body = EmptyBody
	}
	return &Response{Status: status, Header: header, Body: body}
}

// IsFinal reports whether the response is a final response (status >=
// 200); 100–199 are interim, per the glossary.
func (r *Response) IsFinal() bool { return r.Status >= 200 }

// IsInterim reports whether the response is an interim (1xx) response.
func (r *Response) IsInterim() bool { return r.Status >= 100 && r.Status < 200 }

// WithReason returns a copy of r carrying the given reason phrase.
// Responses are immutable values; builders never mutate in place.
func (r *Response) WithReason(reason string) *Response {
	c := *r
	c.ReasonPhrase = reason
	return &c
}

// WithHeader returns a copy of r with name set to value in its header map.
func (r *Response) WithHeader(name, value string) *Response {
	c := *r
	c.Header = r.Header.Clone()
	c.Header.Set(name, value)
	return &c
}

// ReasonPhraseFor returns the standard reason phrase for an HTTP status
// code, or "" if unrecognized.
func ReasonPhraseFor(status int) string {
	if p, ok := standardReasonPhrases[status]; ok {
		return p
	}
	return ""
}

// standardReasonPhrases is grounded on shockwave/http11.statusText, carried
// essentially verbatim (a lookup table for RFC 7231 §6 reason phrases).
var standardReasonPhrases = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	102: "Processing",
	103: "Early Hints",
	200: "OK",
	201: "Created",
	202: "Accepted",
	203: "Non-Authoritative Information",
	204: "No Content",
	205: "Reset Content",
	206: "Partial Content",
	300: "Multiple Choices",
	301: "Moved Permanently",
	302: "Found",
	303: "See Other",
	304: "Not Modified",
	305: "Use Proxy",
	307: "Temporary Redirect",
	308: "Permanent Redirect",
	400: "Bad Request",
	401: "Unauthorized",
	402: "Payment Required",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	406: "Not Acceptable",
	407: "Proxy Authentication Required",
	408: "Request Timeout",
	409: "Conflict",
	410: "Gone",
	411: "Length Required",
	412: "Precondition Failed",
	413: "Payload Too Large",
	414: "URI Too Long",
	415: "Unsupported Media Type",
	416: "Range Not Satisfiable",
	417: "Expectation Failed",
	418: "I'm a teapot",
	422: "Unprocessable Entity",
	425: "Too Early",
	426: "Upgrade Required",
	428: "Precondition Required",
	429: "Too Many Requests",
	431: "Request Header Fields Too Large",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
	505: "HTTP Version Not Supported",
}
