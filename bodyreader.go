package exchange

import (
	"io"
	"strconv"
	"strings"
)

// bodyFraming selects how a request body is delimited on the wire, per
// RFC 7230 §3.3.3 and spec.md §4.3.
type bodyFraming int

const (
	framingNone bodyFraming = iota
	framingContentLength
	framingChunked
)

// BodyReader streams a request body to its single subscriber, per spec.md
// §4.3. It is an io.ReadCloser: Read pulls successive chunks off the wire
// (content-length counted or chunked-decoded), and Close/Discard drains
// any remainder so the channel is ready for the next pipelined request or
// for a clean connection close. Grounded on shockwave/http11's split
// between a plain Content-Length body and ChunkedReader, unified here into
// one type selected at construction time so the exchange driver and
// handlers see a single body-reading surface regardless of framing.
type BodyReader struct {
	reader  *channelReader
	framing bodyFraming

	// Content-Length framing.
	remaining int64

	// Chunked framing.
	chunk        *chunkedState
	trailers     *Header
	trailerCap   int

	err error
}

// newBodyReader selects body framing per spec.md §4.3's precedence: a
// Transfer-Encoding naming "chunked" as its final coding wins over
// Content-Length (the two may never coexist; headParser already rejects
// that combination as a BadHeader). No framing header at all means no
// body (framingNone): Read returns io.EOF immediately.
func newBodyReader(reader *channelReader, head *Head, trailerCap int) (*BodyReader, error) {
	if head.Method == "TRACE" {
		if head.Header.Has("Content-Length") || head.Header.Has("Transfer-Encoding") {
			return nil, wrapError(KindIllegalRequestBody, ErrIllegalRequestBody, "TRACE")
		}
	}

	if te := head.Header.Get("Transfer-Encoding"); te != "" {
		codings := strings.Split(te, ",")
		last := strings.TrimSpace(codings[len(codings)-1])
		if strings.EqualFold(last, "chunked") {
			return &BodyReader{
				reader:     reader,
				framing:    framingChunked,
				chunk:      newChunkedState(),
				trailerCap: trailerCap,
			}, nil
		}
		return nil, wrapError(KindBadHeader, ErrFramingConflict, "unsupported Transfer-Encoding")
	}

	if cl := head.Header.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, wrapError(KindBadHeader, ErrBadHeader, "malformed Content-Length")
		}
		return &BodyReader{reader: reader, framing: framingContentLength, remaining: n}, nil
	}

	return &BodyReader{reader: reader, framing: framingNone}, nil
}

// HasBody reports whether this exchange carries a non-empty body framing,
// used by the exchange driver to decide whether a 100-continue interim
// response is ever relevant.
func (b *BodyReader) HasBody() bool { return b.framing != framingNone }

// Len returns the body's declared length and true if known in advance
// (Content-Length framing); chunked and no-body framings return (0, false)
// and (0, true) respectively.
func (b *BodyReader) Len() (int64, bool) {
	switch b.framing {
	case framingContentLength:
		return b.remaining, true
	case framingNone:
		return 0, true
	default:
		return 0, false
	}
}

// Read implements io.Reader, delegating to the selected framing strategy.
func (b *BodyReader) Read(p []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	var n int
	var err error
	switch b.framing {
	case framingNone:
		return 0, io.EOF
	case framingContentLength:
		n, err = b.readContentLength(p)
	case framingChunked:
		n, err = b.readChunked(p)
	}
	if err != nil && err != io.EOF {
		b.err = err
	}
	return n, err
}

func (b *BodyReader) readContentLength(p []byte) (int, error) {
	if b.remaining == 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.reader.readSome(p)
	b.remaining -= int64(n)
	return n, err
}

func (b *BodyReader) readChunked(p []byte) (int, error) {
	return b.chunk.read(b.reader, p, func(trailers *Header) {
		b.trailers = trailers
	}, b.trailerCap)
}

// Trailers returns the trailer block collected at end-of-chunks, or nil if
// the body used Content-Length framing or has not yet been fully read.
func (b *BodyReader) Trailers() *Header { return b.trailers }

// Discard reads and discards any remaining body bytes, used by the
// exchange driver after the response is written, so a persistent
// connection is positioned at the next request, per spec.md §4.6.
func (b *BodyReader) Discard() error {
	buf := make([]byte, 4096)
	for {
		_, err := b.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Close releases resources; for BodyReader this is equivalent to Discard,
// matching io.ReadCloser expectations for callers that defer Close.
func (b *BodyReader) Close() error { return b.Discard() }

// ToBuffer reads the entire body into memory, enforcing maxSize as a hard
// cap (returns MaxBody if exceeded), per spec.md §4.3's buffered-
// conversion cap. Used by the default exception handler pipeline and by
// handlers that opt into eager buffering instead of streaming.
func (b *BodyReader) ToBuffer(maxSize int64) ([]byte, error) {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := b.Read(chunk)
		if n > 0 {
			if int64(len(buf)+n) > maxSize {
				return nil, wrapError(KindMaxBody, ErrMaxBody, maxSize)
			}
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
