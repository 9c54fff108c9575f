package exchange

import (
	"bytes"
	"strconv"
	"strings"
)

// headParser accumulates bytes from a channelReader until a full request
// head (request-line + headers + terminating CRLF CRLF) is available, then
// parses it into a Head. Grounded on shockwave/http11.Parser's
// readUntilHeadersEnd/parseRequestLine/parseHeaders state machine,
// generalized to enforce the cap incrementally as bytes arrive (spec.md
// §4.2 edge case: "the cap is enforced during accumulation, not only after
// a complete head is buffered") rather than only after a full head has
// already been buffered in memory.
type headParser struct {
	reader  *channelReader
	maxSize int

	buf []byte
}

func newHeadParser(reader *channelReader, maxSize int) *headParser {
	return &headParser{reader: reader, maxSize: maxSize, buf: make([]byte, 0, 512)}
}

// parseHead reads and parses one request head. Returns MaxHeadSize if the
// cap is exceeded
// before the terminator is seen, or a parse-Kind Error for malformed
// input.
func (p *headParser) parseHead() (*Head, error) {
	raw, err := p.readUntilTerminator()
	if err != nil {
		return nil, err
	}
	return p.parseRaw(raw)
}

// readUntilTerminator accumulates bytes until "\r\n\r\n" is found, pushing
// back anything read past the terminator for the next reader (the body,
// or a pipelined next request). It stops reading once maxSize bytes are
// buffered, and rejects a head whose terminator ends past maxSize.
func (p *headParser) readUntilTerminator() ([]byte, error) {
	chunk := make([]byte, 512)
	for {
		if idx := bytes.Index(p.buf, []byte("\r\n\r\n")); idx >= 0 {
			end := idx + 4
			if end > p.maxSize {
				return nil, wrapError(KindMaxHeadSize, ErrMaxHeadSize, end)
			}
			head := p.buf[:end]
			leftover := p.buf[end:]
			p.reader.pushback(leftover)
			return head, nil
		}
		if len(p.buf) >= p.maxSize {
			return nil, wrapError(KindMaxHeadSize, ErrMaxHeadSize, len(p.buf))
		}
		n, err := p.reader.readSome(chunk)
		if n > 0 {
			p.buf = append(p.buf, chunk[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseRaw parses a complete "request-line CRLF *(header-field CRLF) CRLF"
// block, per RFC 7230 §3. Grounded on shockwave/http11.Parser.parseRequestLine
// and parseHeaders/processSpecialHeader.
func (p *headParser) parseRaw(raw []byte) (*Head, error) {
	text := string(raw[:len(raw)-2]) // strip final CRLF, keep header-terminating blank line split below
	lines := strings.Split(text, "\r\n")
	// Tolerate at most one blank line preceding the request-line, per
	// spec.md §4.2 state 1 and common server practice (RFC 7230 §3.5).
	if len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 || lines[0] == "" {
		return nil, wrapError(KindRequestLineParse, ErrInvalidRequestLine, nil)
	}

	method, target, version, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	header := NewHeader()
	haveHost := false
	haveContentLength := false
	haveTransferEncoding := false
	var rawHeadBytes int64 = int64(len(raw))

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return nil, wrapError(KindBadHeader, ErrFoldedHeader, line)
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, wrapError(KindBadHeader, ErrBadHeader, line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if name == "" || !isValidHeaderName(name) {
			return nil, wrapError(KindBadHeader, ErrBadHeader, line)
		}

		switch strings.ToLower(name) {
		case "host":
			if haveHost {
				return nil, wrapError(KindBadHeader, ErrBadHeader, "duplicate Host")
			}
			haveHost = true
		case "content-length":
			if haveContentLength {
				return nil, wrapError(KindBadHeader, ErrDuplicateContentLen, value)
			}
			haveContentLength = true
			if _, convErr := strconv.ParseInt(value, 10, 64); convErr != nil {
				return nil, wrapError(KindBadHeader, ErrBadHeader, "malformed Content-Length")
			}
		case "transfer-encoding":
			haveTransferEncoding = true
		}
		header.Add(name, value)
	}

	if haveContentLength && haveTransferEncoding {
		return nil, wrapError(KindBadHeader, ErrFramingConflict, nil)
	}

	return &Head{
		Method:        method,
		RequestTarget: target,
		Version:       version,
		Header:        header,
		RawHeadBytes:  rawHeadBytes,
	}, nil
}

// parseRequestLine splits "METHOD SP target SP HTTP/major.minor" per RFC
// 7230 §3.1.1, grounded on shockwave/http11.Parser.parseRequestLine.
func parseRequestLine(line string) (method, target string, version Version, err error) {
	first := strings.IndexByte(line, ' ')
	if first < 0 {
		return "", "", Version{}, wrapError(KindRequestLineParse, ErrInvalidRequestLine, line)
	}
	rest := line[first+1:]
	second := strings.IndexByte(rest, ' ')
	if second < 0 {
		return "", "", Version{}, wrapError(KindRequestLineParse, ErrInvalidRequestLine, line)
	}
	method = line[:first]
	target = rest[:second]
	proto := rest[second+1:]

	if method == "" || containsCTL(method) {
		return "", "", Version{}, wrapError(KindRequestLineParse, ErrInvalidMethod, line)
	}
	if target == "" || containsCTL(target) {
		return "", "", Version{}, wrapError(KindRequestLineParse, ErrInvalidPath, line)
	}

	v, verr := parseVersion(proto)
	if verr != nil {
		return "", "", Version{}, verr
	}
	return method, target, v, nil
}

// isValidHeaderName reports whether every byte of name is a valid RFC
// 7230 §3.2.6 token byte; a header line whose name fails this is BadHeader.
func isValidHeaderName(name string) bool {
	for i := 0; i < len(name); i++ {
		if !validHeaderNameByte(name[i]) {
			return false
		}
	}
	return true
}

// containsCTL reports whether s holds any control byte, per RFC 7230
// §3.1.1: a method or request-target containing one is a parse error.
func containsCTL(s string) bool {
	for i := 0; i < len(s); i++ {
		if isCTL(s[i]) {
			return true
		}
	}
	return false
}

// parseVersion parses "HTTP/major.minor".
func parseVersion(proto string) (Version, error) {
	const prefix = "HTTP/"
	if !strings.HasPrefix(proto, prefix) || len(proto) != len(prefix)+3 {
		return Version{}, wrapError(KindVersionParse, ErrVersionParse, proto)
	}
	rest := proto[len(prefix):]
	if rest[1] != '.' {
		return Version{}, wrapError(KindVersionParse, ErrVersionParse, proto)
	}
	major, err1 := strconv.Atoi(string(rest[0]))
	minor, err2 := strconv.Atoi(string(rest[2]))
	if err1 != nil || err2 != nil {
		return Version{}, wrapError(KindVersionParse, ErrVersionParse, proto)
	}
	return Version{Major: major, Minor: minor}, nil
}

// parseTrailers parses a trailer block (same grammar, sans request-line),
// reusing the head terminator scan with trailersMaxSize as the cap, per
// spec.md §4.3's "trailer parsing reuses the head parser state machine."
func parseTrailers(reader *channelReader, maxSize int) (*Header, error) {
	p := newHeadParser(reader, maxSize)
	raw, err := p.readUntilTerminator()
	if err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindMaxHeadSize {
			return nil, wrapError(KindMaxTrailers, ErrMaxTrailers, e.Reason)
		}
		return nil, err
	}
	text := string(raw[:len(raw)-2])
	if text == "" {
		return NewHeader(), nil
	}
	header := NewHeader()
	for _, line := range strings.Split(text, "\r\n") {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, wrapError(KindBadHeader, ErrBadHeader, line)
		}
		name := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		header.Add(name, value)
	}
	return header, nil
}
