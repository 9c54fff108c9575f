package exchange

import (
	"bytes"
	"io"
	"strconv"
	"strings"
)

// chunkedState decodes an RFC 7230 §4.1 chunked transfer coding off a
// channelReader. Grounded on shockwave/http11.ChunkedReader, adapted from
// a bufio.Reader-backed implementation to pull through channelReader (so
// idle-timeout scheduling and pushback stay centralized there) and to
// invoke a callback with the parsed trailer block instead of discarding
// it, since spec.md §4.3 requires trailers be made available to the
// handler rather than silently dropped.
type chunkedState struct {
	buf       []byte // unconsumed bytes already read from the channel
	inChunk   bool
	chunkLeft int64
	finished  bool
}

func newChunkedState() *chunkedState {
	return &chunkedState{buf: make([]byte, 0, 512)}
}

const maxChunkSizeLine = 4096 // guards against unbounded chunk-size-line input

func (c *chunkedState) read(reader *channelReader, p []byte, onTrailers func(*Header), trailerCap int) (int, error) {
	if c.finished {
		return 0, io.EOF
	}
	for {
		if c.inChunk {
			if c.chunkLeft == 0 {
				// Consume the CRLF following the chunk data.
				if err := c.expect(reader, "\r\n"); err != nil {
					return 0, err
				}
				c.inChunk = false
				continue
			}
			want := c.chunkLeft
			if want > int64(len(p)) {
				want = int64(len(p))
			}
			n, err := c.fill(reader, p[:want])
			c.chunkLeft -= int64(n)
			if err != nil {
				return n, err
			}
			return n, nil
		}

		size, err := c.readChunkSizeLine(reader)
		if err != nil {
			return 0, err
		}
		if size == 0 {
			trailers, terr := c.readTrailers(reader, trailerCap)
			if terr != nil {
				return 0, terr
			}
			if onTrailers != nil {
				onTrailers(trailers)
			}
			c.finished = true
			return 0, io.EOF
		}
		c.inChunk = true
		c.chunkLeft = size
	}
}

// readChunkSizeLine reads one "hex-size [;ext] CRLF" line, stripping any
// chunk extensions. Extensions are discarded rather than interpreted, per
// shockwave/http11.ChunkedReader.readChunkHeader's smuggling-safety note:
// an attacker-controlled extension must never influence framing.
func (c *chunkedState) readChunkSizeLine(reader *channelReader) (int64, error) {
	line, err := c.readLine(reader, maxChunkSizeLine)
	if err != nil {
		return 0, err
	}
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	size, perr := strconv.ParseInt(line, 16, 64)
	if perr != nil || size < 0 {
		return 0, wrapError(KindBadHeader, ErrBadHeader, "malformed chunk size")
	}
	return size, nil
}

// readTrailers parses the trailer header block following the terminating
// 0-size chunk: "name: value" lines up to an empty line, capped at maxSize
// bytes. It does not go through the head parser, and does not apply its
// header-name token check or its folded-line rejection.
func (c *chunkedState) readTrailers(reader *channelReader, maxSize int) (*Header, error) {
	header := NewHeader()
	total := 0
	for {
		line, err := c.readLine(reader, maxSize-total)
		if err != nil {
			if err == errLineTooLong {
				return nil, wrapError(KindMaxTrailers, ErrMaxTrailers, maxSize)
			}
			return nil, err
		}
		total += len(line) + 2
		if line == "" {
			return header, nil
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, wrapError(KindBadHeader, ErrBadHeader, line)
		}
		header.Add(strings.TrimSpace(line[:colon]), strings.TrimSpace(line[colon+1:]))
	}
}

// expect reads exactly len(want) bytes and verifies they match want.
func (c *chunkedState) expect(reader *channelReader, want string) error {
	buf := make([]byte, len(want))
	if _, err := c.fill(reader, buf); err != nil {
		return err
	}
	if string(buf) != want {
		return wrapError(KindBadHeader, ErrBadHeader, "malformed chunk terminator")
	}
	return nil
}

// readLine reads bytes up to and including the next CRLF, returning the
// line without the terminator, bounded by maxLen.
func (c *chunkedState) readLine(reader *channelReader, maxLen int) (string, error) {
	for {
		if idx := bytes.Index(c.buf, []byte("\r\n")); idx >= 0 {
			line := string(c.buf[:idx])
			c.buf = c.buf[idx+2:]
			return line, nil
		}
		if len(c.buf) >= maxLen {
			return "", errLineTooLong
		}
		chunk := make([]byte, 512)
		n, err := reader.readSome(chunk)
		if n > 0 {
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			return "", err
		}
	}
}

// fill copies exactly len(dst) bytes into dst, pulling from the internal
// buffer first and the channel thereafter.
func (c *chunkedState) fill(reader *channelReader, dst []byte) (int, error) {
	filled := 0
	if len(c.buf) > 0 {
		n := copy(dst, c.buf)
		c.buf = c.buf[n:]
		filled = n
	}
	for filled < len(dst) {
		n, err := reader.readSome(dst[filled:])
		filled += n
		if err != nil {
			return filled, err
		}
	}
	return filled, nil
}

var errLineTooLong = wrapError(KindMaxHeadSize, ErrMaxHeadSize, "chunk line too long")
