// Package respbody provides concrete response body sources: in-memory
// byte/string bodies, file-backed bodies guarded by the path lock
// registry, and generator-backed bodies of unknown length.
//
// Grounded on shockwave/pkg/shockwave/http11/response.go's WriteJSON/
// WriteText/WriteChunk convenience writers and valyala/bytebufferpool's
// pooled-buffer convention (adopted here for file streaming, since the
// teacher's own buffers are fixed-size inline arrays unsuited to
// arbitrary file sizes).
package respbody

import (
	"errors"
	"io"
	"os"

	"github.com/valyala/bytebufferpool"
)

// Bytes returns a BodySource over an in-memory byte slice.
func Bytes(b []byte) *BufferBody {
	return &BufferBody{data: b}
}

// String returns a BodySource over a UTF-8 string; the string's bytes are
// copied once into the body's buffer.
func String(s string) *BufferBody {
	return &BufferBody{data: []byte(s)}
}

// BufferBody is a single-shot in-memory body: Next returns the whole
// buffer once, then io.EOF.
type BufferBody struct {
	data []byte
	done bool
}

func (b *BufferBody) Next() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}
	b.done = true
	return b.data, nil
}

func (b *BufferBody) Len() (int64, bool) { return int64(len(b.data)), true }
func (b *BufferBody) Close() error       { return nil }

// fileLock is the minimal capability FileBody needs from a path lock
// registry: releasing the read hold it was opened under. The exchange
// package satisfies it with an adapter around one lock.Token, so this
// package does not import lock directly (avoiding a respbody -> lock -> ... dependency the body
// sources don't otherwise need).
type fileLock interface {
	ReleaseRead() error
}

// FileBody streams a file's contents in bytebufferpool-backed chunks,
// holding a caller-supplied read lock for its entire lifetime and
// releasing it on Close — grounded on spec.md §4.12's requirement that
// file bodies participate in the path lock registry (C9) rather than
// open the file unguarded.
type FileBody struct {
	f        *os.File
	size     int64
	held     fileLock
	buf      *bytebufferpool.ByteBuffer
	chunk    []byte
	closed   bool
}

const fileChunkSize = 16 * 1024

// OpenFile opens path for reading and wraps it in a FileBody. held is
// released exactly once, on Close, regardless of how much of the body was
// read — callers must acquire the read lock before calling OpenFile and
// pass the resulting token's release method as held.
func OpenFile(path string, held fileLock) (*FileBody, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, errors.New("respbody: refusing to serve a directory as a body")
	}
	buf := bytebufferpool.Get()
	return &FileBody{f: f, size: info.Size(), held: held, buf: buf, chunk: make([]byte, fileChunkSize)}, nil
}

func (b *FileBody) Next() ([]byte, error) {
	n, err := b.f.Read(b.chunk)
	if n > 0 {
		b.buf.Reset()
		_, _ = b.buf.Write(b.chunk[:n])
		if err != nil && err != io.EOF {
			return b.buf.B, err
		}
		return b.buf.B, nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

func (b *FileBody) Len() (int64, bool) { return b.size, true }

func (b *FileBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	bytebufferpool.Put(b.buf)
	closeErr := b.f.Close()
	lockErr := b.held.ReleaseRead()
	if closeErr != nil {
		return closeErr
	}
	return lockErr
}

// Generator is a BodySource of unknown total length, producing chunks by
// repeatedly calling next until it returns io.EOF. Grounded on the
// supplier-style body the original spec's "generator" body kind names.
type Generator struct {
	next   func() ([]byte, error)
	closer func() error
}

// NewGenerator builds a Generator-backed BodySource. closer may be nil.
func NewGenerator(next func() ([]byte, error), closer func() error) *Generator {
	return &Generator{next: next, closer: closer}
}

func (g *Generator) Next() ([]byte, error) { return g.next() }
func (g *Generator) Len() (int64, bool)    { return 0, false }
func (g *Generator) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}
