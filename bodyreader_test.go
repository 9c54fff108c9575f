package exchange

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headWithBody(t *testing.T, raw string) (*Head, *channelReader) {
	t.Helper()
	reader, _ := newTestReader(t, raw)
	p := newHeadParser(reader, 8000)
	head, err := p.parseHead()
	require.NoError(t, err)
	return head, reader
}

func TestBodyReaderContentLength(t *testing.T) {
	head, reader := headWithBody(t, "POST /x HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello")

	body, err := newBodyReader(reader, head, 8000)
	require.NoError(t, err)
	assert.True(t, body.HasBody())

	out, err := body.ToBuffer(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))
}

func TestBodyReaderNoFramingMeansNoBody(t *testing.T) {
	head, reader := headWithBody(t, "GET /x HTTP/1.1\r\nHost: a\r\n\r\n")

	body, err := newBodyReader(reader, head, 8000)
	require.NoError(t, err)
	assert.False(t, body.HasBody())

	n, err := body.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}

func TestBodyReaderChunked(t *testing.T) {
	raw := "POST /x HTTP/1.1\r\nHost: a\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\nX-Trailer: yes\r\n\r\n"
	head, reader := headWithBody(t, raw)

	body, err := newBodyReader(reader, head, 8000)
	require.NoError(t, err)

	out, err := body.ToBuffer(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(out))
	require.NotNil(t, body.Trailers())
	assert.Equal(t, "yes", body.Trailers().Get("X-Trailer"))
}

func TestBodyReaderMaxBufferCap(t *testing.T) {
	head, reader := headWithBody(t, "POST /x HTTP/1.1\r\nHost: a\r\nContent-Length: 10\r\n\r\n0123456789")

	body, err := newBodyReader(reader, head, 8000)
	require.NoError(t, err)

	_, err = body.ToBuffer(4)
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMaxBody, exchErr.Kind)
}

func TestBodyReaderRejectsTraceWithBody(t *testing.T) {
	head, reader := headWithBody(t, "TRACE /x HTTP/1.1\r\nHost: a\r\nContent-Length: 3\r\n\r\nabc")

	_, err := newBodyReader(reader, head, 8000)
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindIllegalRequestBody, exchErr.Kind)
}

func TestBodyReaderDiscardDrainsRemainder(t *testing.T) {
	head, reader := headWithBody(t, "POST /x HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\n\r\nhello")

	body, err := newBodyReader(reader, head, 8000)
	require.NoError(t, err)

	require.NoError(t, body.Discard())
	n, err := body.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.Equal(t, io.EOF, err)
}
