package exchange

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestReader returns a channelReader fed by writing raw on a net.Pipe
// from a background goroutine, mirroring the teacher's raw-byte-fixture
// style of exercising the parser against real socket semantics rather
// than a bytes.Buffer.
func newTestReader(t *testing.T, raw string) (*channelReader, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	go func() {
		_, _ = client.Write([]byte(raw))
	}()
	t.Cleanup(func() { client.Close(); server.Close() })
	idle := newIdleTimeoutScheduler(server, 0)
	return newChannelReader(server, idle), server
}

func TestHeadParserSimpleGet(t *testing.T) {
	reader, _ := newTestReader(t, "GET /hello HTTP/1.1\r\nHost: example.com\r\n\r\n")
	p := newHeadParser(reader, 8000)

	head, err := p.parseHead()
	require.NoError(t, err)
	assert.Equal(t, "GET", head.Method)
	assert.Equal(t, "/hello", head.RequestTarget)
	assert.Equal(t, Version{1, 1}, head.Version)
	assert.Equal(t, "example.com", head.Header.Get("Host"))
}

func TestHeadParserRejectsFramingConflict(t *testing.T) {
	reader, _ := newTestReader(t, "POST /x HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindBadHeader, exchErr.Kind)
}

func TestHeadParserRejectsDuplicateContentLength(t *testing.T) {
	reader, _ := newTestReader(t, "POST /x HTTP/1.1\r\nHost: a\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
}

func TestHeadParserTreatsSingleLeadingBlankLineAsTolerable(t *testing.T) {
	reader, _ := newTestReader(t, "\r\nGET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	p := newHeadParser(reader, 8000)

	head, err := p.parseHead()
	require.NoError(t, err)
	assert.Equal(t, "GET", head.Method)
	assert.Equal(t, "example.com", head.Header.Get("Host"))
}

func TestHeadParserRejectsTwoLeadingBlankLines(t *testing.T) {
	reader, _ := newTestReader(t, "\r\n\r\nGET / HTTP/1.1\r\nHost: example.com\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
}

func TestHeadParserRejectsCTLInMethod(t *testing.T) {
	reader, _ := newTestReader(t, "GE\x01T / HTTP/1.1\r\nHost: a\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindRequestLineParse, exchErr.Kind)
}

func TestHeadParserRejectsCTLInTarget(t *testing.T) {
	reader, _ := newTestReader(t, "GET /a\x01b HTTP/1.1\r\nHost: a\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindRequestLineParse, exchErr.Kind)
}

func TestHeadParserRejectsInvalidHeaderNameToken(t *testing.T) {
	reader, _ := newTestReader(t, "GET / HTTP/1.1\r\nX Header: 1\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindBadHeader, exchErr.Kind)
}

func TestHeadParserRejectsObsoleteLineFolding(t *testing.T) {
	reader, _ := newTestReader(t, "GET / HTTP/1.1\r\nHost: a\r\n b\r\n\r\n")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.Error(t, err)
}

func TestHeadParserEnforcesMaxHeadSizeDuringAccumulation(t *testing.T) {
	longValue := make([]byte, 1024)
	for i := range longValue {
		longValue[i] = 'a'
	}
	raw := "GET / HTTP/1.1\r\nX-Big: " + string(longValue) + "\r\n\r\n"
	reader, _ := newTestReader(t, raw)
	p := newHeadParser(reader, 64)

	_, err := p.parseHead()
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindMaxHeadSize, exchErr.Kind)
}

func TestHeadParserPushesBackBytesPastTerminator(t *testing.T) {
	reader, _ := newTestReader(t, "GET / HTTP/1.1\r\nHost: a\r\n\r\nBODYBYTES")
	p := newHeadParser(reader, 8000)

	_, err := p.parseHead()
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := reader.readSome(buf)
	require.NoError(t, err)
	assert.Equal(t, "BODYBYTES", string(buf[:n]))
}

func TestParseVersionRejectsMalformed(t *testing.T) {
	_, err := parseVersion("HTTP/11")
	assert.Error(t, err)

	v, err := parseVersion("HTTP/1.0")
	require.NoError(t, err)
	assert.Equal(t, Version{1, 0}, v)
}

func TestVersionAtLeast(t *testing.T) {
	assert.True(t, Version{1, 1}.AtLeast(Version{1, 0}))
	assert.True(t, Version{1, 1}.AtLeast(Version{1, 1}))
	assert.False(t, Version{1, 0}.AtLeast(Version{1, 1}))
	assert.True(t, Version{2, 0}.AtLeast(Version{1, 9}))
}
