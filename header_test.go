package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderAddPreservesDuplicates(t *testing.T) {
	h := NewHeader()
	h.Add("Set-Cookie", "a=1")
	h.Add("Set-Cookie", "b=2")

	require.Equal(t, 2, h.Count("set-cookie"))
	assert.Equal(t, []string{"a=1", "b=2"}, h.Values("Set-Cookie"))
}

func TestHeaderSetReplacesAllValues(t *testing.T) {
	h := NewHeader()
	h.Add("X-Trace", "1")
	h.Add("X-Trace", "2")
	h.Set("X-Trace", "final")

	assert.Equal(t, []string{"final"}, h.Values("X-Trace"))
}

func TestHeaderGetIsCaseInsensitive(t *testing.T) {
	h := NewHeader()
	h.Add("Content-Type", "text/plain")

	assert.Equal(t, "text/plain", h.Get("content-type"))
	assert.True(t, h.Has("CONTENT-TYPE"))
}

func TestHeaderDelRemovesAllMatches(t *testing.T) {
	h := NewHeader()
	h.Add("X-A", "1")
	h.Add("X-B", "2")
	h.Add("x-a", "3")
	h.Del("X-A")

	assert.False(t, h.Has("X-A"))
	assert.Equal(t, 1, h.Len())
}

func TestHeaderCloneIsIndependent(t *testing.T) {
	h := NewHeader()
	h.Add("X-A", "1")
	clone := h.Clone()
	clone.Add("X-A", "2")

	assert.Equal(t, 1, h.Count("X-A"))
	assert.Equal(t, 2, clone.Count("X-A"))
}

func TestHeaderVisitAllStopsOnFalse(t *testing.T) {
	h := NewHeader()
	h.Add("A", "1")
	h.Add("B", "2")
	h.Add("C", "3")

	var seen []string
	h.VisitAll(func(name, value string) bool {
		seen = append(seen, name)
		return name != "B"
	})

	assert.Equal(t, []string{"A", "B"}, seen)
}
