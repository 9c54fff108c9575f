package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseIsFinalIsInterim(t *testing.T) {
	interim := NewResponse(100, nil, nil)
	final := NewResponse(200, nil, nil)

	assert.True(t, interim.IsInterim())
	assert.False(t, interim.IsFinal())
	assert.True(t, final.IsFinal())
	assert.False(t, final.IsInterim())
}

func TestResponseWithHeaderDoesNotMutateOriginal(t *testing.T) {
	base := NewResponse(200, NewHeader(), EmptyBody)
	withEtag := base.WithHeader("ETag", `"abc"`)

	assert.False(t, base.Header.Has("ETag"))
	assert.Equal(t, `"abc"`, withEtag.Header.Get("ETag"))
}

func TestResponseWithReasonDoesNotMutateOriginal(t *testing.T) {
	base := NewResponse(404, nil, nil)
	custom := base.WithReason("Route Missing")

	assert.Equal(t, "", base.ReasonPhrase)
	assert.Equal(t, "Route Missing", custom.ReasonPhrase)
}

func TestReasonPhraseForKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Not Found", ReasonPhraseFor(404))
	assert.Equal(t, "", ReasonPhraseFor(499))
}

func TestNewResponseNormalizesNilFields(t *testing.T) {
	resp := NewResponse(204, nil, nil)
	assert.NotNil(t, resp.Header)
	assert.NotNil(t, resp.Body)

	_, err := resp.Body.Next()
	assert.Error(t, err)
}
