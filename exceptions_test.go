package exchange

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMappingBadHeaderIs400(t *testing.T) {
	resp := defaultMapping(wrapError(KindBadHeader, ErrBadHeader), true)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.Status)
}

func TestDefaultMappingVersionTooOldIs426WithUpgradeHeader(t *testing.T) {
	resp := defaultMapping(wrapError(KindVersionTooOld, ErrVersionTooOld), true)
	require.NotNil(t, resp)
	assert.Equal(t, 426, resp.Status)
	assert.Equal(t, "HTTP/1.1", resp.Header.Get("Upgrade"))
}

func TestDefaultMappingVersionTooNewIs505(t *testing.T) {
	resp := defaultMapping(wrapError(KindVersionTooNew, ErrVersionTooNew), true)
	require.NotNil(t, resp)
	assert.Equal(t, 505, resp.Status)
}

func TestDefaultMappingMethodNotAllowedIncludesAllowHeader(t *testing.T) {
	resp := defaultMapping(newMethodNotAllowed("GET", []string{"GET", "HEAD"}), true)
	require.NotNil(t, resp)
	assert.Equal(t, 405, resp.Status)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestDefaultMappingMethodNotAllowedOptionsBecomes204WhenEnabled(t *testing.T) {
	resp := defaultMapping(newMethodNotAllowed("OPTIONS", []string{"GET", "HEAD"}), true)
	require.NotNil(t, resp)
	assert.Equal(t, 204, resp.Status)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestDefaultMappingMethodNotAllowedOptionsStays405WhenDisabled(t *testing.T) {
	resp := defaultMapping(newMethodNotAllowed("OPTIONS", []string{"GET", "HEAD"}), false)
	require.NotNil(t, resp)
	assert.Equal(t, 405, resp.Status)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestDefaultMappingUnknownErrorIs500(t *testing.T) {
	resp := defaultMapping(errors.New("boom"), true)
	require.NotNil(t, resp)
	assert.Equal(t, 500, resp.Status)
}

func TestDefaultMappingDisconnectYieldsNilResponse(t *testing.T) {
	resp := defaultMapping(wrapError(KindDisconnect, ErrDisconnect), true)
	assert.Nil(t, resp)
}

func TestExceptionPipelinePrefersApplicationHandler(t *testing.T) {
	custom := NewResponse(418, nil, nil)
	pipeline := newExceptionPipeline([]ExceptionHandler{
		func(err error, req *Request) (*Response, bool) { return custom, true },
	}, 3, true)

	resp, err := pipeline.handle(errors.New("anything"), nil)
	require.NoError(t, err)
	assert.Same(t, custom, resp)
}

func TestExceptionPipelineFallsThroughToDefault(t *testing.T) {
	pipeline := newExceptionPipeline([]ExceptionHandler{
		func(err error, req *Request) (*Response, bool) { return nil, false },
	}, 3, true)

	resp, err := pipeline.handle(wrapError(KindNoRouteFound, ErrNoRouteFound), nil)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.Status)
}

func TestExceptionPipelineCapsErrorResponses(t *testing.T) {
	pipeline := newExceptionPipeline(nil, 2, true)

	_, err := pipeline.handle(errors.New("first"), nil)
	require.NoError(t, err)
	_, err = pipeline.handle(errors.New("second"), nil)
	require.NoError(t, err)

	_, err = pipeline.handle(errors.New("third"), nil)
	require.Error(t, err)
	exchErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, KindIllegalState, exchErr.Kind)
}
