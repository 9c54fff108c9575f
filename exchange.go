package exchange

import (
	"net"

	"github.com/google/uuid"

	"github.com/watt-toolkit/exchange/lock"
	"github.com/watt-toolkit/exchange/log"
	"github.com/watt-toolkit/exchange/route"
)

// RouteHandler is the terminal application handler for a matched route.
type RouteHandler func(req *Request) (*Response, error)

// Engine owns one route tree, its before/after actions, the exception
// pipeline, and the configuration every connection served through it
// shares. Grounded on shockwave/pkg/shockwave/server.BaseServer's split
// between connection-acceptance (C11, package server) and per-connection
// protocol handling (this file) — Engine is the latter half, reused
// across every accepted connection.
type Engine struct {
	cfg     Config
	tree    *route.Tree
	actions *route.ActionRegistry
	excepts *exceptionPipeline
	logger  log.Logger
	obs     Observer
	files   *FileServer
}

// NewEngine builds an Engine ready to serve connections. It owns its own
// path lock registry (C9), surfaced to application handlers via Files,
// so file-backed response bodies and any handler-level path coordination
// share the same lock table.
func NewEngine(cfg Config, tree *route.Tree, actions *route.ActionRegistry, handlers []ExceptionHandler, logger log.Logger, obs Observer) *Engine {
	if logger == nil {
		logger = log.Noop()
	}
	if obs == nil {
		obs = NoopObserver()
	}
	locks := lock.NewRegistry()
	return &Engine{
		cfg:     cfg,
		tree:    tree,
		actions: actions,
		excepts: newExceptionPipeline(handlers, cfg.MaxErrorResponses, cfg.ImplementMissingOptions),
		logger:  logger,
		obs:     obs,
		files:   NewFileServer(locks, cfg.TimeoutFileLock),
	}
}

// Files returns the Engine's file server, which opens on-disk files as
// response bodies coordinated through the Engine's path lock registry.
func (e *Engine) Files() *FileServer { return e.files }

// Locks returns the Engine's path lock registry directly, for handlers
// that need to coordinate on a path without going through Files — e.g.
// guarding a write to the same file a concurrent request might read.
func (e *Engine) Locks() *lock.Registry { return e.files.locks }

// Handle registers handler for method and pattern on the Engine's route
// tree, translating the route package's own error types into the
// exchange package's Kind-tagged Error so callers get one consistent
// error taxonomy regardless of which package detected the problem.
func (e *Engine) Handle(method, pattern string, handler RouteHandler) (*route.Registration, error) {
	reg, err := e.tree.Add(method, pattern, func(ctx any) (any, error) {
		req, ok := ctx.(*Request)
		if !ok {
			return nil, wrapError(KindIllegalState, ErrIllegalState)
		}
		return handler(req)
	})
	if err != nil {
		return nil, translateRouteError(err)
	}
	return reg, nil
}

// Before registers a before-action for pattern, run shallowest-pattern-
// depth-first ahead of the matched route's handler.
func (e *Engine) Before(pattern string, run func(req *Request) (*Response, error)) *route.Action {
	return e.actions.Before(pattern, adaptAction(run))
}

// After registers an after-action for pattern, run deepest-pattern-depth-
// first once the matched route's handler (or a before-action's short-
// circuit) has produced a response.
func (e *Engine) After(pattern string, run func(req *Request) (*Response, error)) *route.Action {
	return e.actions.After(pattern, adaptAction(run))
}

func adaptAction(run func(req *Request) (*Response, error)) func(ctx any) (any, error) {
	return func(ctx any) (any, error) {
		req, ok := ctx.(*Request)
		if !ok {
			return nil, wrapError(KindIllegalState, ErrIllegalState)
		}
		resp, err := run(req)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			// Avoid wrapping a nil *Response in a non-nil any: runChain's
			// short-circuit check tests the any for nilness, and a typed
			// nil pointer boxed in an interface is never == nil.
			return nil, nil
		}
		return resp, nil
	}
}

func translateRouteError(err error) error {
	switch v := err.(type) {
	case *route.PatternInvalidError:
		return wrapError(KindPatternInvalid, ErrPatternInvalid, v.Pattern+": "+v.Reason)
	case *route.RouteCollisionError:
		return wrapError(KindRouteCollision, ErrRouteCollision, v.Method+" "+v.Pattern)
	default:
		return err
	}
}

// Serve drives one connection end-to-end: repeatedly parse a request
// head, resolve it to a route, run before-actions/handler/after-actions,
// write the response, and decide whether to keep the connection alive for
// a pipelined next request — per spec.md §4.6's per-connection state
// machine. Serve returns when the connection closes, the peer
// disconnects, or the connection is not to be kept alive.
func (e *Engine) Serve(conn net.Conn) {
	defer conn.Close()

	idle := newIdleTimeoutScheduler(conn, e.cfg.TimeoutIdleConnection)
	reader := newChannelReader(conn, idle)

	e.obs.OnConnectionOpened(conn.RemoteAddr().String())
	defer e.obs.OnConnectionClosed(conn.RemoteAddr().String())

	for {
		keepAlive, err := e.serveOne(conn, reader, idle)
		if err != nil {
			e.logger.Debug("exchange ended", log.F("remote", conn.RemoteAddr().String()), log.F("error", err.Error()))
			return
		}
		if !keepAlive {
			return
		}
	}
}

// serveOne handles exactly one request/response exchange on an
// already-open connection, returning whether the connection should be
// kept open for a further pipelined exchange.
func (e *Engine) serveOne(conn net.Conn, reader *channelReader, idle *idleTimeoutScheduler) (keepAlive bool, err error) {
	parser := newHeadParser(reader, e.cfg.MaxRequestHeadSize)
	head, perr := parser.parseHead()
	if perr != nil {
		return e.writeFailure(conn, idle, Version{1, 1}, false, perr)
	}

	if !head.Version.AtLeast(e.cfg.MinHTTPVersion) {
		return e.writeFailure(conn, idle, head.Version, false, wrapError(KindVersionTooOld, ErrVersionTooOld, head.Version.String()))
	}
	if head.Version.Major > e.cfg.MaxHTTPVersion.Major ||
		(head.Version.Major == e.cfg.MaxHTTPVersion.Major && head.Version.Minor > e.cfg.MaxHTTPVersion.Minor) {
		return e.writeFailure(conn, idle, head.Version, false, wrapError(KindVersionTooNew, ErrVersionTooNew, head.Version.String()))
	}

	body, berr := newBodyReader(reader, head, e.cfg.MaxRequestTrailersSize)
	if berr != nil {
		return e.writeFailure(conn, idle, head.Version, false, berr)
	}

	req := &Request{
		Head:       head,
		RemoteAddr: conn.RemoteAddr().String(),
		ExchangeID: uuid.NewString(),
		attrs:      newExchangeAttrs(),
		body:       &bodyHandle{reader: body},
	}

	e.obs.OnHeadReceived(head)

	if body.HasBody() && shouldContinue(head, e.cfg) {
		writer := newChannelWriter(conn, idle, head.Version, e.cfg.DiscardRejectedInformational)
		if err := writer.write(NewResponse(100, NewHeader(), EmptyBody)); err != nil {
			return false, err
		}
	}

	reg, params, allowed := e.tree.Resolve(head.Method, head.RequestTarget)
	var resp *Response
	var handleErr error

	switch {
	case reg == nil && len(allowed) > 0:
		handleErr = newMethodNotAllowed(head.Method, allowed)
	case reg == nil:
		handleErr = wrapError(KindNoRouteFound, ErrNoRouteFound, head.RequestTarget)
	default:
		resp, handleErr = e.runChain(reg, req, params)
	}

	if handleErr != nil {
		resp, handleErr = e.excepts.handle(handleErr, req)
		if handleErr != nil {
			return false, handleErr
		}
		if resp == nil {
			return false, wrapError(KindDisconnect, ErrDisconnect)
		}
	}

	writer := newChannelWriter(conn, idle, head.Version, e.cfg.DiscardRejectedInformational)
	if werr := writer.write(resp); werr != nil {
		return false, werr
	}
	e.obs.OnResponseSent(resp)

	if derr := body.Discard(); derr != nil {
		return false, derr
	}

	reqClose := head.Header.Get("Connection") == "close" || (!head.Version.AtLeast(Version{1, 1}) && head.Header.Get("Connection") != "keep-alive")
	return !writer.shouldCloseAfterResponse(resp, reqClose), nil
}

// runChain executes the before-actions, handler, and after-actions for
// the matched route, in the ordering route.ActionRegistry computes, per
// spec.md §4.4. A before-action may short-circuit by returning a
// *Response; the handler always runs unless short-circuited; after-
// actions run on the handler's response or on a before-action's short-
// circuit response. An error from any of them ends the chain, and the
// response the exception pipeline then produces is written without
// running after-actions.
func (e *Engine) runChain(reg *route.Registration, req *Request, params map[string]string) (*Response, error) {
	scoped := req.forReceiver(params)

	for _, a := range e.actions.BeforeFor(reg.Pattern) {
		result, err := a.Run(scoped)
		if err != nil {
			return nil, err
		}
		if result != nil {
			if resp, ok := result.(*Response); ok {
				return e.runAfter(reg, scoped, resp)
			}
		}
	}

	result, err := reg.Handler(scoped)
	if err != nil {
		return nil, err
	}
	resp, _ := result.(*Response)
	if resp == nil {
		resp = NewResponse(204, NewHeader(), EmptyBody)
	}
	return e.runAfter(reg, scoped, resp)
}

func (e *Engine) runAfter(reg *route.Registration, req *Request, resp *Response) (*Response, error) {
	for _, a := range e.actions.AfterFor(reg.Pattern) {
		result, err := a.Run(req)
		if err != nil {
			return nil, err
		}
		if r, ok := result.(*Response); ok && r != nil {
			resp = r
		}
	}
	return resp, nil
}

// shouldContinue reports whether a 100-continue interim response is sent
// before the handler runs, per RFC 7231 §5.1.1: only when the request
// carries an Expect header and ImmediatelyContinueExpect100 is set. With
// that option off, no 100 Continue is sent at all; subscribing to or
// reading the body does not trigger one.
func shouldContinue(head *Head, cfg Config) bool {
	if head.Header.Get("Expect") == "" {
		return false
	}
	return cfg.ImmediatelyContinueExpect100
}

// writeFailure writes the default-mapped response for err directly,
// without going through the exception pipeline's application handlers —
// used for failures discovered before a Request exists to pass to them
// (head parse errors, version negotiation failures).
func (e *Engine) writeFailure(conn net.Conn, idle *idleTimeoutScheduler, version Version, reqClose bool, err error) (bool, error) {
	resp := defaultMapping(err, e.cfg.ImplementMissingOptions)
	if resp == nil {
		return false, err
	}
	writer := newChannelWriter(conn, idle, version, e.cfg.DiscardRejectedInformational)
	if werr := writer.write(resp); werr != nil {
		return false, werr
	}
	return false, nil
}
