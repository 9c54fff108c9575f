package exchange

import (
	"io"
	"strconv"
)

// channelWriter enforces the response-writing contract of spec.md §4.5:
// at most one final response per exchange, interim responses rejected for
// clients that cannot understand them, automatic Content-Length/
// Connection framing, and after-actions run before any byte reaches the
// wire. Grounded on shockwave/http11.ResponseWriter's idempotent
// WriteHeader/Write split, generalized from a single mutable writer
// struct into an explicit State machine since spec.md requires rejecting
// a second final write outright (IllegalState) rather than silently
// ignoring it as the teacher's ResponseWriter.WriteHeader does.
type channelWriter struct {
	writer io.Writer
	idle   *idleTimeoutScheduler

	reqVersion             Version
	discardRejectedInterim bool

	wroteInterimCount int
	wroteFinal        bool
	closeAfter        bool
}

func newChannelWriter(w io.Writer, idle *idleTimeoutScheduler, reqVersion Version, discardRejectedInterim bool) *channelWriter {
	return &channelWriter{writer: w, idle: idle, reqVersion: reqVersion, discardRejectedInterim: discardRejectedInterim}
}

// write sends resp, per spec.md §4.5. For an interim (1xx) response on an
// HTTP/1.0 request, write either silently no-ops (discardRejectedInterim,
// the default — the client has no framing for interim responses and would
// never see it anyway) or returns a ResponseRejectedError, per
// spec.md §4.10's discard_rejected_informational switch.
func (w *channelWriter) write(resp *Response) error {
	if resp.IsInterim() {
		if !w.reqVersion.AtLeast(Version{1, 1}) {
			if w.discardRejectedInterim {
				return nil
			}
			return newResponseRejected("interim response requires HTTP/1.1 or newer")
		}
		if w.wroteFinal {
			return wrapError(KindIllegalState, ErrIllegalState, "interim response after final response")
		}
		w.wroteInterimCount++
		return w.writeOne(resp)
	}

	if w.wroteFinal {
		return wrapError(KindIllegalState, ErrIllegalState, "final response already written")
	}
	w.wroteFinal = true

	resp = w.applyFraming(resp)
	return w.writeOne(resp)
}

// applyFraming returns a copy of resp with Content-Length or
// Connection: close set: 1xx, 204, and 304 responses are left as they
// are (their body is never sent); every other final response gets a
// Content-Length when the body's length is known in advance, and
// Connection: close (plus w.closeAfter) when it is not. The writer does
// not know the request method, so responses to HEAD and CONNECT are
// framed like any other.
func (w *channelWriter) applyFraming(resp *Response) *Response {
	if bodyForbidden(resp.Status) {
		return resp
	}
	if n, ok := resp.Body.Len(); ok {
		return resp.WithHeader("Content-Length", strconv.FormatInt(n, 10))
	}
	w.closeAfter = true
	return resp.WithHeader("Connection", "close")
}

func bodyForbidden(status int) bool {
	return (status >= 100 && status < 200) || status == 204 || status == 304
}

// writeOne serializes one response's status line, headers, and body to
// the wire, with the idle timeout armed around the write.
func (w *channelWriter) writeOne(resp *Response) error {
	if err := w.idle.armWrite(); err != nil {
		return err
	}
	defer w.idle.disarm()

	if err := w.writeStatusLineAndHeaders(resp); err != nil {
		return classifyIOError(err, false)
	}

	if bodyForbidden(resp.Status) {
		return nil
	}

	for {
		chunk, err := resp.Body.Next()
		if len(chunk) > 0 {
			if _, werr := w.writer.Write(chunk); werr != nil {
				return classifyIOError(werr, false)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wrapError(KindIllegalResponseBody, ErrIllegalResponseBody, err.Error())
		}
	}
}

func (w *channelWriter) writeStatusLineAndHeaders(resp *Response) error {
	reason := resp.ReasonPhrase
	if reason == "" {
		reason = ReasonPhraseFor(resp.Status)
	}
	statusLine := "HTTP/" + w.reqVersion.String() + " " + strconv.Itoa(resp.Status) + " " + reason + "\r\n"
	if _, err := io.WriteString(w.writer, statusLine); err != nil {
		return err
	}

	var headerErr error
	resp.Header.VisitAll(func(name, value string) bool {
		if _, err := io.WriteString(w.writer, name+": "+value+"\r\n"); err != nil {
			headerErr = err
			return false
		}
		return true
	})
	if headerErr != nil {
		return headerErr
	}

	_, err := io.WriteString(w.writer, "\r\n")
	return err
}

// shouldCloseAfterResponse reports whether the connection must be closed
// once the just-written response has been flushed, per spec.md §4.6:
// explicit Connection: close, a body whose length could not be framed,
// or the request itself asking to close.
func (w *channelWriter) shouldCloseAfterResponse(resp *Response, reqClose bool) bool {
	if w.closeAfter || reqClose {
		return true
	}
	return resp.Header.Get("Connection") == "close"
}
