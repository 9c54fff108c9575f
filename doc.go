// Package exchange implements a server-side HTTP/1.0 and HTTP/1.1 endpoint
// core: request-head parsing, body framing, route/action resolution, the
// response-writing contract, idle-timeout scheduling, and connection
// lifecycle. Hosting applications supply handlers, decorator actions,
// exception handlers, and configuration; exchange owns the protocol
// machinery.
package exchange
