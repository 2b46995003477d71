package server

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	"mapd/pkg/plugins"
	"mapd/pkg/router"
)

// state is the per-connection state machine, translated from an
// async callback chain on a strand into a single straight-line goroutine:
// one goroutine per connection already gives every handler the same
// non-reentrancy guarantee a strand gives, with no extra lock on
// connection state.
type state int

const (
	stateReading state = iota
	statePausedForMore
	stateHandling
	stateEncoding
	stateWriting
	stateClosed
)

type connection struct {
	conn     net.Conn
	registry *plugins.Registry

	state state
	buf   []byte
	req   router.Request
	resp  router.Response
	body  []byte
}

func newConnection(conn net.Conn, registry *plugins.Registry) *connection {
	return &connection{conn: conn, registry: registry, state: stateReading}
}

// run drives the connection from its first read to its final write or
// error. It always closes conn on return.
func (c *connection) run(ctx context.Context) {
	defer c.conn.Close()

	readBuf := make([]byte, 4096)
	for c.state != stateClosed {
		switch c.state {
		case stateReading, statePausedForMore:
			n, err := c.conn.Read(readBuf)
			if err != nil {
				return
			}
			c.buf = append(c.buf, readBuf[:n]...)

			result := Parse(c.buf)
			switch result.State {
			case NeedMore:
				c.state = statePausedForMore
			case Bad:
				c.writeStock(400, "Bad Request")
				return
			case Done:
				c.req = result.Request
				c.state = stateHandling
			}

		case stateHandling:
			c.resp = router.Route(ctx, c.registry, c.req)
			c.state = stateEncoding

		case stateEncoding:
			c.encode()
			c.state = stateWriting

		case stateWriting:
			c.write()
			c.state = stateClosed
		}
	}
}

// encode negotiates a compression algorithm against the request's
// Accept-Encoding header and, if one was chosen, replaces the response body
// with its compressed form and prepends Content-Encoding. Content-Length is
// recomputed from the post-compression size.
func (c *connection) encode() {
	body := c.resp.Body
	alg := Negotiate(c.req.AcceptEncoding)
	if alg != "" {
		compressed, err := Compress(alg, body)
		if err == nil {
			body = compressed
			if c.resp.Headers == nil {
				c.resp.Headers = make(map[string]string)
			}
			c.resp.Headers["Content-Encoding"] = alg
		}
	}
	if c.resp.Headers == nil {
		c.resp.Headers = make(map[string]string)
	}
	c.resp.Headers["Content-Length"] = strconv.Itoa(len(body))
	c.body = body
}

// write emits headers as a gather-write vector followed by the body, then
// half-closes the socket on success, the same shutdown a completed
// async write triggers in the callback-chain original this is translated
// from. A write error drops the connection without retrying.
func (c *connection) write() {
	var headers bytes.Buffer
	fmt.Fprintf(&headers, "HTTP/1.1 %d %s\r\n", c.resp.Status, statusText(c.resp.Status))
	for k, v := range c.resp.Headers {
		fmt.Fprintf(&headers, "%s: %s\r\n", k, v)
	}
	headers.WriteString("\r\n")

	buffers := net.Buffers{headers.Bytes(), c.body}
	if _, err := buffers.WriteTo(c.conn); err != nil {
		return
	}
	if tcp, ok := c.conn.(*net.TCPConn); ok {
		tcp.CloseWrite()
	}
}

func (c *connection) writeStock(status int, message string) {
	body := []byte(fmt.Sprintf(`{"status":%d,"status_message":%q}`, status, message))
	c.resp = router.Response{
		Status: status,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=UTF-8",
		},
		Body: body,
	}
	c.encode()
	c.write()
}

func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 500:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}
