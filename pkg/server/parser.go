package server

import (
	"bytes"
	"strings"

	"mapd/pkg/router"
)

// maxHeaderBytes bounds how much of a request line/header block we'll
// buffer before giving up on a client that never sends a blank line.
const maxHeaderBytes = 8192

// ParseState is the incremental parser's three-way result, the same shape
// as a tribool return from a request parser: indeterminate means "keep
// reading," true means "done," false means "malformed."
type ParseState int

const (
	NeedMore ParseState = iota
	Done
	Bad
)

// ParseResult is what Parse returns: the state, and — only when Done — the
// parsed request and how many leading bytes of buf it consumed.
type ParseResult struct {
	State    ParseState
	Request  router.Request
	Consumed int
}

// Parse looks for a complete HTTP/1.1 request line and header block
// (terminated by a blank line) in buf. It is safe to call repeatedly as buf
// grows across multiple reads — each call re-scans from the start, which is
// simple and correct for the small request lines this service ever
// receives, unlike a full streaming HTTP body parser.
func Parse(buf []byte) ParseResult {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx < 0 {
		if len(buf) > maxHeaderBytes {
			return ParseResult{State: Bad}
		}
		return ParseResult{State: NeedMore}
	}

	lines := bytes.Split(buf[:idx], []byte("\r\n"))
	if len(lines) == 0 {
		return ParseResult{State: Bad}
	}

	requestLine := bytes.Fields(lines[0])
	if len(requestLine) != 3 {
		return ParseResult{State: Bad}
	}
	method, uri, version := string(requestLine[0]), string(requestLine[1]), string(requestLine[2])
	if method != "GET" || !strings.HasPrefix(version, "HTTP/1.") {
		return ParseResult{State: Bad}
	}

	req := router.Request{URI: uri}
	for _, line := range lines[1:] {
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		key := strings.TrimSpace(strings.ToLower(string(line[:colon])))
		val := strings.TrimSpace(string(line[colon+1:]))
		switch key {
		case "accept-encoding":
			req.AcceptEncoding = val
		case "user-agent":
			req.UserAgent = val
		case "referer":
			req.Referer = val
		}
	}

	return ParseResult{State: Done, Request: req, Consumed: idx + 4}
}
