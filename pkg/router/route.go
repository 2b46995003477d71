package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"mapd/pkg/descriptor"
	"mapd/pkg/plugins"
)

// Request is what pkg/server's incremental parser produces once it has a
// complete request line and header set: just the fields the grammar and
// the plugin dispatch actually need.
type Request struct {
	URI            string
	AcceptEncoding string
	UserAgent      string
	Referer        string
}

// Response is a fully rendered reply: status, headers ready to write, and
// body. Headers are computed here, not by the plugin -- a plugin's Handle
// leaves reply headers empty and the router fills them in.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Route parses req.URI, dispatches to the named plugin, and renders the
// final response headers. A panic anywhere below (grammar parsing, plugin
// Handle, descriptor rendering) is caught and turned into a stock 500 with
// the URI and message logged at warning level.
func Route(ctx context.Context, registry *plugins.Registry, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("warning: panic handling %q: %v", req.URI, r)
			resp = stockError(500, "Internal Server Error")
		}
	}()

	params, err := ParseRequest(req.URI)
	if err != nil {
		var ge *GrammarError
		offset := -1
		if errors.As(err, &ge) {
			offset = ge.Offset
		}
		return stockError(400, fmt.Sprintf("Malformed request at byte %d", offset))
	}

	plugin, ok := registry.Lookup(params.Service)
	if !ok {
		return stockError(400, fmt.Sprintf("unknown service %q", params.Service))
	}

	var reply plugins.Reply
	plugin.Handle(ctx, params, &reply)

	body := reply.Body
	if params.JSONP != "" {
		body = descriptor.JSONPWrap(params.JSONP, body)
	}

	return Response{
		Status:  reply.Status,
		Headers: headersFor(params, len(body)),
		Body:    body,
	}
}

// headersFor picks Content-Type and Content-Disposition from a three-way
// table keyed on requested format, and always sets Content-Length.
func headersFor(params plugins.Params, bodyLen int) map[string]string {
	h := map[string]string{"Content-Length": strconv.Itoa(bodyLen)}
	switch {
	case params.Format == "gpx":
		h["Content-Type"] = "application/gpx+xml; charset=UTF-8"
		h["Content-Disposition"] = `attachment; filename="route.gpx"`
	case params.JSONP != "":
		h["Content-Type"] = "text/javascript; charset=UTF-8"
		h["Content-Disposition"] = `inline; filename="response.js"`
	default:
		h["Content-Type"] = "application/json; charset=UTF-8"
		h["Content-Disposition"] = `inline; filename="response.json"`
	}
	return h
}

func stockError(status int, message string) Response {
	body := []byte(fmt.Sprintf(`{"status":%d,"status_message":%q}`, status, message))
	return Response{
		Status: status,
		Headers: map[string]string{
			"Content-Type":   "application/json; charset=UTF-8",
			"Content-Length": strconv.Itoa(len(body)),
		},
		Body: body,
	}
}
