// Package plugins implements the service-name-keyed request handlers: a
// Plugin is a capability pair (Descriptor, Handle), not a base class in an
// inheritance tree, and the Registry holds unique ownership of each one
// with no reverse pointer back to the HTTP layer.
package plugins

import (
	"context"

	"mapd/pkg/routing"
)

// Params is the parsed request pkg/router hands to a plugin's Handle. It
// carries exactly the fields the request grammar recognizes.
type Params struct {
	Service      string
	Format       string // "json" (default) or "gpx"
	Coordinates  []routing.LatLng
	Instructions bool
	JSONP        string
	UTurns       bool
}

// Reply is the plugin's typed result, in place of a thrown exception.
// Headers are deliberately absent: the router computes Content-Length,
// Content-Type, and Content-Disposition after Handle returns.
type Reply struct {
	Status int
	Body   []byte
}

// StockBadRequest is the reply Handle sets on malformed parameters.
func StockBadRequest() Reply {
	return Reply{Status: 400, Body: []byte(`{"status":400,"status_message":"Bad Request"}`)}
}

// Plugin is a capability pair in place of a plugin base class: a service
// descriptor and a request handler. Handle never panics into its caller --
// malformed input sets reply.Status = 400 and returns.
type Plugin interface {
	Descriptor() string
	Handle(ctx context.Context, params Params, reply *Reply)
}

// Registry maps a lowercase service name to its Plugin. It is populated
// once at startup via Register and is read-only for the lifetime of the
// server -- no mutex field, since concurrent readers never race a writer
// once startup is done.
type Registry struct {
	plugins map[string]Plugin
}

// NewRegistry returns an empty Registry ready for Register calls.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Register adds p under its own Descriptor() name.
func (r *Registry) Register(p Plugin) {
	r.plugins[p.Descriptor()] = p
}

// Lookup returns the plugin registered for service, if any.
func (r *Registry) Lookup(service string) (Plugin, bool) {
	p, ok := r.plugins[service]
	return p, ok
}
