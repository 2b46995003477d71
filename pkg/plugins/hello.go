package plugins

import (
	"context"
	"fmt"
)

// HelloPlugin is a diagnostic echo, always 200. It exists so an operator
// can confirm the registry and the HTTP path are wired correctly without
// needing a real graph.
type HelloPlugin struct{}

func NewHelloPlugin() *HelloPlugin { return &HelloPlugin{} }

func (p *HelloPlugin) Descriptor() string { return "hello" }

func (p *HelloPlugin) Handle(_ context.Context, params Params, reply *Reply) {
	reply.Status = 200
	reply.Body = []byte(fmt.Sprintf(
		`{"status":0,"status_message":"Hello, from mapd!","coordinates_received":%d}`,
		len(params.Coordinates),
	))
}
