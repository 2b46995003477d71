// Package server implements the HTTP listener and per-connection state
// machine: a fixed worker pool sharing one accept loop, each connection
// driven start-to-finish by a single goroutine so it needs no lock of its
// own.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"runtime"
	"sync"
	"time"

	"mapd/pkg/plugins"
)

// shutdownGrace is how long Shutdown waits for in-flight connections before
// abandoning them.
const shutdownGrace = 2 * time.Second

// Server owns the listener and the semaphore-bounded goroutine pool.
type Server struct {
	listener net.Listener
	registry *plugins.Registry
	sem      chan struct{}
	wg       sync.WaitGroup
}

// New binds addr and returns a Server ready to Serve. workers is clamped to
// [1, runtime.NumCPU()], never exceeding hardware concurrency regardless of
// what the caller requests.
func New(addr string, registry *plugins.Registry, workers int) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen %s: %w", addr, err)
	}
	if workers > runtime.NumCPU() {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	return &Server{
		listener: ln,
		registry: registry,
		sem:      make(chan struct{}, workers),
	}, nil
}

// Addr returns the bound address, useful when addr was given as ":0".
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until the listener is closed by Shutdown, at
// which point it returns nil.
func (s *Server) Serve(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}

		s.wg.Add(1)
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	c := newConnection(conn, s.registry)
	c.run(ctx)
}

// Shutdown closes the listener and waits up to shutdownGrace for in-flight
// connections to finish; stragglers past the deadline are abandoned -- the
// goroutines outlive Shutdown but the process is expected to exit shortly
// after, at which point Go's runtime reclaims them.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.listener.Close(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	deadline := time.NewTimer(shutdownGrace)
	defer deadline.Stop()

	select {
	case <-done:
		return nil
	case <-deadline.C:
		log.Printf("warning: shutdown grace period elapsed, abandoning in-flight connections")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
