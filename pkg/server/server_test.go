package server

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"mapd/pkg/plugins"
)

func startTestServer(t *testing.T) (*Server, func()) {
	t.Helper()
	registry := plugins.NewRegistry()
	registry.Register(plugins.NewHelloPlugin())

	srv, err := New("127.0.0.1:0", registry, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	return srv, func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		srv.Shutdown(shutdownCtx)
	}
}

func TestServerHandlesHelloRequest(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\n\r\n"))

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if !strings.Contains(statusLine, "200") {
		t.Errorf("status line = %q, want 200", statusLine)
	}
}

func TestServerRespondsBadRequestOnGarbage(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("this is not http\r\n\r\n"))

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if !strings.Contains(statusLine, "400") {
		t.Errorf("status line = %q, want 400", statusLine)
	}
}

func TestServerCompressesGzipResponse(t *testing.T) {
	srv, stop := startTestServer(t)
	defer stop()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("GET /hello HTTP/1.1\r\nAccept-Encoding: gzip\r\n\r\n"))

	all, err := io.ReadAll(conn)
	if err != nil && len(all) == 0 {
		t.Fatalf("read response: %v", err)
	}
	head := string(all)
	if !strings.Contains(head, "Content-Encoding: gzip") {
		t.Fatalf("expected a gzip Content-Encoding header, got:\n%s", head)
	}

	split := strings.Index(head, "\r\n\r\n")
	if split < 0 {
		t.Fatalf("no header/body separator found in:\n%s", head)
	}
	body := all[split+4:]

	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()
	decoded, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	if !strings.Contains(string(decoded), `"status":0`) {
		t.Errorf("decoded body = %s, want it to contain status:0", decoded)
	}
}
