package router

import (
	"context"
	"testing"

	"mapd/pkg/plugins"
)

func TestDecodeURIRoundTrip(t *testing.T) {
	cases := []string{
		"hello",
		"a+b+c",
		"coords=1.0,103.0",
		"%2Fescaped%2Fslash",
	}
	for _, s := range cases {
		encoded := encodePercent(s)
		got, err := DecodeURI(encoded)
		if err != nil {
			t.Fatalf("DecodeURI(%q): %v", encoded, err)
		}
		if got != s {
			t.Errorf("DecodeURI(encode(%q)) = %q, want %q", s, got, s)
		}
	}
}

// encodePercent is the test-only inverse of DecodeURI: %-encode every byte
// outside the unreserved set, used only to build round-trip fixtures.
func encodePercent(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '+' || c == '=' || c == '&' || c == ',' || c == '.' {
			out = append(out, c)
			continue
		}
		out = append(out, '%')
		out = append(out, "0123456789ABCDEF"[c>>4])
		out = append(out, "0123456789ABCDEF"[c&0xf])
	}
	return string(out)
}

func TestDecodeURIPreservesLiteralPlus(t *testing.T) {
	got, err := DecodeURI("a+b")
	if err != nil {
		t.Fatalf("DecodeURI: %v", err)
	}
	if got != "a+b" {
		t.Errorf("DecodeURI(%q) = %q, want %q (literal '+' preserved)", "a+b", got, "a+b")
	}
}

func TestDecodeURITruncatedEscape(t *testing.T) {
	_, err := DecodeURI("abc%2")
	if err == nil {
		t.Fatal("expected an error for a truncated percent-escape")
	}
}

func TestParseRequestBasic(t *testing.T) {
	params, err := ParseRequest("/baseroute?coords=1.0,103.0&coords=1.1,103.1&instructions=true")
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if params.Service != "baseroute" {
		t.Errorf("Service = %q, want baseroute", params.Service)
	}
	if params.Format != "json" {
		t.Errorf("Format = %q, want json (default)", params.Format)
	}
	if len(params.Coordinates) != 2 {
		t.Fatalf("Coordinates = %v, want 2 entries", params.Coordinates)
	}
	if params.Coordinates[1].Lat != 1.1 || params.Coordinates[1].Lng != 103.1 {
		t.Errorf("Coordinates[1] = %+v, want {1.1 103.1}", params.Coordinates[1])
	}
	if !params.Instructions {
		t.Error("Instructions = false, want true")
	}
}

func TestParseRequestFormatSegment(t *testing.T) {
	params, err := ParseRequest("/baseroute/gpx?coords=1.0,103.0&coords=1.1,103.1")
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if params.Format != "gpx" {
		t.Errorf("Format = %q, want gpx", params.Format)
	}
}

func TestParseRequestMalformedCoordsReportsByteOffset(t *testing.T) {
	_, err := ParseRequest("/baseroute?coords=abc")
	if err == nil {
		t.Fatal("expected a grammar error")
	}
	ge, ok := err.(*GrammarError)
	if !ok {
		t.Fatalf("err = %T, want *GrammarError", err)
	}
	if ge.Offset != 18 {
		t.Errorf("Offset = %d, want 18 (the position of 'a')", ge.Offset)
	}
}

func TestParseRequestMissingLeadingSlash(t *testing.T) {
	_, err := ParseRequest("baseroute")
	if err == nil {
		t.Fatal("expected a grammar error for a URI without a leading slash")
	}
}

func TestParseRequestJSONP(t *testing.T) {
	params, err := ParseRequest("/hello?jsonp=myCallback")
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if params.JSONP != "myCallback" {
		t.Errorf("JSONP = %q, want myCallback", params.JSONP)
	}
}

func TestRouteUnknownServiceIs400(t *testing.T) {
	registry := plugins.NewRegistry()
	resp := Route(context.Background(), registry, Request{URI: "/nosuchservice"})
	if resp.Status != 400 {
		t.Errorf("Status = %d, want 400", resp.Status)
	}
}

func TestRouteMalformedURIIs400WithOffset(t *testing.T) {
	registry := plugins.NewRegistry()
	resp := Route(context.Background(), registry, Request{URI: "/baseroute?coords=abc"})
	if resp.Status != 400 {
		t.Fatalf("Status = %d, want 400", resp.Status)
	}
	if !contains(string(resp.Body), "18") {
		t.Errorf("body = %s, want it to mention byte offset 18", resp.Body)
	}
}

func TestRouteDispatchesToHello(t *testing.T) {
	registry := plugins.NewRegistry()
	registry.Register(plugins.NewHelloPlugin())

	resp := Route(context.Background(), registry, Request{URI: "/hello"})
	if resp.Status != 200 {
		t.Fatalf("Status = %d, want 200, body: %s", resp.Status, resp.Body)
	}
	if resp.Headers["Content-Type"] != "application/json; charset=UTF-8" {
		t.Errorf("Content-Type = %q, want application/json", resp.Headers["Content-Type"])
	}
}

func TestRouteWrapsJSONP(t *testing.T) {
	registry := plugins.NewRegistry()
	registry.Register(plugins.NewHelloPlugin())

	resp := Route(context.Background(), registry, Request{URI: "/hello?jsonp=cb"})
	if resp.Headers["Content-Type"] != "text/javascript; charset=UTF-8" {
		t.Errorf("Content-Type = %q, want text/javascript", resp.Headers["Content-Type"])
	}
	if resp.Body[0] != 'c' || resp.Body[1] != 'b' || resp.Body[2] != '(' {
		t.Errorf("body = %s, want it prefixed with cb(", resp.Body)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
