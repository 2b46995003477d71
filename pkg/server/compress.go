package server

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"strings"
)

// Negotiate picks a compression algorithm from an Accept-Encoding header
// value, preferring gzip over deflate over none.
func Negotiate(acceptEncoding string) string {
	lower := strings.ToLower(acceptEncoding)
	if strings.Contains(lower, "gzip") {
		return "gzip"
	}
	if strings.Contains(lower, "deflate") {
		return "deflate"
	}
	return ""
}

// Compress streams body through the named algorithm's writer. An unknown or
// empty alg is a no-op passthrough.
func Compress(alg string, body []byte) ([]byte, error) {
	switch alg {
	case "gzip":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "deflate":
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return body, nil
	}
}

// Decompress reverses Compress, used only by tests to check the round-trip.
func Decompress(alg string, body []byte) ([]byte, error) {
	switch alg {
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		var out bytes.Buffer
		if _, err := out.ReadFrom(r); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	case "deflate":
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		var out bytes.Buffer
		if _, err := out.ReadFrom(r); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	default:
		return body, nil
	}
}
