// Package router turns a raw request URI into plugins.Params and dispatches
// it to the registered plugin, following a byte-offset-tracked grammar and
// a fixed header-selection contract.
package router

import "fmt"

// GrammarError reports the byte offset of the first character the grammar
// rejected; the status message names that offset.
type GrammarError struct {
	Offset int
}

func (e *GrammarError) Error() string {
	return fmt.Sprintf("router: malformed request at byte %d", e.Offset)
}

// decoded is a %HH-decoded byte string paired with, for every output byte,
// the raw-string offset it came from -- so a grammar error found after
// decoding can still report the caller's original byte offset.
type decoded struct {
	bytes   []byte
	offsets []int
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

// decodeURIOffsets performs the %HH-octet decode. Unlike url.QueryUnescape,
// a literal '+' is left untouched -- this grammar assigns '+' no special
// meaning, and coordinate lists never carry a space that would need it.
func decodeURIOffsets(s string) (decoded, error) {
	d := decoded{bytes: make([]byte, 0, len(s)), offsets: make([]int, 0, len(s))}
	i := 0
	for i < len(s) {
		c := s[i]
		if c == '%' {
			if i+2 >= len(s) {
				return d, &GrammarError{Offset: i}
			}
			hi, ok1 := hexVal(s[i+1])
			lo, ok2 := hexVal(s[i+2])
			if !ok1 || !ok2 {
				return d, &GrammarError{Offset: i}
			}
			d.bytes = append(d.bytes, byte(hi<<4|lo))
			d.offsets = append(d.offsets, i)
			i += 3
			continue
		}
		d.bytes = append(d.bytes, c)
		d.offsets = append(d.offsets, i)
		i++
	}
	return d, nil
}

// DecodeURI is the public one-shot decode, used directly by tests of the
// decode(encode(s)) == s round-trip property.
func DecodeURI(s string) (string, error) {
	d, err := decodeURIOffsets(s)
	if err != nil {
		return "", err
	}
	return string(d.bytes), nil
}
