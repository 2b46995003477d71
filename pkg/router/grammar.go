package router

import (
	"bytes"
	"strconv"

	"mapd/pkg/plugins"
	"mapd/pkg/routing"
)

// ParseRequest recognizes
// /{service}[/{format}][?coords=lat,lon&coords=lat,lon...&instructions=&jsonp=&uturns=]
// against the decoded URI, hand-rolled rather than pulled from net/url
// because net/url's query decoding folds '+' into a space and offers no way
// to recover a byte offset on failure.
func ParseRequest(uri string) (plugins.Params, error) {
	d, err := decodeURIOffsets(uri)
	if err != nil {
		return plugins.Params{}, err
	}
	b := d.bytes

	if len(b) == 0 || b[0] != '/' {
		return plugins.Params{}, &GrammarError{Offset: errOffset(d, 0)}
	}

	path, query := b, []byte(nil)
	if idx := bytes.IndexByte(b, '?'); idx >= 0 {
		path, query = b[:idx], b[idx+1:]
	}

	segments := bytes.Split(path[1:], []byte{'/'})
	if len(segments) == 0 || len(segments[0]) == 0 {
		return plugins.Params{}, &GrammarError{Offset: errOffset(d, 1)}
	}

	params := plugins.Params{Service: string(segments[0]), Format: "json"}
	if len(segments) >= 2 && len(segments[1]) > 0 {
		params.Format = string(segments[1])
	}

	if query == nil {
		return params, nil
	}
	queryOffset := len(path) + 1 // "?" itself occupies one byte

	pos := queryOffset
	for _, pair := range bytes.Split(query, []byte{'&'}) {
		if len(pair) == 0 {
			pos += 1
			continue
		}
		eq := bytes.IndexByte(pair, '=')
		var key, value []byte
		if eq < 0 {
			key, value = pair, nil
		} else {
			key, value = pair[:eq], pair[eq+1:]
		}
		valueOffset := pos
		if eq >= 0 {
			valueOffset = pos + eq + 1
		}

		switch string(key) {
		case "coords":
			lat, lon, err := parseCoordPair(value, valueOffset, d)
			if err != nil {
				return plugins.Params{}, err
			}
			params.Coordinates = append(params.Coordinates, routing.LatLng{Lat: lat, Lng: lon})
		case "instructions":
			b, err := parseBool(value, valueOffset, d)
			if err != nil {
				return plugins.Params{}, err
			}
			params.Instructions = b
		case "uturns":
			b, err := parseBool(value, valueOffset, d)
			if err != nil {
				return plugins.Params{}, err
			}
			params.UTurns = b
		case "jsonp":
			params.JSONP = string(value)
		}

		pos += len(pair) + 1 // +1 for the consumed '&'
	}

	return params, nil
}

// parseCoordPair parses "lat,lon". On failure the reported offset points at
// the first byte of whichever half of the pair didn't parse, translated
// back through d to the caller's original raw-URI offset.
func parseCoordPair(value []byte, valueOffset int, d decoded) (lat, lon float64, err error) {
	comma := bytes.IndexByte(value, ',')
	if comma < 0 {
		return 0, 0, &GrammarError{Offset: errOffset(d, valueOffset)}
	}
	latPart, lonPart := value[:comma], value[comma+1:]

	lat, perr := strconv.ParseFloat(string(latPart), 64)
	if perr != nil {
		return 0, 0, &GrammarError{Offset: errOffset(d, valueOffset)}
	}
	lon, perr = strconv.ParseFloat(string(lonPart), 64)
	if perr != nil {
		return 0, 0, &GrammarError{Offset: errOffset(d, valueOffset+comma+1)}
	}
	return lat, lon, nil
}

func parseBool(value []byte, valueOffset int, d decoded) (bool, error) {
	if len(value) == 0 {
		return true, nil // "instructions" with no value means "on", matching a bare query flag
	}
	b, err := strconv.ParseBool(string(value))
	if err != nil {
		return false, &GrammarError{Offset: errOffset(d, valueOffset)}
	}
	return b, nil
}

// errOffset maps an index into the decoded byte slice back to its raw-URI
// offset; an index past the end of d.offsets (an error found right at EOF)
// falls back to the length of the original string.
func errOffset(d decoded, idx int) int {
	if idx < len(d.offsets) {
		return d.offsets[idx]
	}
	if len(d.offsets) > 0 {
		return d.offsets[len(d.offsets)-1] + 1
	}
	return 0
}
