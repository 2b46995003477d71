// Package descriptor renders a routed path into a response body, as a
// small capability interface in place of a descriptor inheritance
// hierarchy: a descriptor exposes only SetConfig and Render, and
// BaseRoutePlugin picks a concrete one by requested format.
package descriptor

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
)

// Config carries the per-request rendering options a plugin extracts from
// plugins.Params' instructions query flag.
type Config struct {
	Instructions bool
}

// Waypoint is one point of a rendered route's geometry.
type Waypoint struct {
	Lat, Lon float64
}

// Route is what a plugin hands a Descriptor to render. Found mirrors
// RawRoute.ShortestPathLength != INVALID_EDGE_WEIGHT; a not-found route
// still renders a well-formed body, it just carries no geometry.
type Route struct {
	Found         bool
	Geometry      []Waypoint
	TotalDistance uint32
	TotalTime     uint32
}

// Descriptor is the render-side capability: something that exposes
// SetConfig and Render.
type Descriptor interface {
	SetConfig(cfg Config)
	Render(route Route) []byte
}

// JSONDescriptor renders the default application/json body, field-for-field
// compatible with the original service's response shape.
type JSONDescriptor struct {
	cfg Config
}

func NewJSONDescriptor() *JSONDescriptor { return &JSONDescriptor{} }

func (d *JSONDescriptor) SetConfig(cfg Config) { d.cfg = cfg }

type jsonSummary struct {
	TotalDistance uint32 `json:"total_distance"`
	TotalTime     uint32 `json:"total_time"`
}

type jsonResponse struct {
	Status        int          `json:"status"`
	StatusMessage string       `json:"status_message"`
	RouteSummary  jsonSummary  `json:"route_summary"`
	RouteGeometry [][2]float64 `json:"route_geometry,omitempty"`
}

// Render marshals route as the standard OK/no-route JSON body. status 0
// means a route was found; 207 is the "found nothing to route" code, not
// an HTTP status -- it travels inside the JSON body while the HTTP status
// line stays 200.
func (d *JSONDescriptor) Render(route Route) []byte {
	resp := jsonResponse{
		RouteSummary: jsonSummary{
			TotalDistance: route.TotalDistance,
			TotalTime:     route.TotalTime,
		},
	}
	if route.Found {
		resp.Status = 0
		resp.StatusMessage = "Found route between points"
		resp.RouteGeometry = make([][2]float64, len(route.Geometry))
		for i, wp := range route.Geometry {
			resp.RouteGeometry[i] = [2]float64{wp.Lat, wp.Lon}
		}
	} else {
		resp.Status = 207
		resp.StatusMessage = "Cannot find route between points"
	}

	body, err := json.Marshal(resp)
	if err != nil {
		// jsonResponse has no cyclic or unsupported field types; this
		// path is unreachable in practice.
		return []byte(fmt.Sprintf(`{"status":500,"status_message":%q}`, err.Error()))
	}
	return body
}

// GPXDescriptor renders application/gpx+xml, one <trk> with a single
// <trkseg> of <trkpt> elements.
type GPXDescriptor struct {
	cfg Config
}

func NewGPXDescriptor() *GPXDescriptor { return &GPXDescriptor{} }

func (d *GPXDescriptor) SetConfig(cfg Config) { d.cfg = cfg }

type gpxTrkpt struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type gpxTrkseg struct {
	Points []gpxTrkpt `xml:"trkpt"`
}

type gpxTrk struct {
	Name string    `xml:"name,omitempty"`
	Seg  gpxTrkseg `xml:"trkseg"`
}

type gpxDoc struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Track   gpxTrk   `xml:"trk"`
}

func (d *GPXDescriptor) Render(route Route) []byte {
	doc := gpxDoc{
		Version: "1.1",
		Creator: "mapd",
		Track:   gpxTrk{Name: "route"},
	}
	if route.Found {
		doc.Track.Seg.Points = make([]gpxTrkpt, len(route.Geometry))
		for i, wp := range route.Geometry {
			doc.Track.Seg.Points[i] = gpxTrkpt{Lat: wp.Lat, Lon: wp.Lon}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return []byte(fmt.Sprintf("<!-- render error: %s -->", err.Error()))
	}
	return buf.Bytes()
}

// JSONPWrap prefixes body with "ident(" and appends ")", the transform
// pkg/router applies when the request carries a jsonp= identifier.
func JSONPWrap(ident string, body []byte) []byte {
	out := make([]byte, 0, len(ident)+len(body)+2)
	out = append(out, ident...)
	out = append(out, '(')
	out = append(out, body...)
	out = append(out, ')')
	return out
}
