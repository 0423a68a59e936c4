// Package routing turns free-text addresses into coordinates and distance/time estimates.
//
// Geocoders and route providers are strategies tried in priority order; the final
// heuristic tier is pure arithmetic, so estimates never fail.
package routing

import (
	"context"
	"errors"
)

// ErrNoResult is returned by providers that answered but found nothing.
var ErrNoResult = errors.New("no result")

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a raw address, its normalized form, and coordinates when they resolved.
type Address struct {
	Raw        string       `json:"raw"`
	Normalized string       `json:"normalized"`
	Coords     *Coordinates `json:"coords,omitempty"`
}

// Waypoint is what a RouteProvider receives: normalized text, plus coordinates if known.
type Waypoint struct {
	Text   string
	Coords *Coordinates
}

// Leg is a provider's answer for one hop.
type Leg struct {
	DistanceKm  float64
	DurationMin int
}

// Segment is one estimated hop of a route, tagged with the tier that produced it.
type Segment struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	DistanceKm  float64 `json:"distance_km"`
	DurationMin int     `json:"duration_min"`
	Provider    string  `json:"provider"`
}

// Circuit is an ordered route with its per-leg breakdown.
type Circuit struct {
	DistanceKm  float64   `json:"distance_km"`
	DurationMin int       `json:"duration_min"`
	Segments    []Segment `json:"segments"`
}

// Geocoder resolves text to coordinates.
type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, text string) (Coordinates, error)
}

// RouteProvider measures driving distance and time between two waypoints.
type RouteProvider interface {
	Name() string
	Route(ctx context.Context, from, to Waypoint) (Leg, error)
}

// CoordinateRouter is implemented by providers that only route over coordinates. The
// estimator resolves both waypoints before calling them and skips them when it cannot.
type CoordinateRouter interface {
	RequiresCoordinates() bool
}
