package routing

import (
	"errors"
	"math"
)

const earthRadiusKm = 6371.0

// HeuristicName tags segments produced without any external provider.
const HeuristicName = "heuristic"

var errInvalidCoordinates = errors.New("coordinates out of range")

// Heuristic estimates a leg from great-circle distance when no provider answers.
type Heuristic struct {
	TraceFactor float64 // straight line to road distance
	AvgSpeedKmh float64
	FallbackKm  float64 // used as-is when either end is unresolved
}

// DefaultHeuristic is the configuration used when none is given.
func DefaultHeuristic() Heuristic {
	return Heuristic{TraceFactor: 1.25, AvgSpeedKmh: 35, FallbackKm: 10}
}

// Estimate returns a leg between two optional points.
func (h Heuristic) Estimate(from, to *Coordinates) Leg {
	if from == nil || to == nil {
		return h.fromRoadKm(h.FallbackKm)
	}
	return h.Leg(Haversine(*from, *to))
}

// Leg converts a great-circle distance into a road leg.
func (h Heuristic) Leg(greatCircleKm float64) Leg {
	factor := h.TraceFactor
	if factor <= 0 {
		factor = 1
	}
	return h.fromRoadKm(greatCircleKm * factor)
}

func (h Heuristic) fromRoadKm(km float64) Leg {
	if km < 0 || math.IsNaN(km) || math.IsInf(km, 0) {
		km = 0
	}
	speed := h.AvgSpeedKmh
	if speed <= 0 {
		speed = 35
	}
	km = round2(km)
	return Leg{
		DistanceKm:  km,
		DurationMin: int(math.Round(km / speed * 60)),
	}
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	s := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(s), math.Sqrt(1-s))
}

func validCoordinates(c Coordinates) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
