package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errInvalidLeg = errors.New("provider returned an invalid leg")

// Estimator produces distance/time estimates, trying providers in order and falling back to
// the heuristic. It never returns an error.
type Estimator struct {
	resolver  *Resolver
	providers []RouteProvider
	heuristic Heuristic
	timeout   time.Duration
	logger    *zap.Logger
}

// NewEstimator creates an Estimator. providers are tried in the given order.
func NewEstimator(resolver *Resolver, providers []RouteProvider, heuristic Heuristic, timeout time.Duration, logger *zap.Logger) *Estimator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Estimator{
		resolver:  resolver,
		providers: providers,
		heuristic: heuristic,
		timeout:   timeout,
		logger:    logger,
	}
}

// Resolver exposes the resolver used for waypoint normalization.
func (e *Estimator) Resolver() *Resolver {
	return e.resolver
}

// pair carries lazily resolved endpoints for one estimate.
type pair struct {
	from, to         Waypoint
	resolved, failed bool
}

// EstimatePair estimates one leg between two addresses.
func (e *Estimator) EstimatePair(ctx context.Context, a, b string) Segment {
	p := &pair{
		from: Waypoint{Text: e.resolver.Normalize(a)},
		to:   Waypoint{Text: e.resolver.Normalize(b)},
	}

	seg := Segment{From: p.from.Text, To: p.to.Text}

	for _, provider := range e.providers {
		if cr, ok := provider.(CoordinateRouter); ok && cr.RequiresCoordinates() {
			if !e.resolve(ctx, p) {
				e.logger.Debug("skipping coordinate router, endpoints unresolved",
					zap.String("provider", provider.Name()))
				continue
			}
		}

		leg, err := e.routeOne(ctx, provider, p.from, p.to)
		if err != nil {
			e.logger.Warn("route provider failed",
				zap.String("provider", provider.Name()),
				zap.String("from", p.from.Text),
				zap.String("to", p.to.Text),
				zap.Error(err),
			)
			continue
		}

		seg.DistanceKm = leg.DistanceKm
		seg.DurationMin = leg.DurationMin
		seg.Provider = provider.Name()
		return seg
	}

	e.resolve(ctx, p)
	leg := e.heuristic.Estimate(p.from.Coords, p.to.Coords)
	seg.DistanceKm = leg.DistanceKm
	seg.DurationMin = leg.DurationMin
	seg.Provider = HeuristicName
	return seg
}

// EstimateCircuit estimates the consecutive legs of waypoints. Legs are independent so they
// are estimated concurrently; the result keeps waypoint order.
func (e *Estimator) EstimateCircuit(ctx context.Context, waypoints []string) Circuit {
	if len(waypoints) < 2 {
		return Circuit{Segments: []Segment{}}
	}

	segments := make([]Segment, len(waypoints)-1)
	var g errgroup.Group
	for i := 0; i < len(waypoints)-1; i++ {
		g.Go(func() error {
			segments[i] = e.EstimatePair(ctx, waypoints[i], waypoints[i+1])
			return nil
		})
	}
	_ = g.Wait()

	c := Circuit{Segments: segments}
	for _, s := range segments {
		c.DistanceKm += s.DistanceKm
		c.DurationMin += s.DurationMin
	}
	c.DistanceKm = round2(c.DistanceKm)
	return c
}

func (e *Estimator) resolve(ctx context.Context, p *pair) bool {
	if p.resolved || p.failed {
		return p.resolved
	}
	from, okFrom := e.resolver.Resolve(ctx, p.from.Text)
	to, okTo := e.resolver.Resolve(ctx, p.to.Text)
	p.from.Coords = from.Coords
	p.to.Coords = to.Coords
	p.resolved = okFrom && okTo
	p.failed = !p.resolved
	return p.resolved
}

func (e *Estimator) routeOne(ctx context.Context, provider RouteProvider, from, to Waypoint) (Leg, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	leg, err := provider.Route(ctx, from, to)
	if err != nil {
		return Leg{}, err
	}
	if leg.DistanceKm < 0 || leg.DurationMin < 0 || math.IsNaN(leg.DistanceKm) || math.IsInf(leg.DistanceKm, 0) {
		return Leg{}, fmt.Errorf("%w: %+v", errInvalidLeg, leg)
	}
	leg.DistanceKm = round2(leg.DistanceKm)
	return leg, nil
}
