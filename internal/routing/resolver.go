package routing

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ResolverConfig configures address normalization and geocoding.
type ResolverConfig struct {
	DefaultLocality string
	LocalityMarkers []string
	Timeout         time.Duration
	CacheSize       int
}

// Resolver geocodes addresses through an ordered list of geocoders.
type Resolver struct {
	cfg       ResolverConfig
	markers   []string
	geocoders []Geocoder
	logger    *zap.Logger

	mu    sync.RWMutex
	cache map[string]Coordinates
}

// NewResolver creates a Resolver. An empty geocoder list is valid: every lookup is then
// Unresolved.
func NewResolver(cfg ResolverConfig, geocoders []Geocoder, logger *zap.Logger) *Resolver {
	markers := make([]string, 0, len(cfg.LocalityMarkers)+1)
	for _, m := range append([]string{cfg.DefaultLocality}, cfg.LocalityMarkers...) {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &Resolver{
		cfg:       cfg,
		markers:   markers,
		geocoders: geocoders,
		logger:    logger,
		cache:     make(map[string]Coordinates),
	}
}

// Normalize appends the default locality unless the text already names a known one.
func (r *Resolver) Normalize(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return r.cfg.DefaultLocality
	}
	lower := strings.ToLower(s)
	for _, m := range r.markers {
		if strings.Contains(lower, m) {
			return s
		}
	}
	if r.cfg.DefaultLocality == "" {
		return s
	}
	return s + ", " + r.cfg.DefaultLocality
}

// Resolve normalizes text and geocodes it. ok is false when no geocoder could resolve it;
// that is an expected outcome, not an error.
func (r *Resolver) Resolve(ctx context.Context, text string) (addr Address, ok bool) {
	addr = Address{Raw: text, Normalized: r.Normalize(text)}

	if c, hit := r.cached(addr.Normalized); hit {
		addr.Coords = &c
		return addr, true
	}

	for _, g := range r.geocoders {
		c, err := r.geocodeOne(ctx, g, addr.Normalized)
		if err != nil {
			r.logger.Warn("geocoder failed",
				zap.String("geocoder", g.Name()),
				zap.String("address", addr.Normalized),
				zap.Error(err),
			)
			continue
		}
		r.store(addr.Normalized, c)
		addr.Coords = &c
		return addr, true
	}

	if len(r.geocoders) > 0 {
		r.logger.Info("address unresolved", zap.String("address", addr.Normalized))
	}
	return addr, false
}

func (r *Resolver) geocodeOne(ctx context.Context, g Geocoder, text string) (Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	c, err := g.Geocode(ctx, text)
	if err != nil {
		return Coordinates{}, err
	}
	if !validCoordinates(c) {
		return Coordinates{}, errInvalidCoordinates
	}
	return c, nil
}

func (r *Resolver) cached(key string) (Coordinates, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[strings.ToLower(key)]
	return c, ok
}

func (r *Resolver) store(key string, c Coordinates) {
	if r.cfg.CacheSize <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= r.cfg.CacheSize {
		r.cache = make(map[string]Coordinates)
	}
	r.cache[strings.ToLower(key)] = c
}
