// Package mapbox geocodes addresses with the Mapbox Geocoding v5 API.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fletes-app/service-quote/internal/routing"
)

// Config configures the geocoder. BaseURL defaults to the public places endpoint.
type Config struct {
	Token    string
	BaseURL  string
	Country  string
	Language string
}

func (cfg Config) endpoint() string {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return "https://api.mapbox.com/geocoding/v5/mapbox.places/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base
}

// Geocoder is a routing.Geocoder.
type Geocoder struct {
	cfg  Config
	http *http.Client
}

// NewGeocoder creates a Geocoder.
func NewGeocoder(cfg Config, httpClient *http.Client) *Geocoder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Geocoder{cfg: cfg, http: httpClient}
}

func (g *Geocoder) Name() string { return "mapbox" }

func (g *Geocoder) Geocode(ctx context.Context, text string) (routing.Coordinates, error) {
	token := strings.TrimSpace(g.cfg.Token)
	if token == "" {
		return routing.Coordinates{}, errors.New("mapbox token missing")
	}
	query := strings.TrimSpace(text)
	if query == "" {
		return routing.Coordinates{}, errors.New("empty query")
	}

	q := url.Values{}
	q.Set("access_token", token)
	q.Set("limit", "1")
	if g.cfg.Country != "" {
		q.Set("country", g.cfg.Country)
	}
	if g.cfg.Language != "" {
		q.Set("language", g.cfg.Language)
	}
	endpoint := g.cfg.endpoint() + url.PathEscape(query) + ".json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return routing.Coordinates{}, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return routing.Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return routing.Coordinates{}, fmt.Errorf("mapbox status %d", resp.StatusCode)
	}

	var data struct {
		Features []struct {
			Center []float64 `json:"center"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return routing.Coordinates{}, err
	}
	if len(data.Features) == 0 || len(data.Features[0].Center) < 2 {
		return routing.Coordinates{}, fmt.Errorf("mapbox: %w", routing.ErrNoResult)
	}
	return routing.Coordinates{Lng: data.Features[0].Center[0], Lat: data.Features[0].Center[1]}, nil
}
