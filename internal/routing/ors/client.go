// Package ors implements geocoding and driving directions over OpenRouteService.
package ors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fletes-app/service-quote/internal/routing"
)

const defaultBaseURL = "https://api.openrouteservice.org"

// Config configures the OpenRouteService client.
type Config struct {
	APIKey  string
	BaseURL string
	Country string // ISO alpha-3 boundary for geocoding, e.g. ARG
}

// Client geocodes with the Pelias search endpoint and routes with driving-car directions.
// Route geocodes the endpoints itself, so it does not depend on the other geocoders.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

func (c *Client) Name() string { return "ors" }

// Geocode resolves text with /geocode/search.
func (c *Client) Geocode(ctx context.Context, text string) (routing.Coordinates, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("size", "1")
	if c.cfg.Country != "" {
		q.Set("boundary.country", c.cfg.Country)
	}

	var data struct {
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := c.get(ctx, "/geocode/search", q, &data); err != nil {
		return routing.Coordinates{}, err
	}
	if len(data.Features) == 0 || len(data.Features[0].Geometry.Coordinates) < 2 {
		return routing.Coordinates{}, fmt.Errorf("ors geocode: %w", routing.ErrNoResult)
	}
	pt := data.Features[0].Geometry.Coordinates
	return routing.Coordinates{Lat: pt[1], Lng: pt[0]}, nil
}

// Route geocodes both waypoints then asks for driving-car directions.
func (c *Client) Route(ctx context.Context, from, to routing.Waypoint) (routing.Leg, error) {
	start, err := c.Geocode(ctx, from.Text)
	if err != nil {
		return routing.Leg{}, fmt.Errorf("ors geocode origin: %w", err)
	}
	end, err := c.Geocode(ctx, to.Text)
	if err != nil {
		return routing.Leg{}, fmt.Errorf("ors geocode destination: %w", err)
	}

	q := url.Values{}
	q.Set("start", lngLat(start))
	q.Set("end", lngLat(end))

	var data struct {
		Features []struct {
			Properties struct {
				Summary struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
				} `json:"summary"`
			} `json:"properties"`
		} `json:"features"`
	}
	if err := c.get(ctx, "/v2/directions/driving-car", q, &data); err != nil {
		return routing.Leg{}, err
	}
	if len(data.Features) == 0 {
		return routing.Leg{}, fmt.Errorf("ors directions: %w", routing.ErrNoResult)
	}
	sum := data.Features[0].Properties.Summary
	return routing.Leg{
		DistanceKm:  sum.Distance / 1000,
		DurationMin: int(math.Round(sum.Duration / 60)),
	}, nil
}

func lngLat(c routing.Coordinates) string {
	return strconv.FormatFloat(c.Lng, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lat, 'f', 6, 64)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json, application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ors status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
