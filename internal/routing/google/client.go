// Package google implements geocoding and driving distance over the Google Maps web APIs.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/fletes-app/service-quote/internal/routing"
)

const defaultBaseURL = "https://maps.googleapis.com"

// Config configures the Google client.
type Config struct {
	APIKey   string
	BaseURL  string
	Region   string
	Language string
}

// Client is both a routing.Geocoder and a routing.RouteProvider.
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

func (c *Client) Name() string { return "google" }

// Geocode resolves text with the Geocoding API.
func (c *Client) Geocode(ctx context.Context, text string) (routing.Coordinates, error) {
	q := url.Values{}
	q.Set("address", text)
	c.setCommon(q)

	var data struct {
		Status  string `json:"status"`
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/maps/api/geocode/json", q, &data); err != nil {
		return routing.Coordinates{}, err
	}
	if data.Status != "OK" || len(data.Results) == 0 {
		return routing.Coordinates{}, fmt.Errorf("google geocode status %s: %w", data.Status, routing.ErrNoResult)
	}
	loc := data.Results[0].Geometry.Location
	return routing.Coordinates{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// Route asks the Distance Matrix API for a single origin/destination pair.
func (c *Client) Route(ctx context.Context, from, to routing.Waypoint) (routing.Leg, error) {
	q := url.Values{}
	q.Set("origins", from.Text)
	q.Set("destinations", to.Text)
	q.Set("mode", "driving")
	c.setCommon(q)

	var data struct {
		Status string `json:"status"`
		Rows   []struct {
			Elements []struct {
				Status   string `json:"status"`
				Distance struct {
					Value float64 `json:"value"`
				} `json:"distance"`
				Duration struct {
					Value float64 `json:"value"`
				} `json:"duration"`
			} `json:"elements"`
		} `json:"rows"`
	}
	if err := c.get(ctx, "/maps/api/distancematrix/json", q, &data); err != nil {
		return routing.Leg{}, err
	}
	if data.Status != "OK" || len(data.Rows) == 0 || len(data.Rows[0].Elements) == 0 {
		return routing.Leg{}, fmt.Errorf("google distance matrix status %s: %w", data.Status, routing.ErrNoResult)
	}
	el := data.Rows[0].Elements[0]
	if el.Status != "OK" {
		return routing.Leg{}, fmt.Errorf("google element status %s: %w", el.Status, routing.ErrNoResult)
	}
	return routing.Leg{
		DistanceKm:  el.Distance.Value / 1000,
		DurationMin: int(math.Round(el.Duration.Value / 60)),
	}, nil
}

func (c *Client) setCommon(q url.Values) {
	q.Set("key", c.cfg.APIKey)
	if c.cfg.Region != "" {
		q.Set("region", c.cfg.Region)
	}
	if c.cfg.Language != "" {
		q.Set("language", c.cfg.Language)
	}
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("google status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
