// Package osrm routes over coordinates with an OSRM server. It needs no credentials.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/fletes-app/service-quote/internal/routing"
)

const defaultBaseURL = "https://router.project-osrm.org"

// Client is a routing.RouteProvider and a routing.CoordinateRouter.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client against baseURL, or the public demo server when empty.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (c *Client) Name() string { return "osrm" }

func (c *Client) RequiresCoordinates() bool { return true }

// Route requests route/v1/driving between the two resolved waypoints.
func (c *Client) Route(ctx context.Context, from, to routing.Waypoint) (routing.Leg, error) {
	if from.Coords == nil || to.Coords == nil {
		return routing.Leg{}, errors.New("osrm needs coordinates for both waypoints")
	}
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		c.baseURL, from.Coords.Lng, from.Coords.Lat, to.Coords.Lng, to.Coords.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return routing.Leg{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return routing.Leg{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return routing.Leg{}, fmt.Errorf("osrm status %d", resp.StatusCode)
	}

	var data struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return routing.Leg{}, err
	}
	if data.Code != "Ok" || len(data.Routes) == 0 {
		return routing.Leg{}, fmt.Errorf("osrm code %s: %w", data.Code, routing.ErrNoResult)
	}
	return routing.Leg{
		DistanceKm:  data.Routes[0].Distance / 1000,
		DurationMin: int(math.Round(data.Routes[0].Duration / 60)),
	}, nil
}
