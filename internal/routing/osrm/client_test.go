package osrm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/routing"
)

func TestRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/route/v1/driving/-64.180000,-31.400000;-64.200000,-31.420000", r.URL.Path)
		_, _ = w.Write([]byte(`{"code":"Ok","routes":[{"distance":3180.4,"duration":450}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client())
	leg, err := c.Route(context.Background(),
		routing.Waypoint{Coords: &routing.Coordinates{Lat: -31.40, Lng: -64.18}},
		routing.Waypoint{Coords: &routing.Coordinates{Lat: -31.42, Lng: -64.20}},
	)

	require.NoError(t, err)
	assert.InDelta(t, 3.1804, leg.DistanceKm, 1e-9)
	assert.Equal(t, 8, leg.DurationMin)
	assert.True(t, c.RequiresCoordinates())
}

func TestRoute_NoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"NoRoute","routes":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Route(context.Background(),
		routing.Waypoint{Coords: &routing.Coordinates{}},
		routing.Waypoint{Coords: &routing.Coordinates{}},
	)

	assert.ErrorIs(t, err, routing.ErrNoResult)
}

func TestRoute_MissingCoordinates(t *testing.T) {
	_, err := NewClient("http://unused", nil).Route(context.Background(),
		routing.Waypoint{Text: "A"}, routing.Waypoint{Text: "B"})

	assert.Error(t, err)
}
