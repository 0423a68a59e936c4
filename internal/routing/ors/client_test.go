package ors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/routing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("Authorization"))
		assert.Equal(t, "ARG", r.URL.Query().Get("boundary.country"))
		switch r.URL.Query().Get("text") {
		case "A":
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-64.18,-31.40]}}]}`))
		case "B":
			_, _ = w.Write([]byte(`{"features":[{"geometry":{"coordinates":[-64.20,-31.42]}}]}`))
		default:
			_, _ = w.Write([]byte(`{"features":[]}`))
		}
	})
	mux.HandleFunc("/v2/directions/driving-car", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-64.180000,-31.400000", r.URL.Query().Get("start"))
		assert.Equal(t, "-64.200000,-31.420000", r.URL.Query().Get("end"))
		_, _ = w.Write([]byte(`{"features":[{"properties":{"summary":{"distance":4200,"duration":540}}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGeocode(t *testing.T) {
	srv := newServer(t)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Country: "ARG"}, srv.Client())

	got, err := c.Geocode(context.Background(), "A")

	require.NoError(t, err)
	assert.Equal(t, routing.Coordinates{Lat: -31.40, Lng: -64.18}, got)
}

func TestRoute_GeocodesEndpointsItself(t *testing.T) {
	srv := newServer(t)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Country: "ARG"}, srv.Client())

	leg, err := c.Route(context.Background(), routing.Waypoint{Text: "A"}, routing.Waypoint{Text: "B"})

	require.NoError(t, err)
	assert.Equal(t, 4.2, leg.DistanceKm)
	assert.Equal(t, 9, leg.DurationMin)
}

func TestRoute_UnknownOrigin(t *testing.T) {
	srv := newServer(t)
	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Country: "ARG"}, srv.Client())

	_, err := c.Route(context.Background(), routing.Waypoint{Text: "nowhere"}, routing.Waypoint{Text: "B"})

	assert.ErrorIs(t, err, routing.ErrNoResult)
}
