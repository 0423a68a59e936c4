package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fletes-app/service-quote/internal/routing"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "Av. Colón 1000, Córdoba", r.URL.Query().Get("address"))
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Equal(t, "ar", r.URL.Query().Get("region"))
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":-31.41,"lng":-64.19}}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Region: "ar"}, srv.Client())
	got, err := c.Geocode(context.Background(), "Av. Colón 1000, Córdoba")

	require.NoError(t, err)
	assert.Equal(t, routing.Coordinates{Lat: -31.41, Lng: -64.19}, got)
}

func TestGeocode_ZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client()).Geocode(context.Background(), "x")

	assert.ErrorIs(t, err, routing.ErrNoResult)
}

func TestRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/distancematrix/json", r.URL.Path)
		assert.Equal(t, "A", r.URL.Query().Get("origins"))
		assert.Equal(t, "B", r.URL.Query().Get("destinations"))
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"OK","distance":{"value":12345},"duration":{"value":1290}}]}]}`))
	}))
	defer srv.Close()

	leg, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client()).
		Route(context.Background(), routing.Waypoint{Text: "A"}, routing.Waypoint{Text: "B"})

	require.NoError(t, err)
	assert.Equal(t, 12.345, leg.DistanceKm)
	assert.Equal(t, 22, leg.DurationMin)
}

func TestRoute_ElementNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","rows":[{"elements":[{"status":"NOT_FOUND"}]}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client()).
		Route(context.Background(), routing.Waypoint{Text: "A"}, routing.Waypoint{Text: "B"})

	assert.ErrorIs(t, err, routing.ErrNoResult)
}

func TestRoute_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, srv.Client()).
		Route(context.Background(), routing.Waypoint{Text: "A"}, routing.Waypoint{Text: "B"})

	assert.Error(t, err)
}
