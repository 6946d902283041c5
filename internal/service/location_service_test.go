package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sharecycle-be/internal/config"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geocodingConfig(baseURL string) config.GeocodingConfig {
	return config.GeocodingConfig{
		GeoapifyKey: "test-key",
		BaseURL:     baseURL,
		CountryCode: "br",
		MinLat:      -33.75,
		MaxLat:      5.27,
		MinLon:      -73.99,
		MaxLon:      -34.79,
		Timeout:     time.Second,
		CacheTTL:    time.Minute,
	}
}

func TestForwardGeocode(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/geocode/search", r.URL.Path)
		assert.Equal(t, "countrycode:br", r.URL.Query().Get("filter"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		w.Header().Set("Content-Type", "application/json")
		// first result lies outside the bounding box and must be skipped
		_, _ = w.Write([]byte(`{"results":[
			{"lat":38.72,"lon":-9.14,"formatted":"Lisboa"},
			{"lat":-23.5614,"lon":-46.6559,"formatted":"Av. Paulista, São Paulo"}
		]}`))
	}))
	defer srv.Close()

	svc := NewLocationService(geocodingConfig(srv.URL), logger.NewNopLogger())

	point, err := svc.ForwardGeocode(context.Background(), "Av. Paulista, 1000, São Paulo, SP, 01310-100")
	require.NoError(t, err)
	require.NotNil(t, point)
	assert.InDelta(t, -23.5614, point.Latitude, 1e-9)
	assert.InDelta(t, -46.6559, point.Longitude, 1e-9)

	_, err = svc.ForwardGeocode(context.Background(), "av. paulista, 1000, são paulo, sp, 01310-100")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second lookup should hit the cache")
}

func TestForwardGeocodeNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	svc := NewLocationService(geocodingConfig(srv.URL), logger.NewNopLogger())
	point, err := svc.ForwardGeocode(context.Background(), "nowhere")
	assert.NoError(t, err)
	assert.Nil(t, point)

	point, err = svc.ForwardGeocode(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Nil(t, point)
}

func TestForwardGeocodeDegraded(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "server error", handler: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{name: "bad json", handler: func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":`))
		}},
		{name: "timeout", handler: func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte(`{"results":[]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cfg := geocodingConfig(srv.URL)
			cfg.Timeout = 100 * time.Millisecond
			svc := NewLocationService(cfg, logger.NewNopLogger())

			point, err := svc.ForwardGeocode(context.Background(), "Rua Augusta, São Paulo")
			assert.Nil(t, point)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeExternalServiceDegraded))
		})
	}
}

func TestReverseGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/geocode/reverse", r.URL.Path)
		assert.Equal(t, "-22.9068", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"results":[{"lat":-22.9068,"lon":-43.1729,"formatted":"Centro, Rio de Janeiro",
			"city":"Rio de Janeiro","state":"Rio de Janeiro","postcode":"20010-000","country":"Brasil"}]}`))
	}))
	defer srv.Close()

	svc := NewLocationService(geocodingConfig(srv.URL), logger.NewNopLogger())
	res, err := svc.ReverseGeocode(context.Background(), -22.9068, -43.1729)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Rio de Janeiro", res.City)
	assert.Equal(t, "20010-000", res.ZipCode)
}

func TestGeocodingFailureDoesNotLogAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	logPath := filepath.Join(t.TempDir(), "geocoding.log")
	log := logger.NewIsolatedLogger(logPath)
	cfg := geocodingConfig(baseURL)
	cfg.GeoapifyKey = "secret-geoapify-key"
	svc := NewLocationService(cfg, log)

	_, err := svc.ForwardGeocode(context.Background(), "Rua Augusta, São Paulo")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeExternalServiceDegraded))
	assert.NotContains(t, err.Error(), "secret-geoapify-key")

	_, err = svc.ReverseGeocode(context.Background(), -22.9, -43.17)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-geoapify-key")

	_ = log.Sync()
	written, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(written), "Geocoding provider unavailable")
	assert.NotContains(t, string(written), "secret-geoapify-key")
	assert.NotContains(t, string(written), "apiKey")
}
