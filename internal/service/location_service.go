package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sharecycle-be/internal/config"
	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/pkg/geo"

	"github.com/patrickmn/go-cache"
)

// IGeocodingService resolves addresses to coordinates and back.
// A nil result with a nil error means the provider found no match; an error
// is always an *apperror.Error with code EXTERNAL_SERVICE_DEGRADED.
type IGeocodingService interface {
	ForwardGeocode(ctx context.Context, address string) (*geo.Point, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (*dto.ReverseGeocodeResult, error)
}

type geoapifyResult struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Formatted   string  `json:"formatted"`
	Street      string  `json:"street"`
	HouseNumber string  `json:"housenumber"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Postcode    string  `json:"postcode"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
}

type geoapifyResponse struct {
	Results []geoapifyResult `json:"results"`
}

type locationService struct {
	cfg    config.GeocodingConfig
	client *http.Client
	cache  *cache.Cache
	logger logger.ILogger
}

func NewLocationService(cfg config.GeocodingConfig, log logger.ILogger) IGeocodingService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &locationService{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		cache:  cache.New(ttl, time.Hour),
		logger: log,
	}
}

func (s *locationService) ForwardGeocode(ctx context.Context, address string) (*geo.Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	cacheKey := "forward:" + strings.ToLower(address)
	if val, ok := s.cache.Get(cacheKey); ok {
		return val.(*geo.Point), nil
	}

	params := url.Values{}
	params.Add("text", address)
	params.Add("filter", "countrycode:"+s.cfg.CountryCode)
	params.Add("format", "json")
	params.Add("limit", "5")
	params.Add("apiKey", s.cfg.GeoapifyKey)

	var result geoapifyResponse
	if err := s.get(ctx, "/v1/geocode/search", params, &result); err != nil {
		return nil, err
	}

	for _, r := range result.Results {
		if !s.withinBounds(r.Lat, r.Lon) {
			s.logger.Debug("GEOCODING", "Discarded result outside home country bounds", map[string]interface{}{
				"lat": r.Lat, "lon": r.Lon,
			})
			continue
		}
		point := &geo.Point{Latitude: r.Lat, Longitude: r.Lon}
		s.cache.Set(cacheKey, point, cache.DefaultExpiration)
		return point, nil
	}
	return nil, nil
}

func (s *locationService) ReverseGeocode(ctx context.Context, lat, lon float64) (*dto.ReverseGeocodeResult, error) {
	cacheKey := fmt.Sprintf("reverse:%.5f:%.5f", lat, lon)
	if val, ok := s.cache.Get(cacheKey); ok {
		return val.(*dto.ReverseGeocodeResult), nil
	}

	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Add("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Add("format", "json")
	params.Add("apiKey", s.cfg.GeoapifyKey)

	var result geoapifyResponse
	if err := s.get(ctx, "/v1/geocode/reverse", params, &result); err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return nil, nil
	}

	r := result.Results[0]
	response := &dto.ReverseGeocodeResult{
		FormattedAddress: r.Formatted,
		Street:           r.Street,
		HouseNumber:      r.HouseNumber,
		City:             r.City,
		State:            r.State,
		ZipCode:          r.Postcode,
		Country:          r.Country,
		Latitude:         r.Lat,
		Longitude:        r.Lon,
	}
	s.cache.Set(cacheKey, response, cache.DefaultExpiration)
	return response, nil
}

func (s *locationService) withinBounds(lat, lon float64) bool {
	return lat >= s.cfg.MinLat && lat <= s.cfg.MaxLat && lon >= s.cfg.MinLon && lon <= s.cfg.MaxLon
}

func (s *locationService) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return s.degraded(path, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return s.degraded(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return s.degraded(path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return s.degraded(path, fmt.Errorf("geoapify returned status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return s.degraded(path, err)
	}
	return nil
}

func (s *locationService) degraded(path string, cause error) error {
	// url.Error carries the full request URL, api key included
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		cause = fmt.Errorf("%s %s: %w", urlErr.Op, path, urlErr.Err)
	}
	s.logger.Warn("GEOCODING", "Geocoding provider unavailable", map[string]interface{}{
		"path":  path,
		"error": cause.Error(),
	})
	return apperror.Degraded(apperror.ReasonGeocodingUnavailable, "geocoding provider unavailable", cause)
}
