package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/events"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/pkg/serverutils"
	"sharecycle-be/internal/repository/unitofwork"
	"sharecycle-be/internal/service"
	"sharecycle-be/pkg/database"
	pkgEvents "sharecycle-be/pkg/events"
	"sharecycle-be/pkg/geo"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "controller-test-secret"

type stubGeocoder struct{}

func (stubGeocoder) ForwardGeocode(_ context.Context, address string) (*geo.Point, error) {
	if strings.HasPrefix(address, "Praça da Sé") {
		return &geo.Point{Latitude: -23.5503, Longitude: -46.6339}, nil
	}
	return nil, nil
}

func (stubGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (*dto.ReverseGeocodeResult, error) {
	return &dto.ReverseGeocodeResult{FormattedAddress: "Praça da Sé, São Paulo", City: "São Paulo", Latitude: lat, Longitude: lon}, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	log := logger.NewNopLogger()
	factory := unitofwork.NewRepositoryFactory(db)
	eventPublisher := events.NewNatsPublisher(&pkgEvents.Recorder{}, log)
	donations := service.NewDonationService(factory, stubGeocoder{}, eventPublisher, nil, nil, log)
	requests := service.NewRequestService(factory, eventPublisher, nil, nil, log)

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandlerMiddleware(log)})
	api := app.Group("/api")
	NewDonationController(donations, requests, testSecret).RegisterRoutes(api)
	NewRequestController(requests, testSecret).RegisterRoutes(api)
	NewLocationController(stubGeocoder{}).RegisterRoutes(api)
	return app
}

func tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type envelope struct {
	Success bool                   `json:"success"`
	Code    interface{}            `json:"code"`
	Reason  string                 `json:"reason"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data"`
	Details map[string]interface{} `json:"details"`
}

func call(t *testing.T, app *fiber.App, method, path string, user *uuid.UUID, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, *user))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func createPayload() map[string]interface{} {
	return map[string]interface{}{
		"title":           "Winter coats",
		"description":     "Three warm coats, barely used",
		"category":        "clothing",
		"quantity":        3,
		"condition":       "used_good",
		"pickup_address":  "Praça da Sé",
		"pickup_city":     "São Paulo",
		"pickup_state":    "SP",
		"pickup_zip_code": "01001-000",
	}
}

func TestDonationRequestFlowOverHTTP(t *testing.T) {
	app := newTestApp(t)
	owner, requester := uuid.New(), uuid.New()

	status, res := call(t, app, http.MethodPost, "/api/donations", &owner, createPayload())
	require.Equal(t, http.StatusCreated, status)
	var donation dto.DonationResponse
	require.NoError(t, json.Unmarshal(res.Data, &donation))
	assert.Equal(t, "available", donation.Status)

	status, res = call(t, app, http.MethodPost, "/api/requests", &requester, map[string]interface{}{
		"donation_id":        donation.Id,
		"requested_quantity": 2,
	})
	require.Equal(t, http.StatusCreated, status)
	var request dto.DonationRequestResponse
	require.NoError(t, json.Unmarshal(res.Data, &request))

	status, _ = call(t, app, http.MethodPost, "/api/requests/"+request.Id.String()+"/approve", &owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, res = call(t, app, http.MethodGet, "/api/donations/"+donation.Id.String(), nil, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(res.Data, &donation))
	assert.Equal(t, "reserved", donation.Status)

	status, res = call(t, app, http.MethodPost, "/api/requests", &owner, map[string]interface{}{"donation_id": donation.Id})
	assert.Equal(t, http.StatusForbidden, status)
	assert.False(t, res.Success)
	assert.Equal(t, "CANNOT_REQUEST_OWN_DONATION", res.Reason)

	status, res = call(t, app, http.MethodPost, "/api/requests", &uuid.UUID{1}, map[string]interface{}{"donation_id": donation.Id})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "DONATION_UNAVAILABLE", res.Reason)

	status, res = call(t, app, http.MethodGet, "/api/requests/received?status=approved", &owner, nil)
	require.Equal(t, http.StatusOK, status)
	var received []dto.DonationRequestResponse
	require.NoError(t, json.Unmarshal(res.Data, &received))
	assert.Len(t, received, 1)
}

func TestHTTPErrors(t *testing.T) {
	app := newTestApp(t)
	user := uuid.New()

	status, _ := call(t, app, http.MethodPost, "/api/donations", nil, createPayload())
	assert.Equal(t, http.StatusUnauthorized, status)

	bad := createPayload()
	bad["pickup_zip_code"] = "12345"
	bad["quantity"] = 0
	status, res := call(t, app, http.MethodPost, "/api/donations", &user, bad)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_PAYLOAD", res.Reason)
	fields, ok := res.Details["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "pickup_zip_code")
	assert.Contains(t, fields, "quantity")

	status, res = call(t, app, http.MethodGet, "/api/donations/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, res = call(t, app, http.MethodGet, "/api/donations/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "DONATION_NOT_FOUND", res.Reason)

	status, res = call(t, app, http.MethodGet, "/api/donations?orderBy=distance", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_REFERENCE_POINT", res.Reason)

	status, _ = call(t, app, http.MethodGet, "/api/donations?orderBy=price", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	padded := createPayload()
	padded["title"] = "   ab   "
	status, res = call(t, app, http.MethodPost, "/api/donations", &user, padded)
	assert.Equal(t, http.StatusBadRequest, status)
	fields, ok = res.Details["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, fields, "title")

	padded["title"] = "  Warm blankets  "
	status, res = call(t, app, http.MethodPost, "/api/donations", &user, padded)
	require.Equal(t, http.StatusCreated, status)
	var created dto.DonationResponse
	require.NoError(t, json.Unmarshal(res.Data, &created))
	assert.Equal(t, "Warm blankets", created.Title)

	status, _ = call(t, app, http.MethodGet, "/api/donations?orderBy=distance&latitude=-23.5&longitude=-46.6&page=2305843009213693953", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListingOverHTTP(t *testing.T) {
	app := newTestApp(t)
	owner := uuid.New()

	status, _ := call(t, app, http.MethodPost, "/api/donations", &owner, createPayload())
	require.Equal(t, http.StatusCreated, status)

	status, res := call(t, app, http.MethodGet, "/api/donations?orderBy=distance&latitude=-23.56&longitude=-46.63", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var page dto.DonationListResponse
	require.NoError(t, json.Unmarshal(res.Data, &page))
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].DistanceKm)
	assert.Equal(t, 12, page.PageSize)
	assert.False(t, page.HasNext)

	status, res = call(t, app, http.MethodGet, "/api/donations/mine", &owner, nil)
	require.Equal(t, http.StatusOK, status)
	var mine []dto.DonationResponse
	require.NoError(t, json.Unmarshal(res.Data, &mine))
	assert.Len(t, mine, 1)

	status, res = call(t, app, http.MethodGet, "/api/donations/mine?status=reserved", &owner, nil)
	require.Equal(t, http.StatusOK, status)
	mine = nil
	require.NoError(t, json.Unmarshal(res.Data, &mine))
	assert.Empty(t, mine)

	status, _ = call(t, app, http.MethodGet, "/api/donations/mine?status=lost", &owner, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLocationOverHTTP(t *testing.T) {
	app := newTestApp(t)

	status, res := call(t, app, http.MethodGet, "/api/location/geocode?address=Pra%C3%A7a%20da%20S%C3%A9", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var point dto.GeocodeResponse
	require.NoError(t, json.Unmarshal(res.Data, &point))
	assert.InDelta(t, -23.5503, point.Latitude, 1e-9)

	status, res = call(t, app, http.MethodGet, "/api/location/geocode?address=Nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "ADDRESS_NOT_FOUND", res.Reason)

	status, _ = call(t, app, http.MethodGet, "/api/location/reverse?lat=abc&lon=1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, res = call(t, app, http.MethodGet, "/api/location/reverse?lat=-23.55&lon=-46.63", nil, nil)
	require.Equal(t, http.StatusOK, status)
	var addr dto.ReverseGeocodeResult
	require.NoError(t, json.Unmarshal(res.Data, &addr))
	assert.Equal(t, "São Paulo", addr.City)
}
