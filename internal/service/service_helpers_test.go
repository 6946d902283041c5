package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/events"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository/memory"
	"sharecycle-be/internal/repository/unitofwork"
	"sharecycle-be/pkg/database"
	pkgEvents "sharecycle-be/pkg/events"
	"sharecycle-be/pkg/geo"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeGeocoder resolves addresses from a fixed table. Unknown addresses are
// treated as "no match"; err simulates a provider outage.
type fakeGeocoder struct {
	mu     sync.Mutex
	points map[string]geo.Point
	err    error
	calls  int
}

func (g *fakeGeocoder) ForwardGeocode(_ context.Context, address string) (*geo.Point, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	if p, ok := g.points[address]; ok {
		return &p, nil
	}
	return nil, nil
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, lat, lon float64) (*dto.ReverseGeocodeResult, error) {
	return nil, nil
}

type testEnv struct {
	db        *gorm.DB
	factory   unitofwork.RepositoryFactory
	recorder  *pkgEvents.Recorder
	geocoder  *fakeGeocoder
	donations IDonationService
	requests  IRequestService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedNotificationTypes(db))
	return db
}

// newTestEnv wires the services against a fresh database. The listing cache
// is left out unless a test passes one in.
func newTestEnv(t *testing.T, cache *memory.ListingCache, publisher IPublisherService) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := logger.NewNopLogger()
	factory := unitofwork.NewRepositoryFactory(db)
	recorder := &pkgEvents.Recorder{}
	eventPublisher := events.NewNatsPublisher(recorder, log)
	geocoder := &fakeGeocoder{points: map[string]geo.Point{}}

	return &testEnv{
		db:        db,
		factory:   factory,
		recorder:  recorder,
		geocoder:  geocoder,
		donations: NewDonationService(factory, geocoder, eventPublisher, publisher, cache, log),
		requests:  NewRequestService(factory, eventPublisher, publisher, cache, log),
	}
}

func donationInput(title string) *dto.CreateDonationRequest {
	return &dto.CreateDonationRequest{
		Title:         title,
		Description:   "Gently used and ready for a new home",
		Category:      "clothing",
		Quantity:      5,
		Condition:     "used_good",
		PickupAddress: "Rua Augusta, 100",
		PickupCity:    "São Paulo",
		PickupState:   "SP",
		PickupZipCode: "01305-000",
	}
}

func (e *testEnv) createDonation(t *testing.T, ownerId uuid.UUID, title string) *dto.DonationResponse {
	t.Helper()
	d, err := e.donations.Create(context.Background(), ownerId, donationInput(title))
	require.NoError(t, err)
	return d
}

func (e *testEnv) createRequest(t *testing.T, requesterId, donationId uuid.UUID, quantity int) *dto.DonationRequestResponse {
	t.Helper()
	r, err := e.requests.Create(context.Background(), requesterId, &dto.CreateRequestRequest{
		DonationId:        donationId,
		RequestedQuantity: &quantity,
	})
	require.NoError(t, err)
	return r
}

func (e *testEnv) donationStatus(t *testing.T, id uuid.UUID) string {
	t.Helper()
	var status string
	require.NoError(t, e.db.Table("donations").Select("status").Where("id = ?", id).Scan(&status).Error)
	return status
}

// backdate spaces out created_at so ordering assertions are deterministic.
func (e *testEnv) backdate(t *testing.T, id uuid.UUID, age time.Duration) {
	t.Helper()
	require.NoError(t, e.db.Exec("UPDATE donations SET created_at = ? WHERE id = ?", time.Now().Add(-age), id).Error)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }
