package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/events"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository/memory"
	"sharecycle-be/internal/repository/scope"
	"sharecycle-be/internal/repository/specification"
	"sharecycle-be/internal/repository/unitofwork"
	"sharecycle-be/pkg/geo"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListingPageSize is the fixed page size of the public listing.
const ListingPageSize = 12

// MaxListingPage bounds the page parameter of the public listing.
const MaxListingPage = 100000

const cancelledByOwnerReason = "donation cancelled by owner"

type IDonationService interface {
	Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateDonationRequest) (*dto.DonationResponse, error)
	Update(ctx context.Context, ownerId uuid.UUID, req *dto.UpdateDonationRequest) (*dto.DonationResponse, error)
	Deactivate(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error
	Cancel(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*dto.DonationResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.DonationResponse, error)
	ListMine(ctx context.Context, ownerId uuid.UUID, status string) ([]*dto.DonationResponse, error)
	List(ctx context.Context, query *dto.ListDonationsQuery) (*dto.DonationListResponse, error)
}

type donationService struct {
	uowFactory  unitofwork.RepositoryFactory
	geocoder    IGeocodingService
	events      events.Publisher
	cache       *memory.ListingCache
	invalidator listingInvalidator
	logger      logger.ILogger
}

func NewDonationService(
	uowFactory unitofwork.RepositoryFactory,
	geocoder IGeocodingService,
	eventPublisher events.Publisher,
	publisherService IPublisherService,
	cache *memory.ListingCache,
	log logger.ILogger,
) IDonationService {
	return &donationService{
		uowFactory:  uowFactory,
		geocoder:    geocoder,
		events:      eventPublisher,
		cache:       cache,
		invalidator: listingInvalidator{cache: cache, publisher: publisherService, logger: log},
		logger:      log,
	}
}

func (s *donationService) Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateDonationRequest) (*dto.DonationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	images := req.Images
	if images == nil {
		images = []string{}
	}

	donation := entity.Donation{
		Id:                 uuid.New(),
		OwnerId:            ownerId,
		Title:              req.Title,
		Description:        req.Description,
		Category:           entity.DonationCategory(req.Category),
		Quantity:           req.Quantity,
		Condition:          entity.DonationCondition(req.Condition),
		Images:             images,
		PickupAddress:      req.PickupAddress,
		PickupCity:         req.PickupCity,
		PickupState:        req.PickupState,
		PickupZipCode:      req.PickupZipCode,
		PickupInstructions: req.PickupInstructions,
		ExpiryDate:         req.ExpiryDate,
		Status:             entity.DonationStatusAvailable,
		IsActive:           true,
		CreatedAt:          time.Now(),
	}
	s.applyCoordinates(ctx, &donation)

	if err := uow.DonationRepository().Create(ctx, &donation); err != nil {
		return nil, fmt.Errorf("create donation: %w", err)
	}

	s.logger.Info("DONATION", "Donation created", map[string]interface{}{
		"donation_id": donation.Id,
		"owner_id":    ownerId,
		"geocoded":    donation.HasCoordinates(),
	})
	s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: donation.Id, Reason: "created"})

	return toDonationResponse(&donation), nil
}

func (s *donationService) Update(ctx context.Context, ownerId uuid.UUID, req *dto.UpdateDonationRequest) (*dto.DonationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	current, err := s.findOwned(ctx, uow, ownerId, req.Id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if req.Title != nil {
		updated.Title = *req.Title
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Category != nil {
		updated.Category = entity.DonationCategory(*req.Category)
	}
	if req.Quantity != nil {
		updated.Quantity = *req.Quantity
	}
	if req.Condition != nil {
		updated.Condition = entity.DonationCondition(*req.Condition)
	}
	if req.Images != nil {
		updated.Images = *req.Images
	}
	if req.PickupAddress != nil {
		updated.PickupAddress = *req.PickupAddress
	}
	if req.PickupCity != nil {
		updated.PickupCity = *req.PickupCity
	}
	if req.PickupState != nil {
		updated.PickupState = *req.PickupState
	}
	if req.PickupZipCode != nil {
		updated.PickupZipCode = *req.PickupZipCode
	}
	if req.PickupInstructions != nil {
		updated.PickupInstructions = req.PickupInstructions
	}
	if req.ExpiryDate != nil {
		updated.ExpiryDate = req.ExpiryDate
	}

	if updated.AddressDiffers(current) {
		updated.PickupLatitude, updated.PickupLongitude = nil, nil
		s.applyCoordinates(ctx, &updated)
	}

	if err := uow.DonationRepository().Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("update donation: %w", err)
	}

	s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: updated.Id, Reason: "updated"})
	return toDonationResponse(&updated), nil
}

// Deactivate soft-deletes the donation. Repeating it is a no-op.
func (s *donationService) Deactivate(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	donation, err := uow.DonationRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return fmt.Errorf("find donation: %w", err)
	}
	if donation == nil {
		return apperror.NotFound(apperror.ReasonDonationNotFound, "donation not found")
	}
	if !donation.IsOwnedBy(ownerId) {
		return apperror.Forbidden(apperror.ReasonNotDonationOwner, "only the owner can remove this donation")
	}
	if !donation.IsActive {
		return nil
	}

	if _, err := uow.DonationRepository().Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate donation: %w", err)
	}

	s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: id, Reason: "deactivated"})
	return nil
}

// Cancel withdraws the donation and rejects every open request against it.
func (s *donationService) Cancel(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*dto.DonationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	donation, err := s.findOwned(ctx, uow, ownerId, id)
	if err != nil {
		return nil, err
	}
	if !donation.CanBeCancelledByOwner() {
		return nil, unavailableConflict(donation)
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	ok, err := uow.DonationRepository().UpdateStatus(ctx, id,
		[]entity.DonationStatus{entity.DonationStatusAvailable, entity.DonationStatusReserved},
		entity.DonationStatusCancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel donation: %w", err)
	}
	if !ok {
		return nil, apperror.Conflict(apperror.ReasonConcurrentModification, "donation changed while cancelling")
	}

	rejected, err := uow.DonationRequestRepository().RejectOpenForDonation(ctx, id, cancelledByOwnerReason)
	if err != nil {
		return nil, fmt.Errorf("reject open requests: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	donation.Status = entity.DonationStatusCancelled
	for _, req := range rejected {
		s.events.PublishDonationCancelled(ctx, req, donation)
	}
	s.logger.Info("DONATION", "Donation cancelled by owner", map[string]interface{}{
		"donation_id":       id,
		"rejected_requests": len(rejected),
	})
	s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: id, Reason: "cancelled"})

	return toDonationResponse(donation), nil
}

func (s *donationService) Show(ctx context.Context, id uuid.UUID) (*dto.DonationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	donation, err := uow.DonationRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ActiveDonations{},
	)
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	if donation == nil {
		return nil, apperror.NotFound(apperror.ReasonDonationNotFound, "donation not found")
	}
	return toDonationResponse(donation), nil
}

// ListMine returns the owner's active donations, optionally narrowed to one status.
func (s *donationService) ListMine(ctx context.Context, ownerId uuid.UUID, status string) ([]*dto.DonationResponse, error) {
	specs := []specification.Specification{
		specification.OwnedBy{OwnerID: ownerId},
		specification.ActiveDonations{},
	}
	if status != "" {
		if !entity.IsValidDonationStatus(status) {
			return nil, apperror.Validation(apperror.ReasonInvalidPayload, "unknown donation status").WithDetail("status", status)
		}
		specs = append(specs, specification.ByDonationStatus{Status: entity.DonationStatus(status)})
	}
	specs = append(specs, specification.Scoped{Scope: scope.OrderByCreatedDesc})

	uow := s.uowFactory.NewUnitOfWork(ctx)
	donations, err := uow.DonationRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("list own donations: %w", err)
	}

	result := make([]*dto.DonationResponse, 0, len(donations))
	for _, d := range donations {
		result = append(result, toDonationResponse(d))
	}
	return result, nil
}

// List serves the public catalogue: active, available donations only.
func (s *donationService) List(ctx context.Context, query *dto.ListDonationsQuery) (*dto.DonationListResponse, error) {
	q := normalizeListQuery(query)

	var ref *geo.Point
	if q.Latitude != nil && q.Longitude != nil {
		ref = &geo.Point{Latitude: *q.Latitude, Longitude: *q.Longitude}
	}
	if q.Page > MaxListingPage {
		return nil, apperror.Validation(apperror.ReasonInvalidPage, fmt.Sprintf("page must be at most %d", MaxListingPage))
	}
	if q.OrderBy == "distance" && ref == nil {
		return nil, apperror.Validation(apperror.ReasonMissingReferencePoint, "latitude and longitude are required to order by distance")
	}

	key := listingCacheKey(q)
	var gen uint64
	if s.cache != nil {
		if page, ok := s.cache.Get(key); ok {
			return page, nil
		}
		gen = s.cache.Generation()
	}

	var (
		page *dto.DonationListResponse
		err  error
	)
	if q.OrderBy == "distance" {
		page, err = s.listByDistance(ctx, q, *ref)
	} else {
		page, err = s.listBySQL(ctx, q, ref)
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Save(key, gen, page)
	}
	return page, nil
}

func (s *donationService) listBySQL(ctx context.Context, q dto.ListDonationsQuery, ref *geo.Point) (*dto.DonationListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	filters := listingFilters(q)

	total, err := uow.DonationRepository().Count(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("count donations: %w", err)
	}

	offset := (q.Page - 1) * ListingPageSize
	var donations []*entity.Donation
	if int64(q.Page-1) < int64(geo.PageCount(int(total), ListingPageSize)) {
		specs := append(filters,
			specification.Scoped{Scope: orderScope(q.OrderBy)},
			specification.Pagination{Limit: ListingPageSize, Offset: offset},
		)
		donations, err = uow.DonationRepository().FindAll(ctx, specs...)
		if err != nil {
			return nil, fmt.Errorf("list donations: %w", err)
		}
	}

	items := make([]*dto.DonationResponse, 0, len(donations))
	for _, d := range donations {
		res := toDonationResponse(d)
		if ref != nil && d.HasCoordinates() {
			withDistance(res, geo.DistanceKm(*ref, geo.Point{Latitude: *d.PickupLatitude, Longitude: *d.PickupLongitude}))
		}
		items = append(items, res)
	}

	return &dto.DonationListResponse{
		Items:    items,
		Total:    total,
		Page:     q.Page,
		PageSize: ListingPageSize,
		HasNext:  int64(offset+len(items)) < total,
	}, nil
}

// listByDistance ranks the whole filtered set before paginating so that page
// boundaries follow distance, not insertion order.
func (s *donationService) listByDistance(ctx context.Context, q dto.ListDonationsQuery, ref geo.Point) (*dto.DonationListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := append(listingFilters(q), specification.Scoped{Scope: scope.OrderByCreatedDesc})

	donations, err := uow.DonationRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}

	ranked := geo.RankByDistance(donations, ref, func(d *entity.Donation) *geo.Point {
		return geo.NewPoint(d.PickupLatitude, d.PickupLongitude)
	})
	pageItems, hasNext := geo.Paginate(ranked, q.Page, ListingPageSize)

	items := make([]*dto.DonationResponse, 0, len(pageItems))
	for _, r := range pageItems {
		res := toDonationResponse(r.Item)
		if r.Known() {
			withDistance(res, r.DistanceKm)
		}
		items = append(items, res)
	}

	return &dto.DonationListResponse{
		Items:    items,
		Total:    int64(len(ranked)),
		Page:     q.Page,
		PageSize: ListingPageSize,
		HasNext:  hasNext,
	}, nil
}

func (s *donationService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, ownerId, id uuid.UUID) (*entity.Donation, error) {
	donation, err := uow.DonationRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ActiveDonations{},
	)
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	if donation == nil {
		return nil, apperror.NotFound(apperror.ReasonDonationNotFound, "donation not found")
	}
	if !donation.IsOwnedBy(ownerId) {
		return nil, apperror.Forbidden(apperror.ReasonNotDonationOwner, "only the owner can change this donation")
	}
	return donation, nil
}

// applyCoordinates geocodes the pickup address. Failure leaves the
// coordinates empty; the donation is still saved.
func (s *donationService) applyCoordinates(ctx context.Context, d *entity.Donation) {
	if s.geocoder == nil {
		return
	}
	point, err := s.geocoder.ForwardGeocode(ctx, d.PickupAddressLine())
	if err != nil {
		s.logger.Warn("DONATION", "Geocoding failed, saving without coordinates", map[string]interface{}{
			"code":  string(apperror.CodeExternalServiceDegraded),
			"error": err.Error(),
		})
		return
	}
	if point == nil {
		return
	}
	lat, lon := point.Latitude, point.Longitude
	d.PickupLatitude, d.PickupLongitude = &lat, &lon
}

func normalizeListQuery(query *dto.ListDonationsQuery) dto.ListDonationsQuery {
	var q dto.ListDonationsQuery
	if query != nil {
		q = *query
	}
	q.Search = strings.TrimSpace(q.Search)
	q.City = strings.TrimSpace(q.City)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.OrderBy == "" {
		q.OrderBy = "newest"
	}
	return q
}

func listingCacheKey(q dto.ListDonationsQuery) string {
	coord := func(v *float64) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%.5f", *v)
	}
	return strings.Join([]string{
		strings.ToLower(q.Search),
		q.Category,
		strings.ToLower(q.City),
		q.OrderBy,
		fmt.Sprint(q.Page),
		coord(q.Latitude),
		coord(q.Longitude),
	}, "|")
}

func listingFilters(q dto.ListDonationsQuery) []specification.Specification {
	specs := []specification.Specification{
		specification.Scoped{Scope: scope.AvailableForListing},
	}
	if q.Search != "" {
		specs = append(specs, specification.DonationSearchQuery{Query: q.Search})
	}
	if q.Category != "" {
		specs = append(specs, specification.ByCategory{Category: entity.DonationCategory(q.Category)})
	}
	if q.City != "" {
		specs = append(specs, specification.CityContains{City: q.City})
	}
	return specs
}

func orderScope(orderBy string) func(*gorm.DB) *gorm.DB {
	switch orderBy {
	case "oldest":
		return scope.OrderByCreatedAsc
	case "title":
		return scope.OrderByTitle
	case "category":
		return scope.OrderByCategoryThenNewest
	default:
		return scope.OrderByCreatedDesc
	}
}

func unavailableConflict(d *entity.Donation) error {
	switch d.Status {
	case entity.DonationStatusDelivered:
		return apperror.Conflict(apperror.ReasonDonationDelivered, "donation was already delivered")
	case entity.DonationStatusCancelled:
		return apperror.Conflict(apperror.ReasonDonationCancelled, "donation was cancelled")
	default:
		return apperror.Conflict(apperror.ReasonDonationUnavailable, "donation is not available")
	}
}

func withDistance(res *dto.DonationResponse, km float64) {
	label := geo.FormatDistance(km)
	res.DistanceKm = &km
	res.DistanceLabel = &label
}

func toDonationResponse(d *entity.Donation) *dto.DonationResponse {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return &dto.DonationResponse{
		Id:                 d.Id,
		OwnerId:            d.OwnerId,
		Title:              d.Title,
		Description:        d.Description,
		Category:           string(d.Category),
		Quantity:           d.Quantity,
		Condition:          string(d.Condition),
		Images:             images,
		PickupAddress:      d.PickupAddress,
		PickupCity:         d.PickupCity,
		PickupState:        d.PickupState,
		PickupZipCode:      d.PickupZipCode,
		PickupInstructions: d.PickupInstructions,
		PickupLatitude:     d.PickupLatitude,
		PickupLongitude:    d.PickupLongitude,
		ExpiryDate:         d.ExpiryDate,
		Status:             string(d.Status),
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}
