package service

import (
	"context"
	"fmt"
	"time"

	"sharecycle-be/internal/dto"
	"sharecycle-be/internal/entity"
	"sharecycle-be/internal/events"
	"sharecycle-be/internal/pkg/apperror"
	"sharecycle-be/internal/pkg/logger"
	"sharecycle-be/internal/repository/memory"
	"sharecycle-be/internal/repository/specification"
	"sharecycle-be/internal/repository/unitofwork"
	"sharecycle-be/pkg/database"

	"github.com/google/uuid"
)

// IRequestService drives the request state machine and keeps the donation
// reserved exactly while one of its requests is approved.
type IRequestService interface {
	Create(ctx context.Context, requesterId uuid.UUID, req *dto.CreateRequestRequest) (*dto.DonationRequestResponse, error)
	Approve(ctx context.Context, approverId uuid.UUID, id uuid.UUID, req *dto.ApproveRequestRequest) (*dto.DonationRequestResponse, error)
	Reject(ctx context.Context, approverId uuid.UUID, id uuid.UUID, req *dto.RejectRequestRequest) (*dto.DonationRequestResponse, error)
	Cancel(ctx context.Context, requesterId uuid.UUID, id uuid.UUID) (*dto.DonationRequestResponse, error)
	Complete(ctx context.Context, donorId uuid.UUID, id uuid.UUID) (*dto.DonationRequestResponse, error)
	SchedulePickup(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.SchedulePickupRequest) (*dto.DonationRequestResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DonationRequestResponse, error)
	ListForDonation(ctx context.Context, ownerId uuid.UUID, donationId uuid.UUID) ([]*dto.DonationRequestResponse, error)
	ListSent(ctx context.Context, requesterId uuid.UUID, status string) ([]*dto.DonationRequestResponse, error)
	ListReceived(ctx context.Context, donorId uuid.UUID, status string) ([]*dto.DonationRequestResponse, error)
}

type requestService struct {
	uowFactory  unitofwork.RepositoryFactory
	events      events.Publisher
	invalidator listingInvalidator
	logger      logger.ILogger
}

func NewRequestService(
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher events.Publisher,
	publisherService IPublisherService,
	cache *memory.ListingCache,
	log logger.ILogger,
) IRequestService {
	return &requestService{
		uowFactory:  uowFactory,
		events:      eventPublisher,
		invalidator: listingInvalidator{cache: cache, publisher: publisherService, logger: log},
		logger:      log,
	}
}

func (s *requestService) Create(ctx context.Context, requesterId uuid.UUID, req *dto.CreateRequestRequest) (*dto.DonationRequestResponse, error) {
	quantity := 1
	if req.RequestedQuantity != nil {
		quantity = *req.RequestedQuantity
	}
	if quantity < 1 {
		return nil, apperror.Validation(apperror.ReasonInvalidQuantity, "requested quantity must be at least 1")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	donation, err := uow.DonationRepository().FindOne(ctx,
		specification.ByID{ID: req.DonationId},
		specification.ActiveDonations{},
	)
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	if donation == nil {
		return nil, apperror.NotFound(apperror.ReasonDonationNotFound, "donation not found")
	}
	// Checked before availability so a self-request never reports a status conflict.
	if donation.IsOwnedBy(requesterId) {
		return nil, apperror.Forbidden(apperror.ReasonOwnDonation, "cannot request own donation")
	}
	if !donation.AcceptsRequests() {
		return nil, unavailableConflict(donation)
	}
	if quantity > donation.Quantity {
		return nil, apperror.Validation(apperror.ReasonInvalidQuantity, "requested quantity exceeds the donated quantity").
			WithDetail("available_quantity", donation.Quantity)
	}

	existing, err := uow.DonationRequestRepository().FindOne(ctx,
		specification.ByDonationID{DonationID: donation.Id},
		specification.ByRequester{RequesterID: requesterId},
		specification.RequestStatusIn(entity.RequestStatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("find pending request: %w", err)
	}
	if existing != nil {
		return nil, duplicatePending(existing.Id)
	}

	request := entity.DonationRequest{
		Id:                uuid.New(),
		DonationId:        donation.Id,
		DonorId:           donation.OwnerId,
		RequesterId:       requesterId,
		Message:           req.Message,
		RequestedQuantity: quantity,
		Status:            entity.RequestStatusPending,
		CreatedAt:         time.Now(),
	}
	if err := uow.DonationRequestRepository().Create(ctx, &request); err != nil {
		// lost the race against a concurrent identical request
		if database.IsUniqueViolation(err) {
			return nil, duplicatePending(uuid.Nil)
		}
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.logger.Info("REQUEST", "Donation request created", map[string]interface{}{
		"request_id":   request.Id,
		"donation_id":  donation.Id,
		"requester_id": requesterId,
	})
	s.events.PublishRequestCreated(ctx, &request, donation)

	return toRequestResponse(&request), nil
}

func (s *requestService) Approve(ctx context.Context, approverId uuid.UUID, id uuid.UUID, req *dto.ApproveRequestRequest) (*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := s.findRequest(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if request.DonorId != approverId {
		return nil, apperror.Forbidden(apperror.ReasonNotDonationOwner, "only the donor can approve this request")
	}
	if !request.CanApprove() {
		return nil, invalidTransition(request.Status, entity.RequestStatusApproved)
	}

	quantity := request.RequestedQuantity
	if req != nil && req.ApprovedQuantity != nil {
		quantity = *req.ApprovedQuantity
	}
	if quantity < 1 || quantity > request.RequestedQuantity {
		return nil, apperror.Validation(apperror.ReasonInvalidQuantity, "approved quantity must be between 1 and the requested quantity").
			WithDetail("requested_quantity", request.RequestedQuantity)
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	ok, err := uow.DonationRequestRepository().TransitionStatus(ctx, id, entity.RequestTransition{
		From:             entity.RequestStatusPending,
		To:               entity.RequestStatusApproved,
		ApprovedQuantity: &quantity,
	})
	if err != nil {
		return nil, fmt.Errorf("approve request: %w", err)
	}
	if !ok {
		return nil, concurrentModification()
	}

	// Only one approval may hold the reservation.
	reserved, err := uow.DonationRepository().UpdateStatus(ctx, request.DonationId,
		[]entity.DonationStatus{entity.DonationStatusAvailable},
		entity.DonationStatusReserved,
	)
	if err != nil {
		return nil, fmt.Errorf("reserve donation: %w", err)
	}
	if !reserved {
		donation, err := uow.DonationRepository().FindOne(ctx, specification.ByID{ID: request.DonationId})
		if err != nil {
			return nil, fmt.Errorf("find donation: %w", err)
		}
		return nil, reservationConflict(donation)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	request.Status = entity.RequestStatusApproved
	request.ApprovedQuantity = &quantity

	s.logger.Info("REQUEST", "Donation request approved", map[string]interface{}{
		"request_id":        id,
		"donation_id":       request.DonationId,
		"approved_quantity": quantity,
	})
	s.publishWithDonation(ctx, uow, request, s.events.PublishRequestApproved)
	s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: request.DonationId, Reason: "reserved"})

	return toRequestResponse(request), nil
}

func (s *requestService) Reject(ctx context.Context, approverId uuid.UUID, id uuid.UUID, req *dto.RejectRequestRequest) (*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := s.findRequest(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if request.DonorId != approverId {
		return nil, apperror.Forbidden(apperror.ReasonNotDonationOwner, "only the donor can reject this request")
	}
	if !request.CanReject() {
		return nil, invalidTransition(request.Status, entity.RequestStatusRejected)
	}

	var reason *string
	if req != nil {
		reason = req.RejectionReason
	}

	released, err := s.closeRequest(ctx, uow, request, entity.RequestTransition{
		From:            request.Status,
		To:              entity.RequestStatusRejected,
		RejectionReason: reason,
	})
	if err != nil {
		return nil, err
	}

	request.Status = entity.RequestStatusRejected
	request.RejectionReason = reason

	s.logger.Info("REQUEST", "Donation request rejected", map[string]interface{}{
		"request_id":           id,
		"reservation_released": released,
	})
	s.publishWithDonation(ctx, uow, request, s.events.PublishRequestRejected)

	return toRequestResponse(request), nil
}

func (s *requestService) Cancel(ctx context.Context, requesterId uuid.UUID, id uuid.UUID) (*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := s.findRequest(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterId != requesterId {
		return nil, apperror.Forbidden(apperror.ReasonNotRequester, "only the requester can cancel this request")
	}
	if !request.CanCancel() {
		return nil, invalidTransition(request.Status, entity.RequestStatusCancelled)
	}

	released, err := s.closeRequest(ctx, uow, request, entity.RequestTransition{
		From: request.Status,
		To:   entity.RequestStatusCancelled,
	})
	if err != nil {
		return nil, err
	}

	request.Status = entity.RequestStatusCancelled

	s.logger.Info("REQUEST", "Donation request cancelled", map[string]interface{}{
		"request_id":           id,
		"reservation_released": released,
	})
	s.publishWithDonation(ctx, uow, request, s.events.PublishRequestCancelled)

	return toRequestResponse(request), nil
}

// Complete records the handover: the request and its donation become delivered.
func (s *requestService) Complete(ctx context.Context, donorId uuid.UUID, id uuid.UUID) (*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := s.findRequest(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if request.DonorId != donorId {
		return nil, apperror.Forbidden(apperror.ReasonNotDonationOwner, "only the donor can complete this request")
	}
	if !request.CanComplete() {
		return nil, invalidTransition(request.Status, entity.RequestStatusDelivered)
	}

	completedAt := time.Now()

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	ok, err := uow.DonationRequestRepository().TransitionStatus(ctx, id, entity.RequestTransition{
		From:              entity.RequestStatusApproved,
		To:                entity.RequestStatusDelivered,
		PickupCompletedAt: &completedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("complete request: %w", err)
	}
	if !ok {
		return nil, concurrentModification()
	}

	delivered, err := uow.DonationRepository().UpdateStatus(ctx, request.DonationId,
		[]entity.DonationStatus{entity.DonationStatusReserved},
		entity.DonationStatusDelivered,
	)
	if err != nil {
		return nil, fmt.Errorf("deliver donation: %w", err)
	}
	if !delivered {
		return nil, apperror.Conflict(apperror.ReasonDonationUnavailable, "donation is no longer reserved for this request")
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	request.Status = entity.RequestStatusDelivered
	request.PickupCompletedAt = &completedAt

	s.publishWithDonation(ctx, uow, request, s.events.PublishRequestCompleted)
	s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: request.DonationId, Reason: "delivered"})

	return toRequestResponse(request), nil
}

func (s *requestService) SchedulePickup(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.SchedulePickupRequest) (*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := s.findRequest(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if !request.IsParticipant(userId) {
		return nil, apperror.NotFound(apperror.ReasonRequestNotFound, "request not found")
	}
	if !request.CanSchedulePickup() {
		return nil, apperror.Conflict(apperror.ReasonInvalidTransition, "pickup can only be scheduled for approved requests").
			WithDetail("status", string(request.Status))
	}
	if req == nil || req.PickupAt.Before(time.Now()) {
		return nil, apperror.Validation(apperror.ReasonInvalidSchedule, "pickup time must be in the future")
	}

	ok, err := uow.DonationRequestRepository().SchedulePickup(ctx, id, req.PickupAt)
	if err != nil {
		return nil, fmt.Errorf("schedule pickup: %w", err)
	}
	if !ok {
		return nil, concurrentModification()
	}

	at := req.PickupAt
	request.PickupScheduledAt = &at

	recipient := request.RequesterId
	if userId == request.RequesterId {
		recipient = request.DonorId
	}
	s.events.PublishPickupScheduled(ctx, request, s.eventDonation(ctx, uow, request), recipient, userId)

	return toRequestResponse(request), nil
}

// Show is visible to the two participants only; anyone else gets NOT_FOUND.
func (s *requestService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	request, err := s.findRequest(ctx, uow, id)
	if err != nil {
		return nil, err
	}
	if !request.IsParticipant(userId) {
		return nil, apperror.NotFound(apperror.ReasonRequestNotFound, "request not found")
	}
	return toRequestResponse(request), nil
}

func (s *requestService) ListForDonation(ctx context.Context, ownerId uuid.UUID, donationId uuid.UUID) ([]*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	donation, err := uow.DonationRepository().FindOne(ctx,
		specification.ByID{ID: donationId},
		specification.ActiveDonations{},
	)
	if err != nil {
		return nil, fmt.Errorf("find donation: %w", err)
	}
	if donation == nil {
		return nil, apperror.NotFound(apperror.ReasonDonationNotFound, "donation not found")
	}
	if !donation.IsOwnedBy(ownerId) {
		return nil, apperror.Forbidden(apperror.ReasonNotDonationOwner, "only the owner can see requests for this donation")
	}

	return s.list(ctx, uow, specification.ByDonationID{DonationID: donationId})
}

func (s *requestService) ListSent(ctx context.Context, requesterId uuid.UUID, status string) ([]*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs, err := withStatusFilter(status, specification.ByRequester{RequesterID: requesterId})
	if err != nil {
		return nil, err
	}
	return s.list(ctx, uow, specs...)
}

func (s *requestService) ListReceived(ctx context.Context, donorId uuid.UUID, status string) ([]*dto.DonationRequestResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs, err := withStatusFilter(status, specification.ByDonor{DonorID: donorId})
	if err != nil {
		return nil, err
	}
	return s.list(ctx, uow, specs...)
}

func (s *requestService) list(ctx context.Context, uow unitofwork.UnitOfWork, specs ...specification.Specification) ([]*dto.DonationRequestResponse, error) {
	specs = append(specs, specification.OrderBy{Field: "created_at", Desc: true})
	requests, err := uow.DonationRequestRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	result := make([]*dto.DonationRequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toRequestResponse(r))
	}
	return result, nil
}

// closeRequest moves the request to a closed status and, when it held the
// reservation, releases the donation in the same transaction.
func (s *requestService) closeRequest(ctx context.Context, uow unitofwork.UnitOfWork, request *entity.DonationRequest, t entity.RequestTransition) (bool, error) {
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	ok, err := uow.DonationRequestRepository().TransitionStatus(ctx, request.Id, t)
	if err != nil {
		return false, fmt.Errorf("transition request: %w", err)
	}
	if !ok {
		return false, concurrentModification()
	}

	released := false
	if request.HoldsReservation() {
		released, err = uow.DonationRepository().ReleaseReservation(ctx, request.DonationId)
		if err != nil {
			return false, fmt.Errorf("release reservation: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return false, err
	}

	if released {
		s.invalidator.invalidate(ctx, dto.ListingInvalidationMessage{DonationId: request.DonationId, Reason: "released"})
	}
	return released, nil
}

func (s *requestService) findRequest(ctx context.Context, uow unitofwork.UnitOfWork, id uuid.UUID) (*entity.DonationRequest, error) {
	request, err := uow.DonationRequestRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	if request == nil {
		return nil, apperror.NotFound(apperror.ReasonRequestNotFound, "request not found")
	}
	return request, nil
}

func (s *requestService) publishWithDonation(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	request *entity.DonationRequest,
	publish func(context.Context, *entity.DonationRequest, *entity.Donation),
) {
	publish(ctx, request, s.eventDonation(ctx, uow, request))
}

// eventDonation loads the donation for an event payload. Lookup failures only
// cost the title in the notification.
func (s *requestService) eventDonation(ctx context.Context, uow unitofwork.UnitOfWork, request *entity.DonationRequest) *entity.Donation {
	donation, err := uow.DonationRepository().FindOne(ctx, specification.ByID{ID: request.DonationId})
	if err != nil {
		s.logger.Warn("REQUEST", "Could not load donation for event", map[string]interface{}{
			"error":       err.Error(),
			"donation_id": request.DonationId,
			"request_id":  request.Id,
		})
		return nil
	}
	return donation
}

func withStatusFilter(status string, base specification.Specification) ([]specification.Specification, error) {
	specs := []specification.Specification{base}
	if status == "" {
		return specs, nil
	}
	if !entity.IsValidRequestStatus(status) {
		return nil, apperror.Validation(apperror.ReasonInvalidPayload, "unknown request status").WithDetail("status", status)
	}
	return append(specs, specification.RequestStatusIn(entity.RequestStatus(status))), nil
}

func reservationConflict(donation *entity.Donation) error {
	if donation == nil || !donation.IsActive {
		return apperror.Conflict(apperror.ReasonDonationUnavailable, "donation is no longer available")
	}
	if donation.Status == entity.DonationStatusReserved {
		return apperror.Conflict(apperror.ReasonDonationReserved, "donation is already reserved by another request")
	}
	return unavailableConflict(donation)
}

func duplicatePending(existingId uuid.UUID) error {
	err := apperror.Conflict(apperror.ReasonDuplicatePending, "a pending request for this donation already exists")
	if existingId != uuid.Nil {
		err.WithDetail("request_id", existingId)
	}
	return err
}

func invalidTransition(from, to entity.RequestStatus) error {
	return apperror.Conflict(apperror.ReasonInvalidTransition, fmt.Sprintf("cannot move request from %s to %s", from, to)).
		WithDetail("status", string(from))
}

func concurrentModification() error {
	return apperror.Conflict(apperror.ReasonConcurrentModification, "request changed concurrently, reload and retry")
}

func toRequestResponse(r *entity.DonationRequest) *dto.DonationRequestResponse {
	return &dto.DonationRequestResponse{
		Id:                r.Id,
		DonationId:        r.DonationId,
		DonorId:           r.DonorId,
		RequesterId:       r.RequesterId,
		Message:           r.Message,
		RequestedQuantity: r.RequestedQuantity,
		ApprovedQuantity:  r.ApprovedQuantity,
		RejectionReason:   r.RejectionReason,
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		PickupScheduledAt: r.PickupScheduledAt,
		PickupCompletedAt: r.PickupCompletedAt,
	}
}
