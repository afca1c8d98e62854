package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/medflow/medflow-attendance/internal/attendance/domain"
	"github.com/medflow/medflow-attendance/pkg/errors"
	"github.com/medflow/medflow-attendance/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// AdjustmentService runs the adjustment request workflow. Transitions of a
// request are serialised in-process by request ID and guarded in the store
// by a compare-and-swap on the pending status, so at most one review is
// ever committed per request.
type AdjustmentService struct {
	tx       Transactor
	events   ClockEventStore
	requests AdjustmentRequestStore
	notifier NotificationDispatcher
	clock    Clock
	locks    *keyedMutex
	logger   *logger.Logger
}

// NewAdjustmentService creates a new adjustment service
func NewAdjustmentService(
	tx Transactor,
	events ClockEventStore,
	requests AdjustmentRequestStore,
	notifier NotificationDispatcher,
	clock Clock,
	log *logger.Logger,
) *AdjustmentService {
	if clock == nil {
		clock = SystemClock
	}
	return &AdjustmentService{
		tx:       tx,
		events:   events,
		requests: requests,
		notifier: notifier,
		clock:    clock,
		locks:    newKeyedMutex(),
		logger:   log,
	}
}

// Submit records an employee's correction of a time entry and notifies HR
func (s *AdjustmentService) Submit(ctx context.Context, in domain.SubmitInput) (*domain.AdjustmentRequest, error) {
	if in.TimeEntryID == "" {
		return nil, errors.Validation(map[string]string{"time_entry_id": "this field is required"})
	}

	event, err := s.events.GetEvent(ctx, in.TimeEntryID)
	if err != nil {
		return nil, errors.EnsureDependency("clock event store", err)
	}

	req, err := domain.NewAdjustmentRequest(uuid.New().String(), *event, in, s.clock.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, errors.EnsureDependency("adjustment request store", err)
	}

	s.logger.Info().
		Str("request_id", req.ID).
		Str("time_entry_id", req.TimeEntryID).
		Str("employee_id", req.EmployeeID).
		Str("reason", req.Reason).
		Msg("adjustment request submitted")

	s.notify(ctx, domain.NotifyRequestCreated, req)
	return req, nil
}

// Approve applies the requested times to the clock event and marks the
// request approved, atomically. A request that is no longer pending yields
// InvalidStateTransition and changes nothing.
func (s *AdjustmentService) Approve(ctx context.Context, id, reviewedBy string, reviewNotes *string) (*domain.AdjustmentRequest, error) {
	if err := validateReviewer(reviewedBy); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var approved *domain.AdjustmentRequest
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, id)
		if err != nil {
			return errors.EnsureDependency("adjustment request store", err)
		}
		if err := s.checkReviewer(req, reviewedBy); err != nil {
			return err
		}
		if err := req.Review(domain.AdjustmentApproved, reviewedBy, reviewNotes, s.clock.Now().UTC()); err != nil {
			return err
		}

		adjusted := domain.ClockEventAdjusted
		update := domain.ClockEventUpdate{
			ClockIn:             &req.RequestedClockIn,
			ClockOut:            req.RequestedClockOut,
			Status:              &adjusted,
			AdjustmentRequestID: &req.ID,
		}
		if err := s.events.UpdateEvent(ctx, req.TimeEntryID, update); err != nil {
			return errors.EnsureDependency("clock event store", err)
		}

		if err := s.requests.UpdateStatus(ctx, req); err != nil {
			return errors.EnsureDependency("adjustment request store", err)
		}

		approved = req
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", id).Str("reviewer_id", reviewedBy).Msg("adjustment approval failed")
		return nil, err
	}

	s.logger.Info().
		Str("request_id", approved.ID).
		Str("time_entry_id", approved.TimeEntryID).
		Str("employee_id", approved.EmployeeID).
		Str("reviewer_id", reviewedBy).
		Msg("adjustment request approved")

	s.notify(ctx, domain.NotifyApproved, approved)
	return approved, nil
}

// Reject marks a pending request rejected. The clock event is untouched.
func (s *AdjustmentService) Reject(ctx context.Context, id, reviewedBy, reviewNotes string) (*domain.AdjustmentRequest, error) {
	if err := validateReviewer(reviewedBy); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reviewNotes) == "" {
		return nil, errors.Validation(map[string]string{"review_notes": "this field is required"})
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, errors.EnsureDependency("adjustment request store", err)
	}
	if err := s.checkReviewer(req, reviewedBy); err != nil {
		return nil, err
	}
	if err := req.Review(domain.AdjustmentRejected, reviewedBy, &reviewNotes, s.clock.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.requests.UpdateStatus(ctx, req); err != nil {
		s.logger.Warn().Err(err).Str("request_id", id).Str("reviewer_id", reviewedBy).Msg("adjustment rejection failed")
		return nil, errors.EnsureDependency("adjustment request store", err)
	}

	s.logger.Info().
		Str("request_id", req.ID).
		Str("employee_id", req.EmployeeID).
		Str("reviewer_id", reviewedBy).
		Msg("adjustment request rejected")

	s.notify(ctx, domain.NotifyRejected, req)
	return req, nil
}

// Get returns a single request
func (s *AdjustmentService) Get(ctx context.Context, id string) (*domain.AdjustmentRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, errors.EnsureDependency("adjustment request store", err)
	}
	return req, nil
}

// List returns requests matching filter, newest first, with the total count
func (s *AdjustmentService) List(ctx context.Context, filter domain.AdjustmentFilter) ([]*domain.AdjustmentRequest, int64, error) {
	switch filter.Status {
	case "", domain.AdjustmentPending, domain.AdjustmentApproved, domain.AdjustmentRejected:
	default:
		return nil, 0, errors.Validation(map[string]string{"status": "must be one of: pending approved rejected"})
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	requests, total, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, 0, errors.EnsureDependency("adjustment request store", err)
	}
	return requests, total, nil
}

// checkReviewer stops employees from reviewing their own corrections
func (s *AdjustmentService) checkReviewer(req *domain.AdjustmentRequest, reviewedBy string) error {
	if req.EmployeeID == reviewedBy {
		return errors.Forbidden("employees cannot review their own adjustment requests")
	}
	return nil
}

func validateReviewer(reviewedBy string) error {
	if strings.TrimSpace(reviewedBy) == "" {
		return errors.Validation(map[string]string{"reviewed_by": "this field is required"})
	}
	return nil
}

// notify dispatches a workflow notification. Failures are logged and never
// undo the transition that triggered them.
func (s *AdjustmentService) notify(ctx context.Context, kind string, req *domain.AdjustmentRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, kind, req.EmployeeID, domain.PayloadFor(req)); err != nil {
		s.logger.Error().
			Err(err).
			Str("kind", kind).
			Str("request_id", req.ID).
			Str("employee_id", req.EmployeeID).
			Msg("failed to dispatch adjustment notification")
	}
}
