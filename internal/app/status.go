package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"tripquote/internal/domain"
)

// ErrHandoverFailed marks a status change that was stored but whose handover
// mail could not be sent.
var ErrHandoverFailed = errors.New("status updated but handover mail failed")

var (
	ErrMissingTrip   = errors.New("trip id is required")
	ErrMissingStatus = errors.New("status is required")
)

type StatusChange struct {
	TripID  string `json:"TripId"`
	LeadID  string `json:"LeadId"`
	QuoteID string `json:"QuoteId"`
	Status  string `json:"Status"`
}

type StatusService struct {
	api domain.SalesAPI
}

func NewStatusService(api domain.SalesAPI) *StatusService { return &StatusService{api: api} }

// Change records a new sales status on the lead. Converting a lead also asks
// for the handover mail; if only that part fails the returned error wraps
// ErrHandoverFailed.
func (s *StatusService) Change(ctx context.Context, c StatusChange) error {
	c.Status = strings.TrimSpace(c.Status)
	if c.TripID == "" {
		return ErrMissingTrip
	}
	if c.Status == "" {
		return ErrMissingStatus
	}

	err := s.api.UpdateLead(ctx, domain.LeadUpdate{
		TripID:       c.TripID,
		LeadID:       c.LeadID,
		SalesStatus:  c.Status,
		LatestStatus: c.Status,
	})
	if err != nil {
		return fmt.Errorf("update status of trip %s: %w", c.TripID, err)
	}
	if c.Status != StatusConverted {
		return nil
	}

	if c.QuoteID == "" {
		log.Warn().Str("context", "status").Str("trip_id", c.TripID).Msg("converted without a quotation, skipping handover")
		return nil
	}
	if err := s.api.SendHandover(ctx, c.TripID, c.QuoteID); err != nil {
		log.Warn().Err(err).Str("context", "status").Str("trip_id", c.TripID).Msg("handover mail failed")
		return fmt.Errorf("%w: %w", ErrHandoverFailed, err)
	}
	return nil
}
