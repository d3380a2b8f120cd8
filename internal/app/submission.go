package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tripquote/internal/derive"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
)

const (
	statusCold      = "Cold"
	StatusConverted = "Converted"
)

// SubmissionService turns a finished form into a remote quotation and links
// it to the lead.
type SubmissionService struct {
	api          domain.SalesAPI
	companyID    string
	companyEmail string
	now          func() time.Time
}

func NewSubmissionService(api domain.SalesAPI, companyID, companyEmail string) *SubmissionService {
	return &SubmissionService{api: api, companyID: companyID, companyEmail: companyEmail, now: time.Now}
}

// Submit creates the quotation, then records it on the lead. Both calls must
// succeed; prior holds the quotation ids the lead already has.
func (s *SubmissionService) Submit(ctx context.Context, v domain.QuotationFormValues, prior []string) (domain.QuotationReceipt, error) {
	at := s.now()
	sub := domain.Submission{
		QuotationFormValues: v,
		CompanyID:           s.companyID,
		CompanyEmail:        s.companyEmail,
	}
	sub.AssignDate = at.UTC().Format(isoMillis)
	sub.AssignDateKey = derive.DateKey(derive.FormatDate(at.UTC()))

	rc, err := s.api.CreateQuotation(ctx, sub)
	if err != nil {
		return domain.QuotationReceipt{}, fmt.Errorf("create quotation for trip %s: %w", v.TripID, err)
	}
	if rc.TripID == "" {
		rc.TripID = v.TripID
	}

	quotes := make([]string, 0, len(prior)+1)
	quotes = append(quotes, prior...)
	quotes = append(quotes, rc.QuoteID)
	err = s.api.UpdateLead(ctx, domain.LeadUpdate{
		TripID:            rc.TripID,
		LeadID:            v.LeadID,
		Quotations:        quotes,
		SalesStatus:       statusCold,
		LatestQuotationID: rc.QuoteID,
	})
	if err != nil {
		// the quotation exists remotely at this point; a retry creates another
		log.Error().Err(err).
			Str("context", "submission").
			Str("trip_id", rc.TripID).
			Str("quote_id", rc.QuoteID).
			Msg("lead update failed after quotation was created")
		return rc, fmt.Errorf("update lead for trip %s: %w", rc.TripID, err)
	}

	log.Info().Str("context", "submission").Str("trip_id", rc.TripID).Str("quote_id", rc.QuoteID).Msg("quotation submitted")
	return rc, nil
}

// For adapts Submit to a lifecycle submit callback. The receipt of the last
// successful call is passed to done.
func (s *SubmissionService) For(prior []string, done func(domain.QuotationReceipt)) draft.SubmitFunc {
	return func(ctx context.Context, v domain.QuotationFormValues) error {
		rc, err := s.Submit(ctx, v, prior)
		if err != nil {
			return err
		}
		if done != nil {
			done(rc)
		}
		return nil
	}
}
