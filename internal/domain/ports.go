package domain

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// KV is the keyed storage drafts live in. Get reports absence with ok=false
// and a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// SalesAPI is the remote quotation/lead backend.
type SalesAPI interface {
	CreateQuotation(ctx context.Context, s Submission) (QuotationReceipt, error)
	UpdateLead(ctx context.Context, u LeadUpdate) error
	SendHandover(ctx context.Context, tripID, quoteID string) error
}
