package app

import (
	"context"
	"fmt"
	"time"

	"tripquote/internal/domain"
	"tripquote/internal/draft"
)

// DraftView is a stored draft as the API shows it.
type DraftView struct {
	TripID    string                     `json:"tripId"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	Values    domain.QuotationFormValues `json:"values"`
}

// DraftQueries exposes the draft store for inspection and manual cleanup.
type DraftQueries struct {
	store *draft.Store
}

func NewDraftQueries(store *draft.Store) *DraftQueries { return &DraftQueries{store: store} }

// List returns the trips that have a draft.
func (q *DraftQueries) List(ctx context.Context) []string {
	return q.store.ListKeys(ctx)
}

func (q *DraftQueries) Get(ctx context.Context, tripID string) (DraftView, error) {
	d, ok := q.store.Load(ctx, tripID)
	if !ok {
		return DraftView{}, fmt.Errorf("draft for trip %q: %w", tripID, domain.ErrNotFound)
	}
	v, err := d.Values()
	if err != nil {
		return DraftView{}, fmt.Errorf("draft for trip %q: %w", tripID, err)
	}
	return DraftView{TripID: d.TripID, UpdatedAt: d.UpdatedAt, Values: v}, nil
}

func (q *DraftQueries) Delete(ctx context.Context, tripID string) {
	q.store.Clear(ctx, tripID)
}
