package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tripquote/internal/draft"
)

// SweepReport counts what one sweep saw.
type SweepReport struct {
	Scanned    int `json:"scanned"`
	Removed    int `json:"removed"`
	Kept       int `json:"kept"`
	Unreadable int `json:"unreadable"`
}

// SweepService clears drafts nobody touched for longer than maxAge.
type SweepService struct {
	store   *draft.Store
	maxAge  time.Duration
	workers int
	now     func() time.Time
}

func NewSweepService(store *draft.Store, maxAge time.Duration, workers int) *SweepService {
	if workers < 1 {
		workers = 1
	}
	return &SweepService{store: store, maxAge: maxAge, workers: workers, now: time.Now}
}

// Run loads every stored draft, at most workers at a time, and clears the
// stale ones. Drafts that cannot be read are left alone and counted.
func (s *SweepService) Run(ctx context.Context) (SweepReport, error) {
	if err := ctx.Err(); err != nil {
		return SweepReport{}, err
	}
	trips := s.store.ListKeys(ctx)
	cutoff := s.now().Add(-s.maxAge)

	var removed, kept, unreadable atomic.Int64
	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup

	var err error
	for _, trip := range trips {
		// acquire before launching the goroutine; release inside it
		if err = sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(tripID string) {
			defer wg.Done()
			defer sem.Release(1)

			d, ok := s.store.Load(ctx, tripID)
			switch {
			case !ok:
				unreadable.Add(1)
			case d.UpdatedAt.Before(cutoff):
				s.store.Clear(ctx, tripID)
				removed.Add(1)
				log.Info().
					Str("context", "sweep").
					Str("trip_id", tripID).
					Time("updated_at", d.UpdatedAt).
					Msg("stale draft cleared")
			default:
				kept.Add(1)
			}
		}(trip)
	}
	wg.Wait()

	rep := SweepReport{
		Scanned:    int(removed.Load() + kept.Load() + unreadable.Load()),
		Removed:    int(removed.Load()),
		Kept:       int(kept.Load()),
		Unreadable: int(unreadable.Load()),
	}
	return rep, err
}
