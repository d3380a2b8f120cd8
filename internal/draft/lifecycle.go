package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tripquote/internal/domain"
	"tripquote/internal/form"
	"tripquote/internal/schedule"
)

const DefaultAutosaveDelay = 700 * time.Millisecond

var (
	ErrClosed           = errors.New("draft: lifecycle closed")
	ErrNotReady         = errors.New("draft: form is still loading")
	ErrSubmitInProgress = errors.New("draft: submit already in progress")
)

type State int

const (
	Idle State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// Params identifies what the form is editing. A change of TripID, ResetKey
// or SkipRestore starts a new load; Defaults only matter at that moment.
type Params struct {
	TripID      string
	ResetKey    string // e.g. a quotation id; forces a reset for the same trip
	SkipRestore bool   // editing an existing quotation: ignore and never write drafts
	Defaults    domain.QuotationFormValues
}

type identity struct {
	trip, reset string
	skip        bool
}

func (p Params) identity() identity {
	return identity{trip: p.TripID, reset: p.ResetKey, skip: p.SkipRestore}
}

// SubmitFunc sends the final values to the remote side. A nil return means
// the quotation is stored remotely and the local draft can go.
type SubmitFunc func(ctx context.Context, values domain.QuotationFormValues) error

// Lifecycle binds a form controller to the draft store: it restores a draft
// (or defaults) on Open, autosaves after a quiet period, and clears the
// draft once a submit succeeds.
type Lifecycle struct {
	store *Store
	form  *form.Controller
	slot  *schedule.Slot
	delay time.Duration

	// io serializes store reads and writes; reset serializes form resets
	// coming from overlapping opens.
	io    sync.Mutex
	reset sync.Mutex

	mu         sync.Mutex
	state      State
	gen        uint64
	clears     uint64 // bumped by each successful submit
	params     Params
	opened     bool
	closed     bool
	submitting bool
	unsub      func()
}

func NewLifecycle(store *Store, fc *form.Controller, sched schedule.Scheduler, delay time.Duration) *Lifecycle {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	l := &Lifecycle{
		store: store,
		form:  fc,
		slot:  schedule.NewSlot(sched),
		delay: delay,
	}
	l.unsub = fc.Subscribe(l.onChange)
	return l
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

func (l *Lifecycle) Form() *form.Controller { return l.form }

// Open loads the form for p. Re-opening with the same identity is a no-op.
// If another Open or Close happens while the draft is being read, this
// load's result is dropped.
func (l *Lifecycle) Open(ctx context.Context, p Params) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.opened && l.params.identity() == p.identity() {
		l.mu.Unlock()
		return nil
	}
	l.slot.Cancel()
	l.gen++
	gen := l.gen
	l.params = p
	l.opened = true
	l.state = Loading
	l.mu.Unlock()

	values := p.Defaults
	restored := false
	if !p.SkipRestore {
		l.io.Lock()
		d, ok := l.store.Load(ctx, p.TripID)
		l.io.Unlock()
		if ok {
			merged, err := d.Overlay(p.Defaults)
			if err != nil {
				log.Warn().Err(err).Str("context", "draft").Str("trip_id", p.TripID).Msg("draft overlay failed, using defaults")
			} else {
				values = merged
				restored = true
			}
		}
	}

	if !l.apply(gen, values) {
		log.Debug().Str("context", "draft").Str("trip_id", p.TripID).Msg("discarding stale load")
		return nil
	}
	log.Info().
		Str("context", "draft").
		Str("trip_id", p.TripID).
		Bool("restored", restored).
		Bool("skip_restore", p.SkipRestore).
		Msg("quotation form ready")
	return nil
}

// apply resets the form to values and enters Ready, unless gen is stale.
func (l *Lifecycle) apply(gen uint64, values domain.QuotationFormValues) bool {
	l.reset.Lock()
	defer l.reset.Unlock()
	if !l.live(gen) {
		return false
	}
	// state is still Loading here, so the reset and its recompute do not
	// trigger an autosave
	l.form.Reset(values)
	l.form.Settle()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen || l.closed {
		return false
	}
	l.state = Ready
	return true
}

func (l *Lifecycle) live(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen && !l.closed
}

func (l *Lifecycle) onChange(ch form.Change) {
	if ch.Kind == form.ChangeReset {
		return
	}
	l.mu.Lock()
	if l.closed || l.state != Ready || l.params.SkipRestore || l.params.TripID == "" {
		l.mu.Unlock()
		return
	}
	gen, clears, trip := l.gen, l.clears, l.params.TripID
	l.mu.Unlock()

	l.slot.Replace(l.delay, func() { l.autosave(gen, clears, trip) })
}

func (l *Lifecycle) autosave(gen, clears uint64, tripID string) {
	l.io.Lock()
	defer l.io.Unlock()
	if !l.readyAt(gen, clears) {
		return
	}
	l.store.Save(context.Background(), tripID, l.form.Values())
}

func (l *Lifecycle) readyAt(gen, clears uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen == gen && l.clears == clears && !l.closed && l.state == Ready
}

// Flush writes a pending autosave immediately.
func (l *Lifecycle) Flush() {
	if !l.slot.Pending() {
		return
	}
	l.slot.Cancel()
	l.mu.Lock()
	gen, clears, trip, skip := l.gen, l.clears, l.params.TripID, l.params.SkipRestore
	l.mu.Unlock()
	if skip {
		return
	}
	l.autosave(gen, clears, trip)
}

// Submit validates the whole form and hands it to fn. The draft is cleared
// exactly once, after fn succeeds; on any failure it is left as it was.
func (l *Lifecycle) Submit(ctx context.Context, fn SubmitFunc) error {
	l.mu.Lock()
	switch {
	case l.closed:
		l.mu.Unlock()
		return ErrClosed
	case l.state != Ready:
		l.mu.Unlock()
		return ErrNotReady
	case l.submitting:
		l.mu.Unlock()
		return ErrSubmitInProgress
	}
	l.submitting = true
	tripID := l.params.TripID
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.submitting = false
		l.mu.Unlock()
	}()

	l.form.Settle()
	if res := l.form.Validate(); !res.Valid {
		return &form.ValidationError{Errors: res.Errors}
	}
	if err := fn(ctx, l.form.Values()); err != nil {
		log.Warn().Err(err).Str("context", "draft").Str("trip_id", tripID).Msg("submit failed, keeping draft")
		return err
	}

	// a save still pending, or one already past the slot, would resurrect
	// the draft
	l.slot.Cancel()
	l.io.Lock()
	l.mu.Lock()
	l.clears++
	l.mu.Unlock()
	l.store.Clear(ctx, tripID)
	l.io.Unlock()
	return nil
}

// Discard drops the trip's draft and puts the form back to its defaults.
func (l *Lifecycle) Discard(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.slot.Cancel()
	l.gen++
	gen := l.gen
	p := l.params
	l.state = Loading
	l.mu.Unlock()

	l.io.Lock()
	l.store.Clear(ctx, p.TripID)
	l.io.Unlock()
	l.apply(gen, p.Defaults)
	return nil
}

// Close tears the binding down: pending saves are dropped, an in-flight load
// is ignored and the form is no longer watched.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.gen++
	l.state = Idle
	l.mu.Unlock()

	l.slot.Cancel()
	l.unsub()
}
