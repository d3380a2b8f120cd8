package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tripquote/internal/adapters/observability"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
	"tripquote/internal/form"
	"tripquote/internal/schedule"
	"tripquote/internal/wizard"
)

var (
	ErrSessionNotFound     = fmt.Errorf("session %w", domain.ErrNotFound)
	ErrMissingBookingToken = errors.New("flight booking token is required")
)

// Session is one open quotation wizard: the form, its draft binding and the
// section cursor.
type Session struct {
	ID     string
	Source domain.Source
	Form   *form.Controller
	Drafts *draft.Lifecycle
	Wizard *wizard.Wizard

	mu      sync.Mutex
	receipt *domain.QuotationReceipt
}

func (s *Session) setReceipt(rc domain.QuotationReceipt) {
	s.mu.Lock()
	s.receipt = &rc
	s.mu.Unlock()
}

// SessionView is the JSON shape of a session.
type SessionView struct {
	ID           string                     `json:"id"`
	TripID       string                     `json:"tripId"`
	State        string                     `json:"state"`
	Section      wizard.Section             `json:"section"`
	Counter      string                     `json:"counter"`
	PrimaryLabel string                     `json:"primaryLabel"`
	Values       domain.QuotationFormValues `json:"values"`
	Errors       map[string]string          `json:"errors,omitempty"`
	Dirty        []string                   `json:"dirty,omitempty"`
	Submitted    *domain.QuotationReceipt   `json:"submitted,omitempty"`
}

func (s *Session) View() SessionView {
	s.Form.Settle()
	v := SessionView{
		ID:           s.ID,
		TripID:       domain.TripIDOf(s.Source),
		State:        s.Drafts.State().String(),
		Section:      s.Wizard.Current(),
		Counter:      s.Wizard.Counter(),
		PrimaryLabel: s.Wizard.PrimaryLabel(),
		Values:       s.Form.Values(),
		Errors:       s.Form.Errors(),
		Dirty:        s.Form.DirtyFields(),
	}
	s.mu.Lock()
	if s.receipt != nil {
		rc := *s.receipt
		v.Submitted = &rc
	}
	s.mu.Unlock()
	return v
}

type SessionService struct {
	store  *draft.Store
	submit *SubmissionService
	sched  schedule.Scheduler
	delay  time.Duration
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionService(store *draft.Store, submit *SubmissionService, sched schedule.Scheduler, delay time.Duration) *SessionService {
	if sched == nil {
		sched = schedule.Real{}
	}
	return &SessionService{
		store:    store,
		submit:   submit,
		sched:    sched,
		delay:    delay,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Create opens a wizard for a lead or follow-up record. Follow-ups edit a
// quotation that already exists, so they neither restore nor write drafts.
func (s *SessionService) Create(ctx context.Context, record map[string]any) (SessionView, error) {
	src := SourceFromMap(record)
	defaults := Defaults(src, s.now())

	p := draft.Params{TripID: defaults.TripID, Defaults: defaults}
	if fu, ok := src.(*domain.FollowUpRecord); ok {
		p.ResetKey = fu.QuoteID
		p.SkipRestore = true
	}

	fc := form.New(defaults, form.WithScheduler(s.sched), form.WithClock(s.now))
	sess := &Session{
		ID:     uuid.NewString(),
		Source: src,
		Form:   fc,
		Drafts: draft.NewLifecycle(s.store, fc, s.sched, s.delay),
	}
	prior := domain.QuotationsOf(src)
	sess.Wizard = wizard.New(wizard.DefaultSections(), func(ctx context.Context) error {
		return sess.Drafts.Submit(ctx, s.submit.For(prior, sess.setReceipt))
	})

	if err := sess.Drafts.Open(ctx, p); err != nil {
		sess.Drafts.Close()
		return SessionView{}, fmt.Errorf("open session for trip %s: %w", p.TripID, err)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	observability.OpenSessions.Set(float64(n))

	log.Info().
		Str("context", "sessions").
		Str("session_id", sess.ID).
		Str("trip_id", p.TripID).
		Bool("follow_up", p.SkipRestore).
		Msg("session opened")
	return sess.View(), nil
}

func (s *SessionService) lookup(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionService) Get(id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	return sess.View(), nil
}

// IDs lists open sessions.
func (s *SessionService) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SetField is a user edit of one field.
func (s *SessionService) SetField(id, path string, value any) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	if err := sess.Form.Set(path, value, form.SetOptions{Dirty: true, Touched: true}); err != nil {
		return SessionView{}, err
	}
	return sess.View(), nil
}

// edit runs a list operation on the session's form and returns the view.
func (s *SessionService) edit(id string, fn func(*form.Controller)) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	fn(sess.Form)
	return sess.View(), nil
}

func (s *SessionService) AddHotel(id string) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.AddHotel() })
}

// RemoveHotel drops hotel i; removing the last remaining hotel is refused
// silently and the unchanged view is returned.
func (s *SessionService) RemoveHotel(id string, i int) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.RemoveHotel(i) })
}

// ToggleFlight selects the offer, or unselects the one with the same booking
// token.
func (s *SessionService) ToggleFlight(id string, offer domain.FlightOffer) (SessionView, error) {
	if offer.BookingToken == "" {
		return SessionView{}, ErrMissingBookingToken
	}
	return s.edit(id, func(c *form.Controller) { c.ToggleFlight(offer) })
}

// RemoveItineraryDay drops day i and shortens the trip by one day. The only
// remaining day is kept.
func (s *SessionService) RemoveItineraryDay(id string, i int) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.RemoveItineraryDay(i) })
}

func (s *SessionService) AddInclusion(id, text string) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.AddInclusion(text) })
}

func (s *SessionService) RemoveInclusion(id string, i int) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.RemoveInclusion(i) })
}

func (s *SessionService) AddExclusion(id, text string) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.AddExclusion(text) })
}

func (s *SessionService) RemoveExclusion(id string, i int) (SessionView, error) {
	return s.edit(id, func(c *form.Controller) { c.RemoveExclusion(i) })
}

// Next advances the wizard, or submits on the last section. A failed submit
// leaves the wizard where it was and returns the error with the view.
func (s *SessionService) Next(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	if _, err := sess.Wizard.Next(ctx); err != nil {
		return sess.View(), err
	}
	return sess.View(), nil
}

func (s *SessionService) Previous(id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	sess.Wizard.Previous()
	return sess.View(), nil
}

// Discard drops the trip's draft and resets the form to the record's
// defaults.
func (s *SessionService) Discard(ctx context.Context, id string) (SessionView, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	if err := sess.Drafts.Discard(ctx); err != nil {
		return SessionView{}, err
	}
	return sess.View(), nil
}

// Close writes any pending autosave and forgets the session.
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	observability.OpenSessions.Set(float64(n))

	sess.Drafts.Flush()
	sess.Drafts.Close()
	log.Info().Str("context", "sessions").Str("session_id", id).Msg("session closed")
	return nil
}

// CloseAll closes every open session, flushing their drafts.
func (s *SessionService) CloseAll() {
	for _, id := range s.IDs() {
		if err := s.Close(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			log.Warn().Err(err).Str("context", "sessions").Str("session_id", id).Msg("close failed")
		}
	}
}
