// Package draft persists in-progress quotations per trip and ties a form
// controller to that storage: restore on open, debounced autosave, clear on
// successful submit.
package draft

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"tripquote/internal/adapters/observability"
	"tripquote/internal/domain"
)

const (
	KeyPrefix     = "quotationDraft:"
	recordVersion = 1
)

func Key(tripID string) string { return KeyPrefix + tripID }

// record is the stored envelope.
type record struct {
	V         int             `json:"v"`
	UpdatedAt int64           `json:"updatedAt"` // epoch ms
	Data      json.RawMessage `json:"data"`
}

// Draft is a loaded record. Data keeps the stored object as written so it
// can be layered over fresh defaults key by key.
type Draft struct {
	TripID    string
	UpdatedAt time.Time
	Data      json.RawMessage
}

// Values decodes the stored tree on its own.
func (d *Draft) Values() (domain.QuotationFormValues, error) {
	var v domain.QuotationFormValues
	if err := json.Unmarshal(d.Data, &v); err != nil {
		return domain.QuotationFormValues{}, fmt.Errorf("decode draft %s: %w", d.TripID, err)
	}
	return v, nil
}

// Overlay returns defaults with every top-level field present in the draft
// replaced by the draft's value. Nested objects and lists are replaced
// whole, never merged.
func (d *Draft) Overlay(defaults domain.QuotationFormValues) (domain.QuotationFormValues, error) {
	base, err := json.Marshal(defaults)
	if err != nil {
		return domain.QuotationFormValues{}, fmt.Errorf("encode defaults: %w", err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return domain.QuotationFormValues{}, fmt.Errorf("encode defaults: %w", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(d.Data, &top); err != nil {
		return domain.QuotationFormValues{}, fmt.Errorf("decode draft %s: %w", d.TripID, err)
	}
	for k, v := range top {
		merged[k] = v
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return domain.QuotationFormValues{}, fmt.Errorf("merge draft %s: %w", d.TripID, err)
	}
	var out domain.QuotationFormValues
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.QuotationFormValues{}, fmt.Errorf("merge draft %s: %w", d.TripID, err)
	}
	return out, nil
}

type StoreOption func(*Store)

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.timeout = d }
}

func WithNow(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store is the per-trip draft store. Every operation is best-effort:
// backend and encoding failures are logged and reported as "nothing
// saved" or "no draft", never returned.
type Store struct {
	kv      domain.KV
	backend string
	timeout time.Duration
	now     func() time.Time
}

// NewStore wraps kv. backend labels logs and metrics (memory, redis, mysql).
func NewStore(kv domain.KV, backend string, opts ...StoreOption) *Store {
	s := &Store{kv: kv, backend: backend, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(parent, s.timeout)
	}
	return context.WithCancel(parent)
}

// Save replaces the trip's draft with values. An empty trip id is ignored.
func (s *Store) Save(ctx context.Context, tripID string, values domain.QuotationFormValues) {
	if tripID == "" {
		return
	}
	data, err := json.Marshal(values)
	if err != nil {
		s.fail("save", tripID, err)
		return
	}
	b, err := json.Marshal(record{V: recordVersion, UpdatedAt: s.now().UnixMilli(), Data: data})
	if err != nil {
		s.fail("save", tripID, err)
		return
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if err := s.kv.Set(ctx, Key(tripID), b); err != nil {
		s.fail("save", tripID, err)
		return
	}
	observability.ObserveDraft(s.backend, "save")
}

// Load returns the trip's draft, or ok=false when there is none or the
// stored entry cannot be read.
func (s *Store) Load(ctx context.Context, tripID string) (*Draft, bool) {
	if tripID == "" {
		return nil, false
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	b, ok, err := s.kv.Get(ctx, Key(tripID))
	if err != nil {
		s.fail("load", tripID, err)
		return nil, false
	}
	if !ok {
		observability.ObserveDraft(s.backend, "miss")
		return nil, false
	}
	var rec record
	if err := json.Unmarshal(b, &rec); err != nil {
		s.corrupt(tripID, err)
		return nil, false
	}
	data := bytes.TrimSpace(rec.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		s.corrupt(tripID, fmt.Errorf("record has no data"))
		return nil, false
	}
	d := &Draft{TripID: tripID, UpdatedAt: time.UnixMilli(rec.UpdatedAt), Data: data}
	// data must decode as a tree, not just be valid JSON
	if _, err := d.Values(); err != nil {
		s.corrupt(tripID, err)
		return nil, false
	}
	observability.ObserveDraft(s.backend, "load")
	return d, true
}

// Clear removes the trip's draft. Clearing a missing draft is not an error.
func (s *Store) Clear(ctx context.Context, tripID string) {
	if tripID == "" {
		return
	}
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	if err := s.kv.Del(ctx, Key(tripID)); err != nil {
		s.fail("clear", tripID, err)
		return
	}
	log.Info().Str("context", "draft").Str("trip_id", tripID).Msg("draft cleared")
	observability.ObserveDraft(s.backend, "clear")
}

// ListKeys returns the trip ids that have a stored draft, sorted.
func (s *Store) ListKeys(ctx context.Context) []string {
	ctx, cancel := s.ctx(ctx)
	defer cancel()
	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		s.fail("list", "", err)
		return []string{}
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if id := strings.TrimPrefix(k, KeyPrefix); id != k && id != "" {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) fail(op, tripID string, err error) {
	observability.ObserveDraft(s.backend, "error")
	log.Warn().Err(err).
		Str("context", "draft").
		Str("op", op).
		Str("backend", s.backend).
		Str("trip_id", tripID).
		Msg("draft store operation failed")
}

func (s *Store) corrupt(tripID string, err error) {
	observability.ObserveDraft(s.backend, "corrupt")
	log.Warn().Err(err).
		Str("context", "draft").
		Str("backend", s.backend).
		Str("trip_id", tripID).
		Msg("ignoring unreadable draft")
}
