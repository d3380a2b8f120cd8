package draft

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"tripquote/internal/domain"
	"tripquote/internal/form"
	"tripquote/internal/schedule"
	"tripquote/internal/storage/memory"
)

var today = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

var edit = form.SetOptions{Dirty: true, Touched: true}

type countingKV struct {
	*memory.KV
	mu   sync.Mutex
	sets int
}

func (c *countingKV) Set(ctx context.Context, key string, v []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.KV.Set(ctx, key, v)
}

func (c *countingKV) Sets() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

type harness struct {
	clock *schedule.Manual
	kv    *countingKV
	store *Store
	form  *form.Controller
	lc    *Lifecycle
}

func newHarness(t *testing.T, kv domain.KV) *harness {
	t.Helper()
	h := &harness{clock: schedule.NewManual()}
	if kv == nil {
		h.kv = &countingKV{KV: memory.New()}
		kv = h.kv
	}
	h.store = NewStore(kv, "memory")
	h.form = form.New(domain.QuotationFormValues{}, form.WithScheduler(h.clock), form.WithClock(func() time.Time { return today }))
	h.lc = NewLifecycle(h.store, h.form, h.clock, 700*time.Millisecond)
	t.Cleanup(h.lc.Close)
	return h
}

func defaults(trip string) domain.QuotationFormValues {
	return form.Normalize(domain.QuotationFormValues{
		TripID:          trip,
		ClientName:      "From Lead",
		ClientContact:   "9876543210",
		TravelDate:      "2024-05-10",
		DepartureCity:   "Delhi",
		DestinationName: "Bali",
		Days:            2,
		Nights:          1,
		PriceType:       "Total",
		Currency:        "INR",
		Hotels:          []domain.HotelStay{{Name: "Ayana", City: "Jimbaran", Nights: 1}},
	}, today)
}

func mustOpen(t *testing.T, h *harness, p Params) {
	t.Helper()
	if err := h.lc.Open(context.Background(), p); err != nil {
		t.Fatalf("open: %v", err)
	}
	if s := h.lc.State(); s != Ready {
		t.Fatalf("state after open: %v", s)
	}
}

func TestLifecycle_RestoresDraftOverDefaults(t *testing.T) {
	h := newHarness(t, nil)
	saved := defaults("T1")
	saved.ClientName = "From Draft"
	h.store.Save(context.Background(), "T1", saved)

	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	if got := h.form.Values().ClientName; got != "From Draft" {
		t.Fatalf("client name: %q", got)
	}
}

func TestLifecycle_NoDraftUsesDefaults(t *testing.T) {
	h := newHarness(t, nil)
	d := defaults("T1")
	mustOpen(t, h, Params{TripID: "T1", Defaults: d})
	if got := h.form.Values(); !reflect.DeepEqual(got, d) {
		t.Fatalf("form should equal defaults:\n got %+v\nwant %+v", got, d)
	}
}

func TestLifecycle_SkipRestoreIgnoresDraftAndNeverSaves(t *testing.T) {
	h := newHarness(t, nil)
	stale := defaults("T1")
	stale.ClientName = "Stale Draft"
	h.store.Save(context.Background(), "T1", stale)
	before := h.kv.Sets()

	d := defaults("T1")
	mustOpen(t, h, Params{TripID: "T1", ResetKey: "Q-7", SkipRestore: true, Defaults: d})
	h.clock.Flush()
	if got := h.form.Values(); !reflect.DeepEqual(got, d) {
		t.Fatalf("form should equal defaults exactly:\n got %+v\nwant %+v", got, d)
	}

	if err := h.form.Set("ClientName", "Edited", edit); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(5 * time.Second)
	if n := h.kv.Sets() - before; n != 0 {
		t.Fatalf("autosave must be off, got %d saves", n)
	}
}

func TestLifecycle_AutosaveIsDebounced(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})

	for i, name := range []string{"First", "Second", "Third"} {
		if i > 0 {
			h.clock.Advance(200 * time.Millisecond)
		}
		if err := h.form.Set("ClientName", name, edit); err != nil {
			t.Fatal(err)
		}
	}

	h.clock.Advance(699 * time.Millisecond)
	if n := h.kv.Sets(); n != 0 {
		t.Fatalf("saved before the quiet period: %d", n)
	}
	h.clock.Advance(time.Millisecond)
	if n := h.kv.Sets(); n != 1 {
		t.Fatalf("expected exactly one save, got %d", n)
	}
	d, ok := h.store.Load(context.Background(), "T1")
	if !ok {
		t.Fatal("expected a saved draft")
	}
	v, _ := d.Values()
	if v.ClientName != "Third" {
		t.Fatalf("saved %q, want the last edit", v.ClientName)
	}

	h.clock.Advance(10 * time.Second)
	if n := h.kv.Sets(); n != 1 {
		t.Fatalf("no further saves expected, got %d", n)
	}
}

func TestLifecycle_SubmitSuccessClearsDraft(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Asha", edit)
	h.clock.Advance(700 * time.Millisecond)
	if _, ok := h.store.Load(context.Background(), "T1"); !ok {
		t.Fatal("precondition: draft exists")
	}

	var sent domain.QuotationFormValues
	err := h.lc.Submit(context.Background(), func(_ context.Context, v domain.QuotationFormValues) error {
		sent = v
		return nil
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sent.ClientName != "Asha" {
		t.Fatalf("submitted %q", sent.ClientName)
	}
	if _, ok := h.store.Load(context.Background(), "T1"); ok {
		t.Fatal("draft should be cleared after a successful submit")
	}
}

func TestLifecycle_SubmitFailureKeepsDraft(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Asha", edit)
	h.clock.Advance(700 * time.Millisecond)
	before, _, _ := h.kv.Get(ctx, Key("T1"))

	boom := errors.New("502 from sales api")
	err := h.lc.Submit(ctx, func(context.Context, domain.QuotationFormValues) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	after, ok, _ := h.kv.Get(ctx, Key("T1"))
	if !ok || string(after) != string(before) {
		t.Fatalf("draft must survive unchanged:\nbefore %s\nafter  %s", before, after)
	}
}

func TestLifecycle_SubmitCancelsPendingAutosave(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Asha", edit)

	if err := h.lc.Submit(context.Background(), func(context.Context, domain.QuotationFormValues) error { return nil }); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(time.Second)
	if _, ok := h.store.Load(context.Background(), "T1"); ok {
		t.Fatal("a pending autosave must not recreate the draft")
	}
}

func TestLifecycle_SaveStartedBeforeSubmitDoesNotRecreateDraft(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Asha", edit)
	gen, clears := h.lc.gen, h.lc.clears

	if err := h.lc.Submit(ctx, func(context.Context, domain.QuotationFormValues) error { return nil }); err != nil {
		t.Fatal(err)
	}
	// the timer fired before Submit and only now reaches the store
	h.lc.autosave(gen, clears, "T1")
	if _, ok := h.store.Load(ctx, "T1"); ok {
		t.Fatal("a save from before the submit must not recreate the draft")
	}

	_ = h.form.Set("ClientName", "Ravi", edit)
	h.clock.Advance(700 * time.Millisecond)
	if _, ok := h.store.Load(ctx, "T1"); !ok {
		t.Fatal("edits after the submit should autosave again")
	}
}

func TestLifecycle_SubmitRequiresValidForm(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientContact", "123", edit)

	called := false
	err := h.lc.Submit(context.Background(), func(context.Context, domain.QuotationFormValues) error {
		called = true
		return nil
	})
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Fatal("submit callback must not run on an invalid form")
	}
	if verr.Errors["ClientContact"] != "Enter 10 digits" {
		t.Fatalf("errors: %v", verr.Errors)
	}
}

func TestLifecycle_ReopenSameIdentityKeepsEdits(t *testing.T) {
	h := newHarness(t, nil)
	p := Params{TripID: "T1", ResetKey: "Q1", Defaults: defaults("T1")}
	mustOpen(t, h, p)
	_ = h.form.Set("ClientName", "Edited", edit)

	mustOpen(t, h, p)
	if got := h.form.Values().ClientName; got != "Edited" {
		t.Fatalf("re-open reset the form: %q", got)
	}

	p.ResetKey = "Q2"
	mustOpen(t, h, p)
	if got := h.form.Values().ClientName; got != "From Lead" {
		t.Fatalf("new reset key should reset: %q", got)
	}
}

func TestLifecycle_IdentityChangeCancelsPendingSave(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Pending", edit)

	mustOpen(t, h, Params{TripID: "T2", Defaults: defaults("T2")})
	h.clock.Advance(time.Second)
	if n := h.kv.Sets(); n != 0 {
		t.Fatalf("pending save for T1 should be dropped, got %d saves", n)
	}
}

func TestLifecycle_CloseCancelsPendingSave(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Pending", edit)

	h.lc.Close()
	h.clock.Advance(time.Second)
	if n := h.kv.Sets(); n != 0 {
		t.Fatalf("got %d saves after close", n)
	}
	if err := h.lc.Open(context.Background(), Params{TripID: "T1"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("open after close: %v", err)
	}
}

func TestLifecycle_FlushWritesPendingSave(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Now", edit)

	h.lc.Flush()
	if n := h.kv.Sets(); n != 1 {
		t.Fatalf("flush saves: %d", n)
	}
	h.clock.Advance(time.Second)
	if n := h.kv.Sets(); n != 1 {
		t.Fatalf("flushed save should not fire again: %d", n)
	}
}

func TestLifecycle_DiscardClearsDraftAndResets(t *testing.T) {
	h := newHarness(t, nil)
	mustOpen(t, h, Params{TripID: "T1", Defaults: defaults("T1")})
	_ = h.form.Set("ClientName", "Edited", edit)
	h.clock.Advance(700 * time.Millisecond)

	if err := h.lc.Discard(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.store.Load(context.Background(), "T1"); ok {
		t.Fatal("draft should be gone")
	}
	if got := h.form.Values().ClientName; got != "From Lead" {
		t.Fatalf("form not reset: %q", got)
	}
	if s := h.lc.State(); s != Ready {
		t.Fatalf("state: %v", s)
	}
}

// blockingKV parks Get until released so a load can be overtaken.
type blockingKV struct {
	*memory.KV
	entered chan struct{}
	release chan struct{}
}

func (b *blockingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.KV.Get(ctx, key)
}

func TestLifecycle_StaleLoadIsDiscarded(t *testing.T) {
	kv := &blockingKV{KV: memory.New(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	h := newHarness(t, kv)
	old := defaults("T1")
	old.ClientName = "Old Draft"
	h.store.Save(context.Background(), "T1", old)

	done := make(chan error, 1)
	go func() {
		done <- h.lc.Open(context.Background(), Params{TripID: "T1", Defaults: defaults("T1")})
	}()
	<-kv.entered

	// a newer identity wins while the first load is parked
	fresh := defaults("T1")
	fresh.ClientName = "Existing Quote"
	mustOpen(t, h, Params{TripID: "T1", ResetKey: "Q9", SkipRestore: true, Defaults: fresh})

	close(kv.release)
	if err := <-done; err != nil {
		t.Fatalf("stale open: %v", err)
	}
	if got := h.form.Values().ClientName; got != "Existing Quote" {
		t.Fatalf("stale load clobbered newer state: %q", got)
	}
	if s := h.lc.State(); s != Ready {
		t.Fatalf("state: %v", s)
	}
}

func TestLifecycle_LoadAfterCloseIsDiscarded(t *testing.T) {
	kv := &blockingKV{KV: memory.New(), entered: make(chan struct{}, 1), release: make(chan struct{})}
	h := newHarness(t, kv)
	old := defaults("T1")
	old.ClientName = "Old Draft"
	h.store.Save(context.Background(), "T1", old)
	before := h.form.Values()

	done := make(chan error, 1)
	go func() {
		done <- h.lc.Open(context.Background(), Params{TripID: "T1", Defaults: defaults("T1")})
	}()
	<-kv.entered
	h.lc.Close()
	close(kv.release)
	<-done

	if got := h.form.Values(); !reflect.DeepEqual(got, before) {
		t.Fatalf("form changed after teardown: %+v", got)
	}
	if s := h.lc.State(); s != Idle {
		t.Fatalf("state: %v", s)
	}
}
