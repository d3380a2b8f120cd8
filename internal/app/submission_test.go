package app_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"tripquote/internal/app"
	"tripquote/internal/domain"
)

// ---- fakes ----

type fakeAPI struct {
	mu          sync.Mutex
	created     []domain.Submission
	updates     []domain.LeadUpdate
	handovers   [][2]string
	quoteID     string
	createErr   error
	updateErr   error
	handoverErr error
}

func (f *fakeAPI) CreateQuotation(ctx context.Context, s domain.Submission) (domain.QuotationReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, s)
	if f.createErr != nil {
		return domain.QuotationReceipt{}, f.createErr
	}
	return domain.QuotationReceipt{QuoteID: f.quoteID}, nil
}

func (f *fakeAPI) UpdateLead(ctx context.Context, u domain.LeadUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.updateErr
}

func (f *fakeAPI) SendHandover(ctx context.Context, tripID, quoteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handovers = append(f.handovers, [2]string{tripID, quoteID})
	return f.handoverErr
}

// ---- tests ----

func TestSubmit_CreatesThenLinksLead(t *testing.T) {
	api := &fakeAPI{quoteID: "Q-9"}
	s := app.NewSubmissionService(api, "CO-1", "sales@example.com")
	v := app.Defaults(&domain.LeadRecord{LeadID: "L1", TripID: "T1"}, now)

	rc, err := s.Submit(context.Background(), v, []string{"Q-1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if rc.QuoteID != "Q-9" || rc.TripID != "T1" {
		t.Fatalf("receipt: %+v", rc)
	}
	if len(api.created) != 1 {
		t.Fatalf("creates: %d", len(api.created))
	}
	sub := api.created[0]
	if sub.CompanyID != "CO-1" || sub.CompanyEmail != "sales@example.com" || sub.AssignDateKey == 0 || sub.AssignDate == "" {
		t.Fatalf("submission metadata: %+v", sub)
	}
	want := domain.LeadUpdate{
		TripID: "T1", LeadID: "L1",
		Quotations:        []string{"Q-1", "Q-9"},
		SalesStatus:       "Cold",
		LatestQuotationID: "Q-9",
	}
	if len(api.updates) != 1 || !reflect.DeepEqual(api.updates[0], want) {
		t.Fatalf("lead update: %+v", api.updates)
	}
}

func TestSubmit_CreateFailureSkipsLeadUpdate(t *testing.T) {
	api := &fakeAPI{createErr: errors.New("boom")}
	s := app.NewSubmissionService(api, "CO-1", "")

	if _, err := s.Submit(context.Background(), app.Defaults(nil, now), nil); err == nil {
		t.Fatal("expected error")
	}
	if len(api.updates) != 0 {
		t.Fatalf("lead must not be updated: %+v", api.updates)
	}
}

func TestSubmit_LeadUpdateFailureFailsSubmission(t *testing.T) {
	upd := errors.New("lead api down")
	api := &fakeAPI{quoteID: "Q-2", updateErr: upd}
	s := app.NewSubmissionService(api, "CO-1", "")

	var got domain.QuotationReceipt
	fn := s.For(nil, func(rc domain.QuotationReceipt) { got = rc })
	err := fn(context.Background(), app.Defaults(&domain.LeadRecord{TripID: "T"}, now))
	if !errors.Is(err, upd) {
		t.Fatalf("expected wrapped lead error, got %v", err)
	}
	if got.QuoteID != "" {
		t.Fatal("done must only run on success")
	}
}

func TestStatusChange(t *testing.T) {
	cases := []struct {
		name       string
		in         app.StatusChange
		api        *fakeAPI
		wantErr    error
		handovers  int
		wantUpdate bool
	}{
		{
			name:       "plain status",
			in:         app.StatusChange{TripID: "T", LeadID: "L", Status: "Hot"},
			api:        &fakeAPI{},
			wantUpdate: true,
		},
		{
			name:       "converted sends handover",
			in:         app.StatusChange{TripID: "T", QuoteID: "Q", Status: "Converted"},
			api:        &fakeAPI{},
			handovers:  1,
			wantUpdate: true,
		},
		{
			name:       "handover failure is partial",
			in:         app.StatusChange{TripID: "T", QuoteID: "Q", Status: "Converted"},
			api:        &fakeAPI{handoverErr: errors.New("smtp")},
			wantErr:    app.ErrHandoverFailed,
			handovers:  1,
			wantUpdate: true,
		},
		{
			name:    "missing trip",
			in:      app.StatusChange{Status: "Hot"},
			api:     &fakeAPI{},
			wantErr: app.ErrMissingTrip,
		},
		{
			name:    "blank status",
			in:      app.StatusChange{TripID: "T", Status: "  "},
			api:     &fakeAPI{},
			wantErr: app.ErrMissingStatus,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := app.NewStatusService(tc.api).Change(context.Background(), tc.in)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if len(tc.api.handovers) != tc.handovers {
				t.Fatalf("handovers: %v", tc.api.handovers)
			}
			if tc.wantUpdate {
				if len(tc.api.updates) != 1 {
					t.Fatalf("updates: %+v", tc.api.updates)
				}
				u := tc.api.updates[0]
				if u.SalesStatus != tc.in.Status || u.LatestStatus != tc.in.Status {
					t.Fatalf("update: %+v", u)
				}
			}
		})
	}
}

func TestStatusChange_UpdateFailureSkipsHandover(t *testing.T) {
	api := &fakeAPI{updateErr: errors.New("down")}
	err := app.NewStatusService(api).Change(context.Background(), app.StatusChange{TripID: "T", QuoteID: "Q", Status: "Converted"})
	if err == nil || errors.Is(err, app.ErrHandoverFailed) {
		t.Fatalf("expected a plain failure, got %v", err)
	}
	if len(api.handovers) != 0 {
		t.Fatal("handover must not be sent")
	}
}
