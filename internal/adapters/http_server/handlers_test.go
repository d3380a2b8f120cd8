package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tripquote/internal/adapters/salesapi"
	"tripquote/internal/app"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
	"tripquote/internal/form"
)

func TestWriteError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&form.ValidationError{Errors: map[string]string{"ClientName": "Full name is required"}}, http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{app.ErrSessionNotFound, http.StatusNotFound},
		{form.ErrTypeMismatch, http.StatusBadRequest},
		{form.ErrCheckOutBeforeCheckIn, http.StatusBadRequest},
		{app.ErrMissingStatus, http.StatusBadRequest},
		{draft.ErrSubmitInProgress, http.StatusConflict},
		{draft.ErrClosed, http.StatusGone},
		{salesapi.ErrUnauthorized, http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%v: status %d want %d", tc.err, rec.Code, tc.want)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%v: content type %q", tc.err, ct)
		}
	}
}

func TestWriteError_ValidationCarriesFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, &form.ValidationError{Errors: map[string]string{"Hotels[0].Name": "Hotel name is required"}})

	var p problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Status != http.StatusUnprocessableEntity || p.Errors["Hotels[0].Name"] != "Hotel name is required" {
		t.Fatalf("problem: %+v", p)
	}
}

func TestCalcETagAndBody_Stable(t *testing.T) {
	a, body := calcETagAndBody(map[string]int{"x": 1})
	b, _ := calcETagAndBody(map[string]int{"x": 1})
	c, _ := calcETagAndBody(map[string]int{"x": 2})
	if a == "" || a != b || a == c {
		t.Fatalf("etags: %q %q %q", a, b, c)
	}
	if string(body) != `{"x":1}` {
		t.Fatalf("body: %s", body)
	}
}
