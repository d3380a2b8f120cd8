package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"tripquote/internal/adapters/salesapi"
	"tripquote/internal/app"
	"tripquote/internal/domain"
	"tripquote/internal/draft"
	"tripquote/internal/form"
	"tripquote/internal/wizard"
)

const maxBody = 1 << 20

type Handlers struct {
	Sessions *app.SessionService
	Drafts   *app.DraftQueries
	Status   *app.StatusService
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/drafts", func(r chi.Router) {
		r.Get("/", h.listDrafts)
		r.Get("/{tripId}", h.getDraft)
		r.Delete("/{tripId}", h.deleteDraft)
	})

	s.mux.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.closeSession)
			r.Patch("/fields", h.setField)
			r.Post("/hotels", h.addHotel)
			r.Delete("/hotels/{index}", h.removeHotel)
			r.Post("/flights", h.toggleFlight)
			r.Delete("/itinerary/{index}", h.removeItineraryDay)
			r.Post("/inclusions", h.addInclusion)
			r.Delete("/inclusions/{index}", h.removeInclusion)
			r.Post("/exclusions", h.addExclusion)
			r.Delete("/exclusions/{index}", h.removeExclusion)
			r.Post("/next", h.next)
			r.Post("/previous", h.previous)
			r.Post("/discard", h.discard)
		})
	})

	s.mux.Post("/v1/trips/{tripId}/status", h.changeStatus)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemDoc(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemDoc(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem documents.
func writeError(w http.ResponseWriter, err error) {
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		writeProblemDoc(w, problem{
			Type:   "about:blank",
			Title:  "Validation Failed",
			Status: http.StatusUnprocessableEntity,
			Detail: "the quotation has invalid fields",
			Errors: verr.Errors,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, form.ErrUnknownPath),
		errors.Is(err, form.ErrIndexOutOfRange),
		errors.Is(err, form.ErrTypeMismatch),
		errors.Is(err, form.ErrCheckOutBeforeCheckIn),
		errors.Is(err, app.ErrMissingTrip),
		errors.Is(err, app.ErrMissingStatus),
		errors.Is(err, app.ErrMissingBookingToken):
		writeProblem(w, http.StatusBadRequest, "Invalid Field", err.Error())
	case errors.Is(err, draft.ErrSubmitInProgress),
		errors.Is(err, wizard.ErrSubmitInProgress),
		errors.Is(err, draft.ErrNotReady):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, draft.ErrClosed):
		writeProblem(w, http.StatusGone, "Session Closed", err.Error())
	case errors.Is(err, salesapi.ErrUnauthorized),
		errors.Is(err, salesapi.ErrForbidden),
		errors.Is(err, salesapi.ErrMalformed),
		errors.Is(err, salesapi.ErrNotFound):
		writeProblem(w, http.StatusBadGateway, "Sales API Error", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

/********** drafts **********/

func (h *Handlers) listDrafts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tripIds": h.Drafts.List(r.Context())})
}

func (h *Handlers) getDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.Get(r.Context(), chi.URLParam(r, "tripId"))
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(d)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getDraft body")
	}
}

func (h *Handlers) deleteDraft(w http.ResponseWriter, r *http.Request) {
	h.Drafts.Delete(r.Context(), chi.URLParam(r, "tripId"))
	w.WriteHeader(http.StatusNoContent)
}

/********** sessions **********/

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var record map[string]any
	if err := decodeBody(r, &record); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be a lead or follow-up JSON object")
		return
	}
	v, err := h.Sessions.Create(r.Context(), record)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+v.ID)
	writeJSON(w, http.StatusCreated, v)
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fieldEdit struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (h *Handlers) setField(w http.ResponseWriter, r *http.Request) {
	var in fieldEdit
	if err := decodeBody(r, &in); err != nil || in.Path == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", `expected {"path": "...", "value": ...}`)
		return
	}
	v, err := h.Sessions.SetField(chi.URLParam(r, "id"), in.Path, in.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) addHotel(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.AddHotel(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) removeHotel(w http.ResponseWriter, r *http.Request) {
	h.removeAt(w, r, h.Sessions.RemoveHotel)
}

func (h *Handlers) removeItineraryDay(w http.ResponseWriter, r *http.Request) {
	h.removeAt(w, r, h.Sessions.RemoveItineraryDay)
}

func (h *Handlers) removeInclusion(w http.ResponseWriter, r *http.Request) {
	h.removeAt(w, r, h.Sessions.RemoveInclusion)
}

func (h *Handlers) removeExclusion(w http.ResponseWriter, r *http.Request) {
	h.removeAt(w, r, h.Sessions.RemoveExclusion)
}

// removeAt handles DELETE .../{index} for one of the session's lists.
func (h *Handlers) removeAt(w http.ResponseWriter, r *http.Request, remove func(id string, i int) (app.SessionView, error)) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		writeProblem(w, http.StatusBadRequest, "Invalid Index", "index must be a non-negative integer")
		return
	}
	v, err := remove(chi.URLParam(r, "id"), i)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type listItem struct {
	Text string `json:"text"`
}

func (h *Handlers) addInclusion(w http.ResponseWriter, r *http.Request) {
	h.addItem(w, r, h.Sessions.AddInclusion)
}

func (h *Handlers) addExclusion(w http.ResponseWriter, r *http.Request) {
	h.addItem(w, r, h.Sessions.AddExclusion)
}

func (h *Handlers) addItem(w http.ResponseWriter, r *http.Request, add func(id, text string) (app.SessionView, error)) {
	var in listItem
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", `expected {"text": "..."}`)
		return
	}
	v, err := add(chi.URLParam(r, "id"), in.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) toggleFlight(w http.ResponseWriter, r *http.Request) {
	var offer domain.FlightOffer
	if err := decodeBody(r, &offer); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be a flight offer JSON object")
		return
	}
	v, err := h.Sessions.ToggleFlight(chi.URLParam(r, "id"), offer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) next(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Next(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) previous(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Previous(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) discard(w http.ResponseWriter, r *http.Request) {
	v, err := h.Sessions.Discard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

/********** status **********/

func (h *Handlers) changeStatus(w http.ResponseWriter, r *http.Request) {
	var in app.StatusChange
	if err := decodeBody(r, &in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "body must be a status change JSON object")
		return
	}
	in.TripID = chi.URLParam(r, "tripId")

	err := h.Status.Change(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"tripId": in.TripID, "status": in.Status, "handover": in.Status == app.StatusConverted})
	case errors.Is(err, app.ErrHandoverFailed):
		// the status itself is stored
		writeJSON(w, http.StatusAccepted, map[string]any{"tripId": in.TripID, "status": in.Status, "handover": false, "warning": err.Error()})
	default:
		writeError(w, err)
	}
}
