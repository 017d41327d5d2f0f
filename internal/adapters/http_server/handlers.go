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

	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
)

// Handlers is the thin translation layer over the core services: no
// business rules live here.
type Handlers struct {
	Sessions    *app.SessionService
	Integration *app.IntegrationService
	Preview     *app.PreviewService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Post("/v1/hotels/{hotelID}/onboarding", h.createSession)
	s.mux.Get("/v1/hotels/{hotelID}", h.getHotel)
	s.mux.Get("/v1/hotels/{hotelID}/score", h.hotelScore)

	s.mux.Put("/v1/onboarding/{sessionID}/steps/{stepID}", h.updateStep)
	s.mux.Post("/v1/onboarding/{sessionID}/steps/{stepID}/complete", h.completeStep)
	s.mux.Get("/v1/onboarding/{sessionID}/progress", h.progress)
	s.mux.Get("/v1/onboarding/{sessionID}/score-preview", h.scorePreview)
	s.mux.Post("/v1/onboarding/{sessionID}/complete", h.completeSession)
	s.mux.Post("/v1/onboarding/steps/{stepID}/validate", h.validateStep)

	s.mux.Post("/v1/legacy/{legacyID}/migrate", h.migrateLegacy)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var vErr *domain.ValidationError
	var iErr *domain.IntegrationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		writeProblem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.As(err, &vErr):
		writeProblem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
	case errors.As(err, &iErr):
		writeProblem(w, http.StatusInternalServerError, "Integration Failed", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "unexpected error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// userID comes from the auth layer in front of this service; here it is
// just a trusted header.
func userID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	return id, err == nil && id > 0
}

func pathInt64(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := pathInt64(r, "hotelID")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "hotelID must be a number")
		return
	}
	uid, ok := userID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Missing User", "X-User-ID header required")
		return
	}
	sess, err := h.Sessions.CreateSession(r.Context(), hotelID, uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (h *Handlers) updateStep(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Missing User", "X-User-ID header required")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Body", err.Error())
		return
	}
	strict := r.URL.Query().Get("strict") == "true"
	res, err := h.Sessions.UpdateStep(r.Context(), uid,
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "stepID"), payload, strict)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusUnprocessableEntity, vErr.Result)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) completeStep(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Missing User", "X-User-ID header required")
		return
	}
	err := h.Sessions.MarkStepCompleted(r.Context(), uid,
		chi.URLParam(r, "sessionID"), chi.URLParam(r, "stepID"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) progress(w http.ResponseWriter, r *http.Request) {
	p, err := h.Sessions.GetProgress(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) validateStep(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Body", err.Error())
		return
	}
	res := h.Sessions.ValidateStepPayload(chi.URLParam(r, "stepID"), payload)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) scorePreview(w http.ResponseWriter, r *http.Request) {
	out, err := h.Preview.PreviewDraftScore(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) completeSession(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Missing User", "X-User-ID header required")
		return
	}
	res, err := h.Sessions.CompleteSession(r.Context(), uid, chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) getHotel(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := pathInt64(r, "hotelID")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "hotelID must be a number")
		return
	}
	resp, err := h.Preview.GetHotel(r.Context(), hotelID)
	if err != nil {
		writeError(w, err)
		return
	}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getHotel body")
	}
}

func (h *Handlers) hotelScore(w http.ResponseWriter, r *http.Request) {
	hotelID, ok := pathInt64(r, "hotelID")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "hotelID must be a number")
		return
	}
	out, err := h.Preview.PreviewHotelScore(r.Context(), hotelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) migrateLegacy(w http.ResponseWriter, r *http.Request) {
	legacyID, ok := pathInt64(r, "legacyID")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "legacyID must be a number")
		return
	}
	res, err := h.Integration.MigrateLegacyHotel(r.Context(), legacyID)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.AlreadyCompleted {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
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
