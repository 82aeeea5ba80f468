// Package handler serves the proposal session API over JSON, multipart and
// websocket.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"grantdraft/internal/credential"
	"grantdraft/internal/session"
)

// CredentialProvider is the process-wide key holder.
type CredentialProvider interface {
	session.CredentialSource
	Source() credential.Source
}

type Handler struct {
	sessions *session.Registry
	creds    CredentialProvider
	log      *zap.Logger
}

func New(sessions *session.Registry, creds CredentialProvider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessions, creds: creds, log: logger}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.deleteSession)
	mux.HandleFunc("PUT /api/sessions/{id}/agency", h.putAgency)
	mux.HandleFunc("PUT /api/sessions/{id}/project", h.putProject)
	mux.HandleFunc("PUT /api/sessions/{id}/style", h.putStyle)
	mux.HandleFunc("POST /api/sessions/{id}/attachment", h.postAttachment)
	mux.HandleFunc("DELETE /api/sessions/{id}/attachment", h.deleteAttachment)
	mux.HandleFunc("GET /api/sessions/{id}/prompt", h.getPrompt)
	mux.HandleFunc("GET /api/sessions/{id}/proposal", h.getProposal)
	mux.HandleFunc("POST /api/sessions/{id}/generate", h.generate)
	mux.HandleFunc("POST /api/sessions/{id}/credential", h.provideCredential)
	mux.HandleFunc("POST /api/sessions/{id}/credential/cancel", h.cancelCredential)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.events)
	mux.HandleFunc("GET /api/credential", h.getCredential)
	mux.HandleFunc("PUT /api/credential", h.putCredential)
	mux.HandleFunc("GET /healthz", h.healthz)
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

const maxJSONBody = 1 << 20

var errBadRequest = errors.New("bad request")

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
