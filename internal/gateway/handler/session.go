package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"grantdraft/internal/genclient"
	"grantdraft/internal/proposal"
	"grantdraft/internal/session"
)

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	if r.ContentLength > 0 {
		var form proposal.Form
		if err := decodeJSON(w, r, maxJSONBody, &form); err != nil {
			_ = h.sessions.Delete(s.ID())
			h.writeError(w, err)
			return
		}
		if _, err := s.ApplyForm(form); err != nil {
			_ = h.sessions.Delete(s.ID())
			h.writeError(w, fmt.Errorf("%w: %v", errUnknownStyle, err))
			return
		}
	}
	w.Header().Set("Location", "/api/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) putAgency(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var agency proposal.AgencyInfo
	if err := decodeJSON(w, r, maxJSONBody, &agency); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.SetAgency(agency))
}

func (h *Handler) putProject(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var project proposal.ProjectInfo
	if err := decodeJSON(w, r, maxJSONBody, &project); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.SetProject(project))
}

type styleRequest struct {
	Style string `json:"style"`
}

func (h *Handler) putStyle(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req styleRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		h.writeError(w, err)
		return
	}
	snap, err := s.SetStyle(req.Style)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: %v", errUnknownStyle, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) getPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeText(w, "text/plain", s.Prompt())
}

func (h *Handler) getProposal(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	text, ok := s.Result()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{"not_found", "생성된 제안서가 없습니다."})
		return
	}
	if download, _ := strconv.ParseBool(r.URL.Query().Get("download")); download {
		w.Header().Set("Content-Disposition", `attachment; filename="proposal.md"`)
	}
	writeText(w, "text/markdown", text)
}

// generate starts a submission. With ?wait=true the response carries the
// settled snapshot instead of 202.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondSubmission(w, r, s, s.Submit(r.Context()))
}

type credentialRequest struct {
	APIKey string `json:"apiKey"`
}

func (h *Handler) provideCredential(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req credentialRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSubmission(w, r, s, s.ProvideCredential(r.Context(), req.APIKey))
}

func (h *Handler) cancelCredential(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.CancelCredential(); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handler) respondSubmission(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); !wait {
		writeJSON(w, http.StatusAccepted, s.Snapshot())
		return
	}
	snap, err := s.Await(r.Context())
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		h.writeError(w, err)
		return
	}
	if snap.Notice.Message == session.NoticeGenerationFailed {
		h.writeError(w, genclient.ErrGenerationFailed)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
