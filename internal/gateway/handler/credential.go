package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"grantdraft/internal/credential"
)

// credentialStatus never carries the key itself.
type credentialStatus struct {
	Configured  bool              `json:"configured"`
	Source      credential.Source `json:"source"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Locked      bool              `json:"locked"`
	Persisted   *bool             `json:"persisted,omitempty"`
}

func (h *Handler) status() credentialStatus {
	cur := h.creds.Current()
	return credentialStatus{
		Configured:  !cur.Empty(),
		Source:      h.creds.Source(),
		Fingerprint: cur.Fingerprint(),
		Locked:      h.creds.Locked(),
	}
}

func (h *Handler) getCredential(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

func (h *Handler) putCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(w, r, maxJSONBody, &req); err != nil {
		h.writeError(w, err)
		return
	}
	persisted := true
	if err := h.creds.Save(r.Context(), req.APIKey); err != nil {
		if errors.Is(err, credential.ErrEmpty) || errors.Is(err, credential.ErrLocked) {
			h.writeError(w, err)
			return
		}
		h.log.Warn("credential kept in memory only", zap.Error(err))
		persisted = false
	}
	st := h.status()
	st.Persisted = &persisted
	writeJSON(w, http.StatusOK, st)
}
