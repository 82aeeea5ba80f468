package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"grantdraft/internal/ingest"
	"grantdraft/internal/metrics"
	"grantdraft/internal/session"
)

const multipartOverhead = 1 << 20

type dataURLRequest struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

// postAttachment accepts a multipart "file" part or a JSON data URL.
func (h *Handler) postAttachment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var (
		snap session.Snapshot
		err  error
	)
	switch mediaType {
	case "multipart/form-data":
		snap, err = h.attachMultipart(w, r, s)
	case "application/json":
		var req dataURLRequest
		// base64 inflates by 4/3
		limit := ingest.MaxFileSize/3*4 + multipartOverhead
		if err = decodeJSON(w, r, limit, &req); err == nil {
			snap, err = s.AttachDataURL(req.Name, req.DataURL)
		}
	default:
		err = fmt.Errorf("%w: content type %q", errBadRequest, mediaType)
	}
	if err != nil {
		metrics.AttachmentsTotal.WithLabelValues(attachmentOutcome(err)).Inc()
		h.writeError(w, err)
		return
	}
	metrics.AttachmentsTotal.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) attachMultipart(w http.ResponseWriter, r *http.Request, s *session.Session) (session.Snapshot, error) {
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxFileSize+multipartOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		return session.Snapshot{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return session.Snapshot{}, fmt.Errorf("%w: missing file part", errBadRequest)
		}
		if err != nil {
			return session.Snapshot{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		defer part.Close()
		contentType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		return s.Attach(part.FileName(), contentType, -1, part)
	}
}

func (h *Handler) deleteAttachment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.RemoveAttachment())
}

func attachmentOutcome(err error) string {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedType):
		return "unsupported_type"
	case errors.Is(err, ingest.ErrTooLarge):
		return "too_large"
	default:
		return "invalid"
	}
}
