package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"grantdraft/internal/credential"
	"grantdraft/internal/genclient"
	"grantdraft/internal/ingest"
	"grantdraft/internal/prompt"
	"grantdraft/internal/session"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errUnknownStyle = errors.New("unknown style")

// classify maps domain errors to a status, a stable code and a user-facing
// message.
func classify(err error) (int, errorBody) {
	var verr *ingest.ValidationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, errorBody{"not_found", "세션을 찾을 수 없습니다."}
	case errors.Is(err, session.ErrTitleRequired):
		return http.StatusUnprocessableEntity, errorBody{"title_required", session.NoticeTitleRequired}
	case errors.As(err, &verr) && errors.Is(err, ingest.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, errorBody{"unsupported_media_type", verr.Notice}
	case errors.As(err, &verr) && errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, errorBody{"file_too_large", verr.Notice}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{"invalid_argument", verr.Notice}
	case errors.Is(err, session.ErrCredentialRequired):
		return http.StatusPreconditionRequired, errorBody{"credential_required", session.NoticeCredentialNeeded}
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, errorBody{"busy", "제안서를 생성하는 중입니다."}
	case errors.Is(err, session.ErrNotAwaiting):
		return http.StatusConflict, errorBody{"invalid_state", "API 키 입력을 기다리는 상태가 아닙니다."}
	case errors.Is(err, credential.ErrLocked):
		return http.StatusForbidden, errorBody{"credential_locked", "설정된 API 키는 변경할 수 없습니다."}
	case errors.Is(err, credential.ErrEmpty):
		return http.StatusBadRequest, errorBody{"invalid_argument", session.NoticeCredentialNeeded}
	case errors.Is(err, genclient.ErrGenerationFailed):
		return http.StatusBadGateway, errorBody{"generation_failed", session.NoticeGenerationFailed}
	case errors.Is(err, errUnknownStyle):
		return http.StatusBadRequest, errorBody{"invalid_argument", "지원하지 않는 문체입니다: " + joinStyles()}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{"invalid_argument", err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{"internal", "internal error"}
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func joinStyles() string {
	out := ""
	for i, s := range prompt.Styles() {
		if i > 0 {
			out += ", "
		}
		out += string(s)
	}
	return out
}
