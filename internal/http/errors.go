package httpapi

import (
	"errors"
	"net/http"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/service"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

// writeError 将服务层错误映射为 HTTP 状态码与 Result
func (h *PortalHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		gateErr  *caselogic.GateError
		conflict *service.ClaimConflictError
		rejected *service.RejectedError
	)

	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired),
		errors.Is(err, apiclient.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, Result[any]{
			Code:    ResultTokenExpired,
			Type:    "error",
			Message: "session expired, please sign in again",
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, FailWith(ResultClaimConflict, conflict.Message, conflict.Case))
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusConflict, FailWith(ResultStale, apiclient.UserMessage(rejected.Err), rejected.Case))
	case errors.As(err, &gateErr):
		writeJSON(w, http.StatusForbidden, FailWith[any](ResultGateDenied, gateErr.Reason, map[string]any{
			"action": gateErr.Action,
		}))
	case errors.Is(err, session.ErrNotDoctor):
		writeJSON(w, http.StatusForbidden, Fail("only doctors can sign in to the portal"))
	case errors.Is(err, service.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, apiclient.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail(apiclient.UserMessage(err)))
	case errors.Is(err, apiclient.ErrForbidden):
		writeJSON(w, http.StatusForbidden, Fail(apiclient.UserMessage(err)))
	case errors.Is(err, apiclient.ErrConflict), errors.Is(err, apiclient.ErrRejected):
		status := apiclient.StatusCode(err)
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, Fail(apiclient.UserMessage(err)))
	case errors.Is(err, apiclient.ErrTransport), errors.Is(err, apiclient.ErrDecode):
		h.logger.Warn("Backend unavailable",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, Fail("case service is unavailable, please retry"))
	default:
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, Fail("internal error"))
	}
}
