package httpapi

import (
	"net/http"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/models"
	"doctor-portal/internal/session"
)

// PendingCases GET /cases/pending
func (h *PortalHandler) PendingCases(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	page, size := pageParams(r)
	out, err := h.cases.Pending(r.Context(), sess, page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// MyCases GET /cases/my-cases?status=
func (h *PortalHandler) MyCases(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	page, size := pageParams(r)
	out, err := h.cases.MyCases(r.Context(), sess, models.CaseListParams{
		Page:     page,
		PageSize: size,
		Status:   caselogic.CaseStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// History GET /cases/history
func (h *PortalHandler) History(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	page, size := pageParams(r)
	out, err := h.cases.History(r.Context(), sess, page, size)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(out))
}

// GetCase GET /cases/{id}
func (h *PortalHandler) GetCase(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	view, err := h.cases.Get(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// ClaimCase POST /cases/{id}/claim
func (h *PortalHandler) ClaimCase(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	view, err := h.cases.Claim(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// SubmitDiagnosis POST /cases/{id}/diagnosis（创建或在修改窗口内更新）
func (h *PortalHandler) SubmitDiagnosis(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req models.SubmitDiagnosisRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	view, err := h.cases.SubmitDiagnosis(r.Context(), sess, r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}
