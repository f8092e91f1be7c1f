package httpapi

import (
	"net/http"

	"doctor-portal/internal/models"
	"doctor-portal/internal/session"
)

// OpenChat GET /cases/{id}/chat
func (h *PortalHandler) OpenChat(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	view, err := h.cases.OpenChat(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// SendMessage POST /cases/{id}/messages
func (h *PortalHandler) SendMessage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req models.SendMessageRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	msg, err := h.cases.SendMessage(r.Context(), sess, r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(msg))
}

// MarkRead POST /cases/{id}/read
func (h *PortalHandler) MarkRead(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := h.cases.MarkRead(r.Context(), sess, r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.unread != nil {
		h.unread.RefreshDoctor(sess.DoctorID)
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}
