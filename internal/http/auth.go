package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"doctor-portal/internal/apiclient"
	"doctor-portal/internal/models"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

type loginRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DeviceFingerprint string `json:"deviceFingerprint"`
}

// LoginResult 登录结果；token 为门户会话令牌，不是后端 idToken
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	DoctorID  string          `json:"doctorId"`
	Email     string          `json:"email"`
	FullName  string          `json:"fullName"`
	Role      models.UserRole `json:"role"`
}

// Login POST /auth/login
func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, Fail("email and password are required"))
		return
	}

	sess, err := h.sessions.Login(r.Context(), req.Email, req.Password, req.DeviceFingerprint)
	if errors.Is(err, apiclient.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, Fail(credentialsMessage(err)))
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if h.unread != nil {
		h.unread.Track(sess)
	}

	h.logger.Info("Doctor signed in",
		zap.String("doctor_id", sess.DoctorID),
		zap.String("session_id", sess.ID),
	)
	writeJSON(w, http.StatusOK, Ok(LoginResult{
		Token:     sess.ID,
		ExpiresAt: sess.ExpiresAt,
		DoctorID:  sess.DoctorID,
		Email:     sess.Email,
		FullName:  sess.FullName,
		Role:      sess.Role,
	}))
}

// Logout POST /auth/logout
func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if h.unread != nil {
		h.unread.Untrack(sess.ID)
	}
	if err := h.sessions.Logout(r.Context(), sess); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// GetSettings GET /settings
func (h *PortalHandler) GetSettings(w http.ResponseWriter, r *http.Request, _ *session.Session) {
	writeJSON(w, http.StatusOK, Ok(h.settings))
}

type presenceRequest struct {
	Foreground bool `json:"foreground"`
}

// Presence POST /presence：客户端前后台切换，后台时暂停未读轮询
func (h *PortalHandler) Presence(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req presenceRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if h.unread != nil {
		h.unread.SetPresence(sess, req.Foreground)
	}
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"foreground": req.Foreground}))
}

// UnreadCounts GET /chat/unread
func (h *PortalHandler) UnreadCounts(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if h.unread == nil {
		writeJSON(w, http.StatusOK, Ok(models.UnreadCounts{UnreadByCaseID: map[string]int{}}))
		return
	}
	counts, err := h.unread.Counts(r.Context(), sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(counts))
}

const invalidCredentialsMessage = "invalid email or password"

// credentialsMessage 登录 401 的提示：后端未给出原因时使用固定文案，不沿用会话过期提示
func credentialsMessage(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && (apiErr.Message != "" || len(apiErr.Errors) > 0) {
		return apiErr.UserMessage()
	}
	return invalidCredentialsMessage
}
