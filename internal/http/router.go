package httpapi

import "net/http"

const apiPrefix = "/portal/api/v1"

// Router 基于 ServeMux 的路由（Go 1.22 方法+路径模式）
type Router struct {
	mux *http.ServeMux
}

func NewRouter() *Router {
	return &Router{mux: http.NewServeMux()}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Register 注册门户全部路由
func (h *PortalHandler) Register(r *Router) {
	r.Handle("GET /health", h.Health)

	r.Handle("POST "+apiPrefix+"/auth/login", h.Login)
	r.Handle("POST "+apiPrefix+"/auth/logout", h.requireSession(h.Logout))
	r.Handle("GET "+apiPrefix+"/settings", h.requireSession(h.GetSettings))

	r.Handle("GET "+apiPrefix+"/cases/pending", h.requireSession(h.PendingCases))
	r.Handle("GET "+apiPrefix+"/cases/my-cases", h.requireSession(h.MyCases))
	r.Handle("GET "+apiPrefix+"/cases/history", h.requireSession(h.History))
	r.Handle("GET "+apiPrefix+"/cases/{id}", h.requireSession(h.GetCase))
	r.Handle("POST "+apiPrefix+"/cases/{id}/claim", h.requireSession(h.ClaimCase))
	r.Handle("POST "+apiPrefix+"/cases/{id}/diagnosis", h.requireSession(h.SubmitDiagnosis))

	r.Handle("GET "+apiPrefix+"/cases/{id}/chat", h.requireSession(h.OpenChat))
	r.Handle("POST "+apiPrefix+"/cases/{id}/messages", h.requireSession(h.SendMessage))
	r.Handle("POST "+apiPrefix+"/cases/{id}/read", h.requireSession(h.MarkRead))
	r.Handle("GET "+apiPrefix+"/chat/unread", h.requireSession(h.UnreadCounts))
	r.Handle("POST "+apiPrefix+"/presence", h.requireSession(h.Presence))

	r.Handle("GET "+apiPrefix+"/dashboard", h.requireSession(h.Dashboard))
	r.Handle("GET "+apiPrefix+"/history/export", h.requireSession(h.ExportHistory))
}
