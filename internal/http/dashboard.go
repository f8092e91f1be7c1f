package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"doctor-portal/internal/service"
	"doctor-portal/internal/session"

	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Dashboard GET /dashboard
func (h *PortalHandler) Dashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	d, err := h.dashboard.Dashboard(r.Context(), sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(d))
}

// ExportHistory GET /history/export：导出已完成病例为 xlsx
func (h *PortalHandler) ExportHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	data, err := h.exporter.Export(r.Context(), sess)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, service.ExportFilename(h.now())))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("Failed to write export", zap.Error(err))
	}
}
