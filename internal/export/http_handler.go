package export

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves workbook downloads.
type Handler struct {
	service *Service
	log     *logrus.Logger
}

// NewHandler creates a new export handler.
func NewHandler(service *Service, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register wires the export routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/export/org.xlsx", h.handleOrgExport)
	mux.HandleFunc("GET /api/export/audit.xlsx", h.handleAuditExport)
}

func (h *Handler) handleOrgExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.OrgWorkbook(r.Context())
	if err != nil {
		h.log.WithError(err).Error("org export failed")
		http.Error(w, "failed to build export", http.StatusInternalServerError)
		return
	}
	writeWorkbook(w, "org", data)
}

func (h *Handler) handleAuditExport(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	data, err := h.service.AuditWorkbook(r.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("audit export failed")
		http.Error(w, "failed to build export", http.StatusInternalServerError)
		return
	}
	writeWorkbook(w, "audit", data)
}

func writeWorkbook(w http.ResponseWriter, name string, data []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
