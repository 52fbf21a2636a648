package orgchart

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Handler serves the read-only org views.
type Handler struct {
	service *Service
	log     *logrus.Logger
}

// NewHandler creates a new org chart handler.
func NewHandler(service *Service, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register wires the org chart routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/org", h.handleTree)
	mux.HandleFunc("GET /api/profile-schema", h.handleProfileSchema)
}

func (h *Handler) handleTree(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Tree(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to build org tree")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, data)
}

func (h *Handler) handleProfileSchema(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ProfileSchema(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to load profile schema")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSONBytes(w, data)
}

func writeJSONBytes(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
