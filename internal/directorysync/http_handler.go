package directorysync

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/domain"
)

// Handler serves the sync endpoints.
type Handler struct {
	service *Service
	log     *logrus.Logger
}

// NewHandler creates a new sync handler.
func NewHandler(service *Service, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register wires the sync routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sync/members", h.handleSyncMembers)
	mux.HandleFunc("POST /api/sync/profile-schema", h.handleSyncProfileFields)
}

func (h *Handler) handleSyncMembers(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, h.service.SyncMembers)
}

func (h *Handler) handleSyncProfileFields(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, h.service.SyncProfileFields)
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request, sync func(ctx context.Context, token string) (Result, error)) {
	token := r.Header.Get("X-Directory-Token")

	result, err := sync(r.Context(), token)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"
		if domain.IsExternal(err) {
			status = http.StatusBadGateway
			message = err.Error()
		}
		h.log.WithError(err).Error("sync failed")
		http.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		h.log.WithError(err).Error("failed to encode sync result")
	}
}
