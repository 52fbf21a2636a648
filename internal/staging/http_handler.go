package staging

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/auth"
	"github.com/rpattn/orgstage/internal/domain"
	"github.com/rpattn/orgstage/internal/middleware"
)

// Handler exposes the staging engine over HTTP.
type Handler struct {
	service *Service
	log     *logrus.Logger
}

// NewHTTPHandler wraps the staging service with HTTP endpoints.
func NewHTTPHandler(service *Service, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the staging routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/staging/manager-move", h.stageManagerMove)
	mux.HandleFunc("POST /api/staging/profile-update", h.stageProfileUpdate)
	mux.HandleFunc("GET /api/staging/diff", h.listStaged)
	mux.HandleFunc("POST /api/staging/apply", h.applyAll)
	mux.HandleFunc("POST /api/staging/revert/{changeId}", h.revert)
	mux.HandleFunc("GET /api/audit", h.listAudit)
}

type managerMoveRequest struct {
	UserID       string  `json:"userId"`
	OldManagerID *string `json:"oldManagerId"`
	NewManagerID *string `json:"newManagerId"`
}

type profileUpdateRequest struct {
	UserID string                       `json:"userId"`
	Fields map[string]domain.FieldValue `json:"fields"`
}

type stageResponse struct {
	ChangeID uuid.UUID `json:"changeId"`
	Message  string    `json:"message"`
}

// stagedChangeView annotates a draft change with the target member's
// identity for the diff display.
type stagedChangeView struct {
	domain.DraftChange
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

func (h *Handler) stageManagerMove(w http.ResponseWriter, r *http.Request) {
	var req managerMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}
	actorID := auth.ActorOrSystem(r.Context())

	changeID, err := h.service.StageManagerReassignment(r.Context(), actorID, strings.TrimSpace(req.UserID), req.OldManagerID, req.NewManagerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, stageResponse{ChangeID: changeID, Message: "manager change staged"})
}

func (h *Handler) stageProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.NewValidationError("invalid request body"))
		return
	}
	actorID := auth.ActorOrSystem(r.Context())

	changeID, err := h.service.StageProfileUpdate(r.Context(), actorID, strings.TrimSpace(req.UserID), req.Fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, stageResponse{ChangeID: changeID, Message: "profile update staged"})
}

func (h *Handler) listStaged(w http.ResponseWriter, r *http.Request) {
	changes, err := h.service.ListStaged(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, h.annotateChanges(r, changes))
}

// annotateChanges resolves member names through the per-request loader so N
// staged changes cost one batched member lookup.
func (h *Handler) annotateChanges(r *http.Request, changes []domain.DraftChange) []stagedChangeView {
	views := make([]stagedChangeView, len(changes))
	loader := middleware.MemberLoaderFromContext(r.Context())

	thunks := make([]dataloader.Thunk, len(changes))
	for i, change := range changes {
		views[i] = stagedChangeView{DraftChange: change}
		if loader != nil {
			thunks[i] = loader.Load(r.Context(), dataloader.StringKey(change.MemberID))
		}
	}
	for i, thunk := range thunks {
		if thunk == nil {
			continue
		}
		value, err := thunk()
		if err != nil {
			h.log.WithError(err).WithField("member", changes[i].MemberID).Warn("failed to resolve member for diff")
			continue
		}
		if member, ok := value.(domain.Member); ok {
			views[i].UserName = member.Name
			views[i].UserEmail = member.Email
		}
	}
	return views
}

func (h *Handler) applyAll(w http.ResponseWriter, r *http.Request) {
	actorID := auth.ActorOrSystem(r.Context())
	results, err := h.service.ApplyAll(r.Context(), actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, results)
}

func (h *Handler) revert(w http.ResponseWriter, r *http.Request) {
	changeID, err := uuid.Parse(r.PathValue("changeId"))
	if err != nil {
		h.writeError(w, domain.NewValidationError("invalid change id"))
		return
	}
	actorID := auth.ActorOrSystem(r.Context())

	result, err := h.service.Revert(r.Context(), changeID, actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, result)
}

func (h *Handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			h.writeError(w, domain.NewValidationError("invalid limit"))
			return
		}
		limit = parsed
	}
	entries, err := h.service.ListAudit(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, entries)
}

func parsePositiveInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, domain.NewValidationError("limit must be positive")
	}
	return value, nil
}

type successEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type errorEnvelope struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Status: "success", Data: data})
}

// writeError maps the error taxonomy onto HTTP status codes: validation 400,
// not-found 404, conflict 409, external 502, anything else 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	env := errorEnvelope{Status: "error", Message: err.Error()}
	status := http.StatusInternalServerError

	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		env.Fields = verr.Fields
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsConflict(err):
		status = http.StatusConflict
	case domain.IsExternal(err):
		status = http.StatusBadGateway
	default:
		h.log.WithError(err).Error("unexpected error handling staging request")
		env.Message = "internal error"
	}
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
