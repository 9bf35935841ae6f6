package projects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-ops/meridian/internal/platform/httpx"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ProjectService is the service surface the handler depends on.
type ProjectService interface {
	ConvertProposal(ctx context.Context, proposalID int64, req ConvertProposalRequest, actorID int64) (*Project, error)
	Create(ctx context.Context, req CreateProjectRequest, createdBy int64) (*Project, error)
	Update(ctx context.Context, id int64, req UpdateProjectRequest) (*Project, error)
	AddLine(ctx context.Context, projectID int64, req ProjectLineRequest) (*Project, error)
	RemoveLine(ctx context.Context, projectID, lineID int64) (*Project, error)
	SetLineStatus(ctx context.Context, projectID, lineID int64, status LineStatus) (*Project, error)
	RecordPayment(ctx context.Context, id int64, amount float64, actorID int64) (*Project, error)
	Start(ctx context.Context, id int64, actorID int64) (*Project, error)
	Complete(ctx context.Context, id int64, actorID int64) (*Project, error)
	Cancel(ctx context.Context, id int64, actorID int64) (*Project, error)
	Delete(ctx context.Context, id int64) error
	GetWithClient(ctx context.Context, id int64) (*ProjectWithClient, error)
	List(ctx context.Context, req ListProjectsRequest) ([]ProjectWithClient, int, error)
}

// Handler wires HTTP endpoints for project operations.
type Handler struct {
	logger      *slog.Logger
	service     ProjectService
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance. idempotency may be nil, in which
// case Idempotency-Key headers are ignored.
func NewHandler(logger *slog.Logger, service ProjectService, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		validator:   validator.New(),
	}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/proposals/{id}/convert", h.convert)

	r.Get("/projects", h.list)
	r.Post("/projects", h.create)
	r.Get("/projects/{id}", h.get)
	r.Patch("/projects/{id}", h.update)
	r.Delete("/projects/{id}", h.delete)

	r.Post("/projects/{id}/payments", h.recordPayment)
	r.Post("/projects/{id}/start", h.start)
	r.Post("/projects/{id}/complete", h.complete)
	r.Post("/projects/{id}/cancel", h.cancel)

	r.Post("/projects/{id}/lines", h.addLine)
	r.Patch("/projects/{id}/lines/{lineID}", h.setLineStatus)
	r.Delete("/projects/{id}/lines/{lineID}", h.removeLine)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	req := ConvertProposalRequest{}
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
	}

	key := r.Header.Get("Idempotency-Key")
	if h.idempotency != nil {
		if key == "" {
			key = uuid.NewString()
		}
		err := h.idempotency.CheckAndInsert(r.Context(), key, "proposal-convert")
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			httpx.Problem(w, http.StatusConflict, "Conflict", "request already processed")
			return
		}
		if err != nil {
			h.logger.Error("idempotency check failed", "error", err)
			httpx.RespondError(w, err)
			return
		}
	}

	actor := shared.IdentityFromContext(r.Context())
	project, err := h.service.ConvertProposal(r.Context(), proposalID, req, actor.UserID)
	if err != nil {
		// release the key so the caller can retry after fixing the request
		if h.idempotency != nil {
			_ = h.idempotency.Delete(r.Context(), key)
		}
		h.logger.Error("convert proposal failed", "error", err, "proposal_id", proposalID)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListProjectsRequest{Limit: 50}

	if v := r.URL.Query().Get("client_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ClientID = &id
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := ProjectStatus(v)
		req.Status = &status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	results, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list projects failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"data":  results,
		"total": total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.service.GetWithClient(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	actor := shared.IdentityFromContext(r.Context())
	project, err := h.service.Create(r.Context(), req, actor.UserID)
	if err != nil {
		h.logger.Error("create project failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, project)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	project, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update project failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	actor := shared.IdentityFromContext(r.Context())
	project, err := h.service.RecordPayment(r.Context(), id, req.Amount, actor.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Start)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, int64, int64) (*Project, error)) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	actor := shared.IdentityFromContext(r.Context())
	project, err := fn(r.Context(), id, actor.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	var req ProjectLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	project, err := h.service.AddLine(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add project line failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) setLineStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := h.parseID(w, r, "lineID")
	if !ok {
		return
	}

	var req struct {
		Status LineStatus `json:"status" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	project, err := h.service.SetLineStatus(r.Context(), id, lineID, req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := h.parseID(w, r, "lineID")
	if !ok {
		return
	}

	project, err := h.service.RemoveLine(r.Context(), id, lineID)
	if err != nil {
		h.logger.Error("remove project line failed", "error", err, "id", id, "line_id", lineID)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, project)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+param)
		return 0, false
	}
	return id, true
}
