package proposals

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-ops/meridian/internal/platform/httpx"
	"github.com/meridian-ops/meridian/internal/shared"
)

// ProposalService is the service surface the handler depends on.
type ProposalService interface {
	Create(ctx context.Context, req CreateProposalRequest, createdBy int64) (*Proposal, error)
	Update(ctx context.Context, id int64, req UpdateProposalRequest) (*Proposal, error)
	AddLine(ctx context.Context, proposalID int64, req ProposalLineRequest) (*Proposal, error)
	UpdateLine(ctx context.Context, proposalID, lineID int64, req ProposalLineRequest) (*Proposal, error)
	RemoveLine(ctx context.Context, proposalID, lineID int64) (*Proposal, error)
	Send(ctx context.Context, id int64, userID int64) (*Proposal, error)
	Reject(ctx context.Context, id int64, userID int64) (*Proposal, error)
	Delete(ctx context.Context, id int64) error
	GetWithClient(ctx context.Context, id int64) (*ProposalWithClient, error)
	List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithClient, int, error)
}

// Handler wires HTTP endpoints for proposal operations.
type Handler struct {
	logger    *slog.Logger
	service   ProposalService
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service ProposalService) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers proposal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/proposals", h.list)
	r.Post("/proposals", h.create)
	r.Get("/proposals/{id}", h.get)
	r.Patch("/proposals/{id}", h.update)
	r.Delete("/proposals/{id}", h.delete)

	r.Post("/proposals/{id}/lines", h.addLine)
	r.Put("/proposals/{id}/lines/{lineID}", h.updateLine)
	r.Delete("/proposals/{id}/lines/{lineID}", h.removeLine)

	r.Post("/proposals/{id}/send", h.send)
	r.Post("/proposals/{id}/reject", h.reject)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListProposalsRequest{Limit: 50}

	if v := r.URL.Query().Get("client_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.ClientID = &id
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := ProposalStatus(v)
		req.Status = &status
	}
	req.DateFrom = parseDate(r.URL.Query().Get("date_from"))
	req.DateTo = parseDate(r.URL.Query().Get("date_to"))
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
		h.logger.Error("list proposals failed", "error", err)
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

	proposal, err := h.service.GetWithClient(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	actor := shared.IdentityFromContext(r.Context())
	proposal, err := h.service.Create(r.Context(), req, actor.UserID)
	if err != nil {
		h.logger.Error("create proposal failed", "error", err)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, proposal)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	proposal, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update proposal failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
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

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	var req ProposalLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	proposal, err := h.service.AddLine(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add proposal line failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}
	lineID, ok := h.parseID(w, r, "lineID")
	if !ok {
		return
	}

	var req ProposalLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", shared.ErrValidation, err))
		return
	}

	proposal, err := h.service.UpdateLine(r.Context(), id, lineID, req)
	if err != nil {
		h.logger.Error("update proposal line failed", "error", err, "id", id, "line_id", lineID)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
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

	proposal, err := h.service.RemoveLine(r.Context(), id, lineID)
	if err != nil {
		h.logger.Error("remove proposal line failed", "error", err, "id", id, "line_id", lineID)
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	actor := shared.IdentityFromContext(r.Context())
	proposal, err := h.service.Send(r.Context(), id, actor.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r, "id")
	if !ok {
		return
	}

	actor := shared.IdentityFromContext(r.Context())
	proposal, err := h.service.Reject(r.Context(), id, actor.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, proposal)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+param)
		return 0, false
	}
	return id, true
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
