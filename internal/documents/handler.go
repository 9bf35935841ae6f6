package documents

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-ops/meridian/internal/platform/httpx"
)

// Handler serves rendered PDFs.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/proposals/{id}/pdf", h.proposalPDF)
	r.Get("/projects/{id}/pdf", h.projectPDF)
}

func (h *Handler) proposalPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}

	pdf, filename, err := h.service.ProposalPDF(r.Context(), id)
	if err != nil {
		h.logger.Error("proposal pdf failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	servePDF(w, pdf, filename)
}

func (h *Handler) projectPDF(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}

	pdf, filename, err := h.service.ProjectPDF(r.Context(), id)
	if err != nil {
		h.logger.Error("project pdf failed", "error", err, "id", id)
		httpx.RespondError(w, err)
		return
	}
	servePDF(w, pdf, filename)
}

func servePDF(w http.ResponseWriter, pdf []byte, filename string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
