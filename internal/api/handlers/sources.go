package handlers

import (
	"context"
	"net/http"

	"github.com/sourcebook-ai/sourcebook/internal/api"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
)

type SourceLister interface {
	List(ctx context.Context) ([]*domain.Source, error)
}

type SourcesHandler struct {
	repo SourceLister
}

func NewSourcesHandler(repo SourceLister) *SourcesHandler {
	return &SourcesHandler{repo: repo}
}

// List handles GET /items, returning sources oldest first
func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	sources, err := h.repo.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, sourceToResponse(s))
	}
	api.JSON(w, http.StatusOK, out)
}
