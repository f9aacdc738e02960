package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sourcebook-ai/sourcebook/internal/api"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
)

type QueryService interface {
	Query(ctx context.Context, question string) (*domain.Message, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryRequestBody struct {
	Question string `json:"question"`
}

type QueryResponse struct {
	MessageID string `json:"message_id"`
	Answer    string `json:"answer"`
}

// Query handles POST /query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var body QueryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message, err := h.svc.Query(r.Context(), body.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, QueryResponse{
		MessageID: message.ID,
		Answer:    message.Answer,
	})
}
