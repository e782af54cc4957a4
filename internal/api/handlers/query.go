package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vita-labs/recallai/internal/api"
	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/service"
)

type QueryService interface {
	Answer(ctx context.Context, req service.QueryRequest) (*domain.Answer, error)
}

type QueryHandler struct {
	svc QueryService
}

func NewQueryHandler(svc QueryService) *QueryHandler {
	return &QueryHandler{svc: svc}
}

type QueryAPIRequest struct {
	Question       string   `json:"question"`
	RequesterID    string   `json:"requester_id"`
	RequesterRoles []string `json:"requester_roles,omitempty"`
	ChannelID      string   `json:"channel_id,omitempty"`
	TopK           int      `json:"top_k,omitempty"`
}

type CitationResponse struct {
	UnitID    string `json:"unit_id"`
	ChannelID string `json:"channel_id"`
	URL       string `json:"url"`
}

type QueryAPIResponse struct {
	Answer     string             `json:"answer"`
	Citations  []CitationResponse `json:"citations"`
	Confidence float64            `json:"confidence"`
}

// Query handles POST /query: retrieval plus generation for one question.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := h.svc.Answer(r.Context(), service.QueryRequest{
		Question:       req.Question,
		RequesterID:    req.RequesterID,
		RequesterRoles: req.RequesterRoles,
		ChannelID:      req.ChannelID,
		TopK:           req.TopK,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	citations := make([]CitationResponse, 0, len(answer.Citations))
	for _, c := range answer.Citations {
		citations = append(citations, CitationResponse{
			UnitID:    c.UnitID,
			ChannelID: c.ChannelID,
			URL:       c.URL,
		})
	}
	api.Success(w, http.StatusOK, QueryAPIResponse{
		Answer:     answer.Text,
		Citations:  citations,
		Confidence: answer.Confidence,
	})
}
