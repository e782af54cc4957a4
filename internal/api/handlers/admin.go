package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vita-labs/recallai/internal/api"
	"github.com/vita-labs/recallai/internal/domain"
)

type AdminService interface {
	DeleteUnit(ctx context.Context, unitID string) (int64, error)
	RedactUnit(ctx context.Context, unitID string) (int64, error)
	RecordFeedback(ctx context.Context, entry *domain.FeedbackEntry) error
}

type AdminHandler struct {
	svc AdminService
}

func NewAdminHandler(svc AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

type UnitTargetRequest struct {
	UnitID string `json:"unit_id"`
}

type DeleteResponse struct {
	UnitID        string `json:"unit_id"`
	ChunksDeleted int64  `json:"chunks_deleted"`
}

type RedactResponse struct {
	UnitID         string `json:"unit_id"`
	ChunksRedacted int64  `json:"chunks_redacted"`
}

type FeedbackRequest struct {
	RequesterID string   `json:"requester_id"`
	Question    string   `json:"question"`
	Answer      string   `json:"answer"`
	Sources     []string `json:"sources,omitempty"`
	Verdict     string   `json:"verdict"`
}

// Delete handles POST /admin/delete: remove every trace of a unit.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req UnitTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UnitID == "" {
		api.Error(w, http.StatusBadRequest, "unit_id is required")
		return
	}

	deleted, err := h.svc.DeleteUnit(r.Context(), req.UnitID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, DeleteResponse{UnitID: req.UnitID, ChunksDeleted: deleted})
}

// Redact handles POST /admin/redact: blank stored text, keep the rows.
func (h *AdminHandler) Redact(w http.ResponseWriter, r *http.Request) {
	var req UnitTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UnitID == "" {
		api.Error(w, http.StatusBadRequest, "unit_id is required")
		return
	}

	redacted, err := h.svc.RedactUnit(r.Context(), req.UnitID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, RedactResponse{UnitID: req.UnitID, ChunksRedacted: redacted})
}

// Feedback handles POST /feedback: record a verdict on an answer.
func (h *AdminHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry := &domain.FeedbackEntry{
		RequesterID: req.RequesterID,
		Question:    req.Question,
		Answer:      req.Answer,
		Sources:     req.Sources,
		Verdict:     req.Verdict,
	}
	if err := domain.ValidateFeedbackEntry(entry); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.svc.RecordFeedback(r.Context(), entry); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, map[string]int64{"id": entry.ID})
}
