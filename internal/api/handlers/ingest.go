package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/vita-labs/recallai/internal/api"
	"github.com/vita-labs/recallai/internal/domain"
	"github.com/vita-labs/recallai/internal/service"
)

type IngestService interface {
	IngestUnit(ctx context.Context, unit domain.ContentUnit) (domain.IngestStatus, error)
	IngestBatch(ctx context.Context, units []domain.ContentUnit) []service.UnitOutcome
	IngestThread(ctx context.Context, units []domain.ContentUnit) []service.UnitOutcome
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type IngestResponse struct {
	UnitID string              `json:"unit_id"`
	Status domain.IngestStatus `json:"status"`
}

type BatchIngestRequest struct {
	Units []service.UnitRequest `json:"units"`
}

type BatchIngestResponse struct {
	Outcomes         []service.UnitOutcome `json:"outcomes"`
	Accepted         int                   `json:"accepted"`
	AlreadyProcessed int                   `json:"already_processed"`
	Skipped          int                   `json:"skipped"`
	Failed           int                   `json:"failed"`
}

// Ingest handles POST /ingest: one unit, acknowledged once claimed.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req service.UnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.svc.IngestUnit(r.Context(), req.ToDomain())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	httpStatus := http.StatusOK
	if status == domain.IngestAccepted {
		httpStatus = http.StatusAccepted
	}
	api.Success(w, httpStatus, IngestResponse{UnitID: req.UnitID, Status: status})
}

// IngestBatch handles POST /ingest/batch: independent units processed
// synchronously with per-unit accounting.
func (h *IngestHandler) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Units) == 0 {
		api.Error(w, http.StatusBadRequest, "units is required")
		return
	}

	outcomes := h.svc.IngestBatch(r.Context(), toDomainUnits(req.Units))
	api.Success(w, http.StatusOK, summarize(outcomes))
}

// IngestThread handles POST /ingest/thread: an ordered conversation
// merged into grouped chunks before embedding.
func (h *IngestHandler) IngestThread(w http.ResponseWriter, r *http.Request) {
	var req service.ThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Units) == 0 {
		api.HandleError(w, domain.ErrEmptyThread)
		return
	}

	outcomes := h.svc.IngestThread(r.Context(), toDomainUnits(req.Units))
	api.Success(w, http.StatusOK, summarize(outcomes))
}

func toDomainUnits(reqs []service.UnitRequest) []domain.ContentUnit {
	units := make([]domain.ContentUnit, 0, len(reqs))
	for _, r := range reqs {
		units = append(units, r.ToDomain())
	}
	return units
}

func summarize(outcomes []service.UnitOutcome) BatchIngestResponse {
	resp := BatchIngestResponse{Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case domain.IngestAccepted:
			resp.Accepted++
		case domain.IngestAlreadyProcessed:
			resp.AlreadyProcessed++
		case domain.IngestError:
			resp.Failed++
		default:
			resp.Skipped++
		}
	}
	return resp
}
