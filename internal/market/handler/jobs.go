package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"solesync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EnqueueJobRequest struct {
	Provider string `json:"provider" example:"stockx"`
	SKU      string `json:"sku" example:"DD1391-100"`
	Size     string `json:"size" example:"10.5"`
	Priority int    `json:"priority" example:"0"`
}

type EnqueueJobResponse struct {
	JobID string `json:"job_id"`
}

// EnqueueJob godoc
// @Summary Enqueue a single fetch job
// @Description Schedule a (provider, sku, size) fetch. Returns the existing job id if one is already in flight.
// @Tags Jobs
// @Accept json
// @Produce json
// @Param request body EnqueueJobRequest true "Job request"
// @Success 202 {object} EnqueueJobResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /jobs [post]
func (h *Handler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 512)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req EnqueueJobRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	provider := domain.Provider(strings.ToLower(strings.TrimSpace(req.Provider)))
	sku := strings.TrimSpace(req.SKU)

	if err := h.validator.ValidateEnqueue(provider, sku, req.Priority); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.service.EnqueueJob(r.Context(), provider, sku, strings.TrimSpace(req.Size), req.Priority)
	if err != nil {
		if errors.Is(err, domain.ErrNoMapping) {
			writeError(w, http.StatusNotFound, "sku has no catalog mapping for this provider")
			return
		}
		msg := "failed to enqueue job"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "EnqueueJob", "sku": sku, "provider": provider}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueJobResponse{JobID: id.String()})
}

type GetJobResponse struct {
	JobID      string    `json:"job_id"`
	Provider   string    `json:"provider" example:"stockx"`
	SKU        string    `json:"sku" example:"DD1391-100"`
	Size       string    `json:"size,omitempty" example:"10.5"`
	Priority   int       `json:"priority"`
	Status     string    `json:"status" example:"pending"`
	RetryCount int       `json:"retry_count"`
	NotBefore  time.Time `json:"not_before"`
	LastError  string    `json:"last_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetJob godoc
// @Summary Get a sync job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} GetJobResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /jobs/{id} [get]
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID format")
		return
	}

	job, err := h.service.JobByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		msg := "failed to get job"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "GetJob", "job": id}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusOK, GetJobResponse{
		JobID:      job.ID.String(),
		Provider:   job.Provider.String(),
		SKU:        job.SKU,
		Size:       job.SizeKey,
		Priority:   job.Priority,
		Status:     string(job.Status),
		RetryCount: job.RetryCount,
		NotBefore:  job.NotBefore,
		LastError:  job.LastError,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	})
}

// CancelJob godoc
// @Summary Cancel a pending sync job
// @Description Only pending jobs can be cancelled; running jobs finish or time out naturally.
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse "job is not pending"
// @Failure 500 {object} errorResponse
// @Router /jobs/{id} [delete]
func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job ID format")
		return
	}

	if err = h.service.CancelJob(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		if errors.Is(err, domain.ErrJobNotCancelable) {
			writeError(w, http.StatusConflict, "job is not pending")
			return
		}
		msg := "failed to cancel job"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "CancelJob", "job": id}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
