package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"solesync/internal/domain"

	"github.com/sirupsen/logrus"
)

type RefreshRequest struct {
	SKU      string `json:"sku" example:"DD1391-100"`
	Priority int    `json:"priority" example:"10"`
}

type RefreshResponse struct {
	JobIDs []string `json:"job_ids"`
}

// Refresh godoc
// @Summary Refresh market prices for a SKU
// @Description Enqueue one fetch job per mapped provider. Idempotent per in-flight (provider, sku, size).
// @Tags Prices
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh request"
// @Success 202 {object} RefreshResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse "sku has no catalog mapping"
// @Failure 500 {object} errorResponse
// @Router /prices/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 512)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req RefreshRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sku := strings.TrimSpace(req.SKU)

	if err := h.validator.ValidateRefresh(sku, req.Priority); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ids, err := h.service.RefreshSKU(r.Context(), sku, req.Priority)
	if err != nil {
		if errors.Is(err, domain.ErrNoMapping) {
			writeError(w, http.StatusNotFound, "sku has no catalog mapping")
			return
		}
		msg := "failed to schedule refresh"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "Refresh", "sku": sku}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	res := RefreshResponse{JobIDs: make([]string, 0, len(ids))}
	for _, id := range ids {
		res.JobIDs = append(res.JobIDs, id.String())
	}
	writeJSON(w, http.StatusAccepted, res)
}
