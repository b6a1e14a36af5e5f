package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"solesync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type FxRateResponse struct {
	Date   string  `json:"date" example:"2025-01-10"`
	From   string  `json:"from" example:"USD"`
	To     string  `json:"to" example:"GBP"`
	Factor float64 `json:"factor" example:"0.79"`
}

// FxRate godoc
// @Summary Get the conversion factor between two currencies for a date
// @Description Falls back to the most recent prior date; a date preceding all recorded rates is an error, never an assumed rate.
// @Tags FX
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Param from path string true "Source currency"
// @Param to path string true "Target currency"
// @Success 200 {object} FxRateResponse
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse "no rate at or before date"
// @Failure 500 {object} errorResponse
// @Router /fx/{date}/{from}/{to} [get]
func (h *Handler) FxRate(w http.ResponseWriter, r *http.Request) {
	rawDate := chi.URLParam(r, "date")
	date, err := time.Parse(time.DateOnly, rawDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	from := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "from")))
	to := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "to")))

	if err = h.validator.ValidateCurrency(from); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err = h.validator.ValidateCurrency(to); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	factor, err := h.fxService.RateFor(r.Context(), date, from, to)
	if err != nil {
		if errors.Is(err, domain.ErrNoFxRate) {
			writeError(w, http.StatusNotFound, "no fx rate at or before date")
			return
		}
		if errors.Is(err, domain.ErrUnsupportedCcy) {
			writeError(w, http.StatusBadRequest, "currency not supported")
			return
		}
		msg := "failed to resolve fx rate"
		logrus.WithError(err).WithFields(logrus.Fields{"handler": "FxRate", "from": from, "to": to}).Error(msg)
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusOK, FxRateResponse{Date: rawDate, From: from, To: to, Factor: factor})
}
