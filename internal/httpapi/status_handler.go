package httpapi

import (
	"net/http"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

// StatusHandler 状态快照
type StatusHandler struct {
	svc    service.StatusService
	logger *zap.Logger
}

func NewStatusHandler(svc service.StatusService, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{svc: svc, logger: logger}
}

// Get 尚无快照时 result 为 null
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.svc.Get(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *StatusHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var patch domain.StatusPatch
	if err := readBodyJSON(r, maxBodyBytes, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.svc.Update(r.Context(), s, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *StatusHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var payload struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if payload.Latitude == nil || payload.Longitude == nil {
		writeError(w, h.logger, domain.Invalid("location", "latitude and longitude are required"))
		return
	}
	st, err := h.svc.ReportLocation(r.Context(), s, *payload.Latitude, *payload.Longitude)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}

func (h *StatusHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.svc.Heartbeat(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(st))
}
