package httpapi

import (
	"net/http"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

// PreferencesHandler 老人端设置
type PreferencesHandler struct {
	svc    service.PreferencesService
	logger *zap.Logger
}

func NewPreferencesHandler(svc service.PreferencesService, logger *zap.Logger) *PreferencesHandler {
	return &PreferencesHandler{svc: svc, logger: logger}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.svc.Get(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

// Update 只修改请求体中出现的字段
func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var patch domain.PreferencesPatch
	if err := readBodyJSON(r, maxBodyBytes, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.svc.Update(r.Context(), s, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}
