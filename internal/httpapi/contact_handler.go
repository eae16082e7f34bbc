package httpapi

import (
	"net/http"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

// ContactHandler 紧急联系人
type ContactHandler struct {
	svc    service.ContactService
	logger *zap.Logger
}

func NewContactHandler(svc service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{svc: svc, logger: logger}
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	contacts, err := h.svc.List(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(contacts))
}

func (h *ContactHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var c domain.EmergencyContact
	if err := readBodyJSON(r, maxBodyBytes, &c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	saved, err := h.svc.Save(r.Context(), s, c)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), s, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"id": id}))
}

func (h *ContactHandler) SetPrimary(w http.ResponseWriter, r *http.Request, id string) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	contacts, err := h.svc.SetPrimary(r.Context(), s, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(contacts))
}

// Primary 没有主联系人时 result 为 null
func (h *ContactHandler) Primary(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	c, err := h.svc.Primary(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(c))
}
