package httpapi

import (
	"net/http"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

// MedicationHandler 药品与服药记录
type MedicationHandler struct {
	svc    service.MedicationService
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewMedicationHandler(svc service.MedicationService, loc *time.Location, logger *zap.Logger) *MedicationHandler {
	if loc == nil {
		loc = time.Local
	}
	return &MedicationHandler{svc: svc, loc: loc, logger: logger, now: time.Now}
}

func (h *MedicationHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	meds, err := h.svc.List(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(meds))
}

func (h *MedicationHandler) Save(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var m domain.Medication
	if err := readBodyJSON(r, maxBodyBytes, &m); err != nil {
		writeError(w, h.logger, err)
		return
	}
	saved, err := h.svc.Save(r.Context(), s, m)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(saved))
}

func (h *MedicationHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
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

func (h *MedicationHandler) LogIntake(w http.ResponseWriter, r *http.Request, id string) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var payload struct {
		Status domain.LogStatus `json:"status"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	log, err := h.svc.LogIntake(r.Context(), s, id, payload.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(log))
}

func (h *MedicationHandler) Today(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	items, err := h.svc.Today(r.Context(), s, h.now().In(h.loc))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(items))
}

// Latest 没有记录时 result 为 null
func (h *MedicationHandler) Latest(w http.ResponseWriter, r *http.Request, id string) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	log, err := h.svc.Latest(r.Context(), s, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(log))
}
