package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

const (
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultReportDays = 30
	reportDateLayout  = "2006-01-02"
)

// ReportHandler 报表导出
type ReportHandler struct {
	svc    service.ReportService
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

func NewReportHandler(svc service.ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{svc: svc, loc: loc, logger: logger, now: time.Now}
}

// MedicationAdherence GET ?from=YYYY-MM-DD&to=YYYY-MM-DD，to 当天包含在内；默认最近 30 天
func (h *ReportHandler) MedicationAdherence(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	from, to, err := h.reportRange(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data, err := h.svc.MedicationAdherence(r.Context(), s, from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("medications_%s_%s.xlsx", from.Format(reportDateLayout), to.AddDate(0, 0, -1).Format(reportDateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// reportRange 返回 [from, to) 的本地零点边界
func (h *ReportHandler) reportRange(r *http.Request) (time.Time, time.Time, error) {
	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)

	to := today.AddDate(0, 0, 1)
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := time.ParseInLocation(reportDateLayout, v, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.Invalid("to", "must be YYYY-MM-DD")
		}
		to = d.AddDate(0, 0, 1)
	}

	from := to.AddDate(0, 0, -defaultReportDays)
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := time.ParseInLocation(reportDateLayout, v, h.loc)
		if err != nil {
			return time.Time{}, time.Time{}, domain.Invalid("from", "must be YYYY-MM-DD")
		}
		from = d
	}
	return from, to, nil
}
