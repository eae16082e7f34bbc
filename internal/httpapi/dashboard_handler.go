package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"elderaid/internal/models"
	"elderaid/internal/service"
	"elderaid/internal/store"

	"go.uber.org/zap"
)

// DashboardCache 看板缓存（由 elderaid-dashboard 写入）
type DashboardCache interface {
	GetDashboard(ctx context.Context, elderID string) (*models.FamilyDashboard, error)
	UpdateDashboardCache(ctx context.Context, elderID string, d *models.FamilyDashboard) error
}

// DashboardHandler 家属看板与老人首页
type DashboardHandler struct {
	svc    service.DashboardService
	cache  DashboardCache
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardHandler cache 为 nil 时每次实时计算；loc 决定"今天"的边界，需与聚合服务一致
func NewDashboardHandler(svc service.DashboardService, cache DashboardCache, loc *time.Location, logger *zap.Logger) *DashboardHandler {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardHandler{svc: svc, cache: cache, loc: loc, logger: logger, now: time.Now}
}

// Dashboard 优先读缓存，未命中时实时计算并回写缓存
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.cache != nil && r.URL.Query().Get("fresh") != "true" {
		d, err := h.cache.GetDashboard(r.Context(), s.ElderID)
		if err == nil {
			writeJSON(w, http.StatusOK, Ok(d))
			return
		}
		if !errors.Is(err, store.ErrMiss) {
			h.logger.Warn("Failed to read dashboard cache, building live",
				zap.String("elder_id", s.ElderID),
				zap.Error(err),
			)
		}
	}

	d, err := h.svc.Build(r.Context(), s, h.now().In(h.loc))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.UpdateDashboardCache(r.Context(), s.ElderID, d); err != nil {
			h.logger.Warn("Failed to write dashboard cache",
				zap.String("elder_id", s.ElderID),
				zap.Error(err),
			)
		}
	}
	writeJSON(w, http.StatusOK, Ok(d))
}

func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	home, err := h.svc.Home(r.Context(), s, h.now().In(h.loc))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(home))
}
