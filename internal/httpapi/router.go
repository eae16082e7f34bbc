package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// APIPrefix 老人端与家属端共用的接口前缀
const APIPrefix = "/api/v1/elder"

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// methods 按请求方法分发，未注册的方法返回 405
func methods(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		h, ok := handlers[req.Method]
		if !ok {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]any{"status": "ok"}))
	})
}

// RegisterMedicationRoutes
//
//	GET    /medications
//	POST   /medications
//	GET    /medications/today
//	DELETE /medications/{id}
//	POST   /medications/{id}/log
//	GET    /medications/{id}/latest
func (r *Router) RegisterMedicationRoutes(h *MedicationHandler) {
	base := APIPrefix + "/medications"
	r.Handle(base, methods(map[string]http.HandlerFunc{
		http.MethodGet:  h.List,
		http.MethodPost: h.Save,
	}))

	r.Handle(base+"/", func(w http.ResponseWriter, req *http.Request) {
		parts := splitPath(req.URL.Path, base)
		switch {
		case len(parts) == 1 && parts[0] == "today":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Today(w, req)
		case len(parts) == 1:
			if req.Method != http.MethodDelete {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Delete(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "log":
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.LogIntake(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "latest":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Latest(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterContactRoutes
//
//	GET    /contacts
//	POST   /contacts
//	GET    /contacts/primary
//	DELETE /contacts/{id}
//	POST   /contacts/{id}/primary
func (r *Router) RegisterContactRoutes(h *ContactHandler) {
	base := APIPrefix + "/contacts"
	r.Handle(base, methods(map[string]http.HandlerFunc{
		http.MethodGet:  h.List,
		http.MethodPost: h.Save,
	}))

	r.Handle(base+"/", func(w http.ResponseWriter, req *http.Request) {
		parts := splitPath(req.URL.Path, base)
		switch {
		case len(parts) == 1 && parts[0] == "primary":
			if req.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Primary(w, req)
		case len(parts) == 1:
			if req.Method != http.MethodDelete {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Delete(w, req, parts[0])
		case len(parts) == 2 && parts[1] == "primary":
			if req.Method != http.MethodPost && req.Method != http.MethodPut {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.SetPrimary(w, req, parts[0])
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// RegisterMemoryRoutes
//
//	GET    /memories
//	POST   /memories（JSON 或 multipart）
//	DELETE /memories/{id}
func (r *Router) RegisterMemoryRoutes(h *MemoryHandler) {
	base := APIPrefix + "/memories"
	r.Handle(base, methods(map[string]http.HandlerFunc{
		http.MethodGet:  h.List,
		http.MethodPost: h.Add,
	}))

	r.Handle(base+"/", func(w http.ResponseWriter, req *http.Request) {
		parts := splitPath(req.URL.Path, base)
		if len(parts) != 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if req.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Delete(w, req, parts[0])
	})
}

func (r *Router) RegisterChatRoutes(h *ChatHandler) {
	r.Handle(APIPrefix+"/chat", methods(map[string]http.HandlerFunc{
		http.MethodGet:  h.History,
		http.MethodPost: h.Send,
	}))
}

// RegisterStatusRoutes
//
//	GET   /status
//	PATCH /status
//	POST  /status/location
//	POST  /status/heartbeat
func (r *Router) RegisterStatusRoutes(h *StatusHandler) {
	base := APIPrefix + "/status"
	r.Handle(base, methods(map[string]http.HandlerFunc{
		http.MethodGet:   h.Get,
		http.MethodPatch: h.Update,
		http.MethodPut:   h.Update,
	}))
	r.Handle(base+"/location", methods(map[string]http.HandlerFunc{
		http.MethodPost: h.ReportLocation,
	}))
	r.Handle(base+"/heartbeat", methods(map[string]http.HandlerFunc{
		http.MethodPost: h.Heartbeat,
	}))
}

// RegisterPreferencesRoutes
//
//	GET /preferences
//	PUT /preferences
func (r *Router) RegisterPreferencesRoutes(h *PreferencesHandler) {
	r.Handle(APIPrefix+"/preferences", methods(map[string]http.HandlerFunc{
		http.MethodGet:   h.Get,
		http.MethodPut:   h.Update,
		http.MethodPatch: h.Update,
	}))
}

func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.Handle(APIPrefix+"/dashboard", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.Dashboard,
	}))
	r.Handle(APIPrefix+"/home", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.Home,
	}))
}

func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle(APIPrefix+"/reports/medications", methods(map[string]http.HandlerFunc{
		http.MethodGet: h.MedicationAdherence,
	}))
}
