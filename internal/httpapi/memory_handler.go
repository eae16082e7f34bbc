package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

// MemoryHandler 回忆相册
type MemoryHandler struct {
	svc    service.MemoryService
	logger *zap.Logger
}

func NewMemoryHandler(svc service.MemoryService, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{svc: svc, logger: logger}
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	memories, err := h.svc.List(r.Context(), s)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(memories))
}

// Add 支持 JSON（已有 imageUri）或 multipart（image 文件 + caption/tags/timestamp 字段）
func (h *MemoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req service.AddMemoryRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, h.logger, domain.Invalid("body", err.Error()))
			return
		}
		req.ImageURI = r.FormValue("imageUri")
		req.Caption = r.FormValue("caption")
		req.Tags = splitTags(r.FormValue("tags"))
		if ts := r.FormValue("timestamp"); ts != "" {
			v, err := strconv.ParseInt(ts, 10, 64)
			if err != nil {
				writeError(w, h.logger, domain.Invalid("timestamp", "must be epoch milliseconds"))
				return
			}
			req.Timestamp = v
		}

		file, header, err := r.FormFile("image")
		switch {
		case err == nil:
			defer file.Close()
			req.Image = &service.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
				Body:        file,
			}
		case errors.Is(err, http.ErrMissingFile):
		default:
			writeError(w, h.logger, domain.Invalid("image", err.Error()))
			return
		}
	} else {
		var payload struct {
			ImageURI  string   `json:"imageUri"`
			Caption   string   `json:"caption"`
			Tags      []string `json:"tags"`
			Timestamp int64    `json:"timestamp"`
		}
		if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
			writeError(w, h.logger, err)
			return
		}
		req = service.AddMemoryRequest{
			ImageURI:  payload.ImageURI,
			Caption:   payload.Caption,
			Tags:      payload.Tags,
			Timestamp: payload.Timestamp,
		}
	}

	m, err := h.svc.Add(r.Context(), s, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
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

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
