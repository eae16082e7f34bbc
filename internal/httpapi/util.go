package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"elderaid/internal/domain"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return domain.Invalid("body", err.Error())
	}
	return nil
}

// writeError 按错误类型映射 HTTP 状态码
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSchema):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Fail(err.Error()))
	default:
		logger.Error("Request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("internal server error"))
	}
}

// sessionFromRequest X-Elder-ID 必填；X-User-ID / X-User-Role 可选
func sessionFromRequest(r *http.Request) (domain.Session, error) {
	s := domain.Session{
		ElderID: strings.TrimSpace(r.Header.Get("X-Elder-ID")),
		ActorID: strings.TrimSpace(r.Header.Get("X-User-ID")),
		Role:    domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role")))),
	}
	if err := s.Validate(); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// splitPath 去掉前缀后按 / 拆分："abc/log" -> ["abc", "log"]
func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
