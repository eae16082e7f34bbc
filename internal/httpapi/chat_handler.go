package httpapi

import (
	"net/http"

	"elderaid/internal/domain"
	"elderaid/internal/service"

	"go.uber.org/zap"
)

// ChatHandler 对话助手
type ChatHandler struct {
	svc          service.ChatService
	defaultLimit int
	logger       *zap.Logger
}

func NewChatHandler(svc service.ChatService, defaultLimit int, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, defaultLimit: defaultLimit, logger: logger}
}

// History 对话记录为空时返回开场白
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	limit := parseInt(r.URL.Query().Get("limit"), h.defaultLimit)
	msgs, err := h.svc.History(r.Context(), s, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(msgs) == 0 {
		msgs = []domain.ChatMessage{h.svc.Greeting()}
	}
	writeJSON(w, http.StatusOK, Ok(msgs))
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	s, err := sessionFromRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeError(w, h.logger, err)
		return
	}
	reply, err := h.svc.Send(r.Context(), s, payload.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reply))
}
