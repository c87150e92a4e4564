package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/wagateway/gateway-server-go/internal/errors"
	"github.com/wagateway/gateway-server-go/internal/httputil"
	"github.com/wagateway/gateway-server-go/internal/service"
)

type MessageSender interface {
	SendMessage(ctx context.Context, phone, text string) (*service.SendResult, error)
}

type MessageHandler struct {
	sender MessageSender
}

func NewMessageHandler(sender MessageSender) *MessageHandler {
	return &MessageHandler{sender: sender}
}

func (h *MessageHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Send)
	return r
}

type sendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	MessageID string `json:"messageId,omitempty"`
}

// POST /send-message
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	if req.Phone == "" {
		httputil.WriteError(w, apperrors.MissingRequired("phone"))
		return
	}
	if req.Message == "" {
		httputil.WriteError(w, apperrors.MissingRequired("message"))
		return
	}

	result, err := h.sender.SendMessage(r.Context(), req.Phone, req.Message)
	if err != nil {
		log.Error().
			Err(err).
			Str("code", string(apperrors.GetCode(err))).
			Msg("failed to send message")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		Status:    "success",
		Message:   fmt.Sprintf("Message sent to +%s", req.Phone),
		MessageID: result.MessageID,
	})
}
