package handler

import (
	"net/http"

	"github.com/wagateway/gateway-server-go/internal/model"
)

type StatusSource interface {
	Status() model.SessionStatus
}

type StatusHandler struct {
	source StatusSource
}

func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// GET /status
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.source.Status())
}
