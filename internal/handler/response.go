package handler

import (
	"net/http"

	"github.com/wagateway/gateway-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}
