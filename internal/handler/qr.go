package handler

import (
	"net/http"
	"strconv"

	"github.com/wagateway/gateway-server-go/internal/httputil"
)

type QRSource interface {
	PNG(size int) ([]byte, error)
}

type QRHandler struct {
	source QRSource
	size   int
}

func NewQRHandler(source QRSource, size int) *QRHandler {
	return &QRHandler{source: source, size: size}
}

// GET /qr
func (h *QRHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	png, err := h.source.PNG(h.size)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
