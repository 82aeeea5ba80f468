package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"grantdraft/internal/gateway/handler"
	"grantdraft/internal/gateway/middleware"
)

func NewMux(h *handler.Handler, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.CORS(middleware.Metrics(logger)(mux))
}
