package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler exposes a Prometheus registry over HTTP.
type MetricsHandler struct {
	handler gin.HandlerFunc
}

func NewMetricsHandler(gatherer prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{
		handler: gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})),
	}
}

func (h *MetricsHandler) Serve(c *gin.Context) {
	h.handler(c)
}
