package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// InitMetrics builds the prometheus middleware for the given service name.
// Each call gets its own registry so repeated construction (tests, restarts)
// never trips duplicate collector registration.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	return fiberprometheus.NewWithRegistry(prometheus.NewRegistry(), serviceName, "http", "", nil)
}

// MetricsMiddleware adapts the prometheus collector into a fiber handler.
func MetricsMiddleware(p *fiberprometheus.FiberPrometheus) fiber.Handler {
	return p.Middleware
}
