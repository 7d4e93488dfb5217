package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/persistence"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance. Either store may be nil
// when the service runs without it.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, postgres: postgres, redis: redis}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

type dependencyCheck struct {
	name       string
	configured bool
	ping       func(context.Context) error
}

// Ready reports readiness. Dependencies that are not configured are listed
// as disabled and do not fail the probe.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := []dependencyCheck{
		{name: "postgres", configured: h.postgres.PoolHandle() != nil, ping: h.postgres.Ping},
		{name: "redis", configured: h.redis.Handle() != nil, ping: h.redis.Ping},
	}

	depStatus := fiber.Map{}
	ready := true
	for _, check := range checks {
		switch {
		case !check.configured:
			depStatus[check.name] = "disabled"
		case check.ping(ctx) != nil:
			depStatus[check.name] = "unreachable"
			ready = false
		default:
			depStatus[check.name] = "ok"
		}
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
