package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/anderzubi/orthopin/internal/adapters/postgres"
	"github.com/anderzubi/orthopin/internal/adapters/valkey"
	"github.com/anderzubi/orthopin/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Overlays  *usecases.OverlayService
	Alignment *usecases.AlignmentService
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
}

// actorContext tags the request context with the acting user for audit
// entries. The frontend sends X-Actor; absent that the entry is anonymous.
func actorContext(c *fiber.Ctx) context.Context {
	actor := c.Get("X-Actor")
	if actor == "" {
		return c.UserContext()
	}
	return usecases.WithActor(c.UserContext(), actor)
}
