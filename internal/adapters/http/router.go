package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/anderzubi/orthopin/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 240 requests per minute per IP. Drag updates arrive at
	// pointer-move cadence, so the ceiling is higher than a read-only API.
	app.Use(limiter.New(limiter.Config{
		Max:        240,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error":   "rate limit exceeded",
				"message": "too many requests, please try again later",
			})
		},
		SkipFailedRequests: false,
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Singular /v1/overlay/latest predates the plural collection routes.
	app.Use(DeprecationMiddleware([]DeprecatedRoute{
		{
			Path:        "/v1/overlay/latest",
			SunsetDate:  time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
			Alternative: "/v1/overlays/latest",
		},
	}))

	// Health & readiness (no timeout — fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// REST API v1 — 15s per-request timeout
	v1 := app.Group("/v1")
	v1.Get("/overlays", timeout.NewWithContext(ListOverlaysHandler(deps), 15*time.Second))
	v1.Post("/overlays", timeout.NewWithContext(CreateOverlayHandler(deps), 15*time.Second))
	v1.Get("/overlays/latest", timeout.NewWithContext(LatestOverlayHandler(deps), 15*time.Second))
	v1.Get("/overlays/:id", timeout.NewWithContext(GetOverlayHandler(deps), 15*time.Second))
	v1.Patch("/overlays/:id", timeout.NewWithContext(UpdateOverlayHandler(deps), 15*time.Second))
	v1.Delete("/overlays/:id", timeout.NewWithContext(DeleteOverlayHandler(deps), 15*time.Second))
	v1.Put("/overlays/:id/corners", timeout.NewWithContext(UpdateCornersHandler(deps), 15*time.Second))
	v1.Put("/overlays/:id/visibility", timeout.NewWithContext(SetVisibilityHandler(deps), 15*time.Second))
	v1.Get("/overlays/:id/kml", timeout.NewWithContext(OverlayKMLHandler(deps), 15*time.Second))
	v1.Get("/audit", timeout.NewWithContext(AuditTrailHandler(deps), 15*time.Second))
	v1.Get("/stats", timeout.NewWithContext(StatsHandler(deps), 15*time.Second))

	// Deprecated singular alias
	v1.Get("/overlay/latest", timeout.NewWithContext(LatestOverlayHandler(deps), 15*time.Second))

	// Alignment session — interactive, so short 5s timeouts
	al := v1.Group("/alignment")
	al.Get("/", AlignmentStatusHandler(deps))
	al.Post("/image", timeout.NewWithContext(SelectImageHandler(deps), 5*time.Second))
	al.Post("/upload", timeout.NewWithContext(BeginUploadHandler(deps), 5*time.Second))
	al.Post("/edit/:id", timeout.NewWithContext(BeginEditHandler(deps), 5*time.Second))
	al.Post("/drag/start", StartDragHandler(deps))
	al.Post("/drag", DragHandler(deps))
	al.Post("/drag/end", EndDragHandler(deps))
	al.Post("/rotation", RotationHandler(deps))
	al.Post("/anchor", AnchorHandler(deps))
	al.Post("/complete", timeout.NewWithContext(CompleteAlignmentHandler(deps), 15*time.Second))
	al.Post("/submit", timeout.NewWithContext(SubmitUploadHandler(deps), 15*time.Second))
	al.Post("/reopen", ReopenAlignmentHandler(deps))
	al.Post("/reset", ResetAlignmentHandler(deps))
	al.Post("/cancel", timeout.NewWithContext(CancelAlignmentHandler(deps), 5*time.Second))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
