package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"quotegen/internal/catalog"
	"quotegen/internal/http/middleware"
	"quotegen/internal/service"
)

// Services are the use cases exposed over HTTP. Archive is nil when no
// database and object storage are configured.
type Services struct {
	Generator service.GenerationService
	Archive   service.ArchiveService
	Catalog   catalog.Source
	Vendors   *service.VendorDirectory
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers only translate between HTTP and the services.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc Services) {
	// OpenAPI document and Swagger UI
	app.Get("/openapi.yaml", OpenAPISpec("openapi.yaml"))
	app.Get("/docs/*", swagger.New(swagger.Config{Title: "quotegen API", URL: "/openapi.yaml"}))

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/catalog", ListCatalog(svc.Catalog))
	app.Get("/vendors", ListVendors(svc.Vendors))

	app.Post("/totals", ComputeTotals(svc.Generator, svc.Catalog, svc.Vendors))
	quotes := app.Group("/quotes", middleware.NoStore())
	quotes.Post("/", GenerateQuotes(svc.Generator, svc.Catalog, svc.Vendors))
	quotes.Post("/:kind/download", DownloadQuote(svc.Generator, svc.Catalog, svc.Vendors))

	docs := app.Group("/documents", middleware.NoStore())
	docs.Get("/", ListDocuments(svc.Archive))
	docs.Get("/:id", GetDocument(svc.Archive))
	docs.Get("/:id/download", DownloadDocument(svc.Archive))
	docs.Get("/:id/link", DocumentLink(svc.Archive))
	docs.Delete("/:id", DeleteDocument(svc.Archive))
}

// OpenAPISpec serves the hand-kept API description.
func OpenAPISpec(path string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile(path)
	}
}

// HealthCheck pings the database when one is configured. Without a database
// the service still generates documents, so it reports healthy.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db == nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy", "database": "disabled"})
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is the backward-compatible simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
