package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"pdfedit/internal/service"
)

// Services groups the application services the HTTP layer depends on.
type Services struct {
	Documents service.DocumentService
	Pages     service.PageService
	Renders   service.RenderService
	Edits     service.EditService
	Exports   service.ExportService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/documents")
	docs.Get("/", ListDocuments(svc.Documents))
	docs.Post("/", UploadDocument(svc.Documents))
	docs.Get("/:id", GetDocument(svc.Documents))
	docs.Delete("/:id", DeleteDocument(svc.Documents))
	docs.Get("/:id/download", DownloadDocument(svc.Documents))

	docs.Post("/:id/pages/reorder", ReorderPages(svc.Pages))
	docs.Get("/:id/pages/:index/render", RenderPage(svc.Renders))
	docs.Post("/:id/pages/:index/rotate", RotatePage(svc.Pages))
	docs.Post("/:id/pages/:index/duplicate", DuplicatePage(svc.Pages))
	docs.Delete("/:id/pages/:index", DeletePage(svc.Pages))

	docs.Get("/:id/edits", GetEdits(svc.Edits))
	docs.Put("/:id/edits", SaveEdits(svc.Edits))
	docs.Get("/:id/export", ExportDocument(svc.Exports))
}
