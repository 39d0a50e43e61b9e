package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"pdfedit/docs"
	"pdfedit/internal/compose"
	"pdfedit/internal/config"
	"pdfedit/internal/database"
	"pdfedit/internal/database/migration"
	"pdfedit/internal/docstore"
	handlers "pdfedit/internal/http/handler"
	"pdfedit/internal/http/middleware"
	"pdfedit/internal/logging"
	"pdfedit/internal/metrics"
	"pdfedit/internal/otel"
	"pdfedit/internal/rendercache"
	"pdfedit/internal/repository/postgres"
	"pdfedit/internal/service"
	"pdfedit/internal/storage"
)

// @title PDF Editor API
// @version 1.0
// @description Page editing, rendering and annotation export for uploaded PDFs.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	log := logging.New(os.Stdout, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("tracing_init_failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, migration.Dialect(cfg.Database.Driver), cfg.Database.Host); err != nil {
		log.WithError(err).Fatal("migration_failed")
	}

	objStore, err := newObjectStore(cfg.Storage, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize object storage")
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("failed to register metrics")
	}
	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("failed to register http metrics")
	}

	docRepo := postgres.NewDocumentPostgres(db)
	editRepo := postgres.NewEditModelPostgres(db)
	store := docstore.New(docRepo, objStore)
	cache := rendercache.New(objStore, m, log)
	slots := semaphore.NewWeighted(int64(max(1, cfg.Render.MaxConcurrency)))
	engine := compose.NewEngine(compose.OptionsFrom(cfg.Editor))

	svc := handlers.Services{
		Documents: service.NewDocumentService(store, docRepo, editRepo, cache, service.DocumentOptions{
			MaxUploadBytes: int64(cfg.UploadMaxBytes),
			PresignExpiry:  cfg.Storage.PresignExpiry(),
		}),
		Pages:   service.NewPageService(store, cache, log),
		Renders: service.NewRenderService(store, cache, slots, cfg.Render),
		Edits:   service.NewEditService(store, editRepo),
		Exports: service.NewExportService(store, editRepo, engine, slots, m, log),
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// multipart framing needs headroom above the file itself
		BodyLimit: cfg.UploadMaxBytes + 1<<20,
	})

	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.LoggerWith(log))
	app.Use(promMW.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	handlers.RegisterRoutes(app, db, svc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting_down")
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("listening")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("failed to start server")
	}
}

func newObjectStore(cfg config.StorageConfig, log logrus.FieldLogger) (storage.Storage, error) {
	if cfg.Driver == "memory" {
		log.Warn("object storage is in memory; documents are lost on restart")
		return storage.NewMemory(), nil
	}
	return storage.NewMinIO(cfg.MinIO)
}
