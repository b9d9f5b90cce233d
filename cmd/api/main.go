package main

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"quotegen/internal/catalog"
	"quotegen/internal/config"
	"quotegen/internal/convert"
	"quotegen/internal/database"
	"quotegen/internal/database/migration"
	"quotegen/internal/docxtpl"
	handlers "quotegen/internal/http/handler"
	"quotegen/internal/http/middleware"
	"quotegen/internal/ledger"
	"quotegen/internal/model"
	"quotegen/internal/notify"
	"quotegen/internal/otel"
	"quotegen/internal/repository/postgres"
	"quotegen/internal/service"
	"quotegen/internal/storage"
	"quotegen/internal/templates"
	"quotegen/internal/totals"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	profile, err := config.LoadProfile(cfg.ProfilePath)
	if err != nil {
		log.Fatalf("failed to load profile: %v", err)
	}
	vendorProfiles, err := profile.VendorProfiles()
	if err != nil {
		log.Fatalf("invalid vendors: %v", err)
	}
	vendors := service.NewVendorDirectory(vendorProfiles, profile.DefaultVendor)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	// Object storage backs the archive, and optionally templates and the catalog.
	var objStore storage.Storage
	if cfg.MinIO.Configured() {
		if objStore, err = storage.NewMinIO(ctx, cfg.MinIO); err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	}

	// The archive needs both the database and object storage.
	var db *sql.DB
	var archive service.ArchiveService
	if cfg.Database.Configured() {
		if db, err = database.NewPostgres(ctx, cfg.Database); err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		if objStore != nil {
			archive = service.NewArchiveService(objStore, postgres.NewDocumentPostgres(db))
		}
	}
	if archive == nil {
		logger.Info("archive.disabled")
	}

	var src catalog.Source = catalog.StaticSource{Catalog: catalog.FromProfile(profile.Catalog, logger)}
	switch {
	case cfg.Catalog.Path != "":
		src = &catalog.XLSXSource{Open: catalog.FileOpener(cfg.Catalog.Path), Sheet: cfg.Catalog.Sheet, Logger: logger}
	case cfg.Catalog.StorageKey != "" && objStore != nil:
		src = &catalog.XLSXSource{Open: catalog.StorageOpener(objStore, cfg.Catalog.StorageKey), Sheet: cfg.Catalog.Sheet, Logger: logger}
	}
	src = catalog.NewCachedSource(src, cfg.Catalog.TTL(), logger)

	names := templates.Names{
		model.KindQuotation:  cfg.Templates.Quotation,
		model.KindSupplySpec: cfg.Templates.Supply,
		model.KindWorksSpec:  cfg.Templates.Works,
	}
	var tpl templates.Store = templates.NewFSStore(os.DirFS(cfg.Templates.Dir), names)
	if cfg.Templates.Source == "storage" {
		if objStore == nil {
			log.Fatalf("TEMPLATES_SOURCE=storage requires MinIO settings")
		}
		tpl = templates.NewStorageStore(objStore, cfg.Templates.Prefix, names)
	}

	var sink ledger.Sink
	if cfg.Ledger.Path != "" {
		sink = ledger.NewXLSXSink(cfg.Ledger.Path, cfg.Ledger.Sheet, loc)
	}

	var notifier notify.Notifier
	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegram(cfg.Telegram)
		if err != nil {
			// Delivery is optional; generation keeps working without it.
			logger.Error("notify.telegram.init.failed", "error", err)
		} else {
			notifier = tg
		}
	}

	var converter convert.Converter
	if cfg.Converter.Enabled {
		converter = convert.NewLibreOffice(cfg.Converter.Binary, time.Duration(cfg.Converter.TimeoutSec)*time.Second)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMW, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatalf("failed to register generation metrics: %v", err)
	}

	gen := service.NewGenerationService(service.GeneratorDeps{
		Calculator: totals.NewCalculator(profile.Classifier()),
		Templates:  tpl,
		Populator: &docxtpl.Populator{
			Sentinels:  profile.Sentinels,
			BoldLabels: profile.BoldLabels,
		},
		Presentation: service.PresentationFromProfile(profile, loc),
		Archive:      archive,
		Ledger:       sink,
		Notifier:     notifier,
		Converter:    converter,
		Metrics:      metrics,
		Logger:       logger,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    8 * 1024 * 1024,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics"
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(promMW.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, handlers.Services{
		Generator: gen,
		Archive:   archive,
		Catalog:   src,
		Vendors:   vendors,
	})

	go func() {
		<-ctx.Done()
		logger.Info("server.shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server.shutdown.failed", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("otel.shutdown.failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
