package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/tony-angelo/aletheia-codex/config"
	"github.com/tony-angelo/aletheia-codex/internal/repositories/reviewitem"
	"github.com/tony-angelo/aletheia-codex/pkg/database"
	"github.com/tony-angelo/aletheia-codex/pkg/graph"
	"github.com/tony-angelo/aletheia-codex/pkg/kafka"
	"github.com/tony-angelo/aletheia-codex/pkg/logging"
	"github.com/tony-angelo/aletheia-codex/pkg/middleware"
	"github.com/tony-angelo/aletheia-codex/pkg/review"
	healthroutes "github.com/tony-angelo/aletheia-codex/pkg/routes/health"
	reviewroutes "github.com/tony-angelo/aletheia-codex/pkg/routes/review"
	"github.com/tony-angelo/aletheia-codex/pkg/startup"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing"
	"github.com/tony-angelo/aletheia-codex/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := initTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing, continuing without it")
	}
	if shutdownTracing != nil {
		defer shutdownTracing()
	}

	pg := &postgresDependency{cfg: cfg, logger: logger}
	gr := &graphDependency{cfg: cfg, logger: logger}
	kf := &kafkaDependency{cfg: cfg, logger: logger}
	srv := &serverDependency{cfg: cfg, logger: logger}

	var checker *healthroutes.Checker

	// The kafka consumer handler and the HTTP handler both need components
	// built from the other dependencies, so they are wired lazily.
	kf.handler = func(ctx context.Context, msg *kafka.IncomingMessage) error {
		repo := reviewitem.NewRepository(pg.db, logger)
		return review.NewIngestor(repo, logger).HandleMessage(ctx, msg)
	}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(pg)
	boot.AddDependency(gr)
	boot.AddDependency(kf)
	boot.AddDependency(&wiringDependency{
		build: func(ctx context.Context) error {
			e, c, err := buildServer(cfg, logger, pg.db, pg.raw, gr.client, kf.producer)
			if err != nil {
				return err
			}
			checker = c
			srv.handler = e
			return nil
		},
	})
	boot.AddDependency(srv)

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	if checker != nil {
		checker.SetReady(true)
	}
	logger.Infof("%s started on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutting down")

	if checker != nil {
		checker.SetReady(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// wiringDependency builds components that need every infra dependency up
type wiringDependency struct {
	build func(ctx context.Context) error
}

func (d *wiringDependency) GetName() string     { return "wiring" }
func (d *wiringDependency) DependsOn() []string { return []string{"postgres", "graph", "kafka"} }

func (d *wiringDependency) Start(ctx context.Context) error { return d.build(ctx) }
func (d *wiringDependency) Stop(ctx context.Context) error  { return nil }

func buildServer(cfg config.Config, logger ectologger.Logger, db database.DB, raw *sqlx.DB, graphClient *graph.Client, producer *kafka.Producer) (*echo.Echo, *healthroutes.Checker, error) {
	repo := reviewitem.NewRepository(db, logger)
	knowledge := graph.NewKnowledgeService(graphClient, logger)
	workflow := review.NewWorkflow(repo, knowledge, producer, logger)
	processor := review.NewBatchProcessor(workflow, logger)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, nil, err
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return nil, nil, err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, db); err != nil {
		return nil, nil, err
	}
	if err := ectoinject.RegisterInstance[*review.Workflow](container, workflow); err != nil {
		return nil, nil, err
	}
	if err := ectoinject.RegisterInstance[*review.BatchProcessor](container, processor); err != nil {
		return nil, nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(containerMiddleware(container))

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		authmw, err := middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return nil, nil, err
		}
		api.Use(authmw)
	}
	reviewroutes.Register(api.Group("/review"))

	checker := healthroutes.NewChecker(raw, graphClient, version)
	checker.RegisterRoutes(e)

	return e, checker, nil
}

func containerMiddleware(container ectocontainer.DIContainer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, err := ectoinject.SetActiveContainer(req.Context(), container.GetContainerID())
			if err != nil {
				return err
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

func initTracing(ctx context.Context, cfg config.Config) (func(), error) {
	if !cfg.TracingEnabled {
		tracer := otel.Tracer(cfg.AppName)
		tracing.SetTracer(tracer)
		return nil, nil
	}

	var exporter sdktrace.SpanExporter
	switch cfg.TracingExporter {
	case "console":
		exporter = exporters.NewConsoleExporter()
	default:
		otlp, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.TracingOTLPEndpoint,
			Protocol: cfg.TracingOTLPProtocol,
			Insecure: cfg.TracingOTLPInsecure,
		})
		if err != nil {
			tracing.SetTracer(otel.Tracer(cfg.AppName))
			return nil, err
		}
		exporter = otlp
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
		)),
	)
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}
