package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"

	"github.com/bondarys/entitycore/internal/config"
	"github.com/bondarys/entitycore/internal/infra/database"
	"github.com/bondarys/entitycore/internal/infra/repository"
	"github.com/bondarys/entitycore/internal/present/rest"
	"github.com/bondarys/entitycore/internal/service"
	"github.com/bondarys/entitycore/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)

	var events *service.EventService
	if conf.Server.RedisAddr != "" {
		events = service.NewEventService(rdb)
	}

	typeRepo := repository.NewTypeRegistryRepository(db)
	entityRepo := repository.NewEntityRepository(db)
	queryRepo := repository.NewQueryRepository(db)

	ownerRepo := repository.NewOwnerRepository(db, nil)
	if conf.Server.MemcachedAddr != "" {
		ownerRepo = repository.NewOwnerRepository(db, database.NewMemcached(conf.Server.MemcachedAddr))
	}

	typeUC := usecase.NewTypeUsecase(typeRepo)
	var publisher usecase.EventPublisher
	var streamer rest.EventStreamer
	if events != nil {
		publisher = events
		streamer = events
	}
	entityUC := usecase.NewEntityUsecase(typeRepo, entityRepo, ownerRepo, publisher)
	queryUC := usecase.NewQueryUsecase(typeRepo, entityRepo, queryRepo)

	handler := rest.NewHandler(typeUC, entityUC, queryUC, streamer)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if conf.Server.EnableTrace {
		cleanup, err := setupTracer(conf.Server.TraceEndpoint)
		if err != nil {
			panic("failed to setup tracer: " + err.Error())
		}
		defer cleanup()
		e.Use(otelecho.Middleware("entitycore"))
	}

	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}

func setupTracer(endpoint string) (func(), error) {
	ctx := context.Background()

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("entitycore"),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shutdown tracer provider",
				slog.String("error", err.Error()),
			)
		}
	}, nil
}
