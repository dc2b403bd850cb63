// Copyright (C) 2025 RUA Innovation
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"

	"github.com/rua-innovation/policy-assistant/services/assistant/agent"
	"github.com/rua-innovation/policy-assistant/services/assistant/config"
	"github.com/rua-innovation/policy-assistant/services/assistant/handlers"
	"github.com/rua-innovation/policy-assistant/services/assistant/observability"
	"github.com/rua-innovation/policy-assistant/services/assistant/routes"
	"github.com/rua-innovation/policy-assistant/services/assistant/store"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const serviceName = "policy-assistant-service"

func initTracer(otelEndpoint string) (func(context.Context), error) {
	ctx := context.Background()

	if otelEndpoint == "" {
		otelEndpoint = "otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: invalid configuration: %v", err)
	}

	// --- Init the tracer ---
	cleanup, err := initTracer(cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	// --- Remote agent client ---
	clientConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.AgentEndpoint)
	clientConfig.APIVersion = cfg.APIVersion
	client := openai.NewClientWithConfig(clientConfig)

	// --- Shared stores (process lifetime, never torn down) ---
	sessions := store.NewSessionStore(cfg.StatefulSessions)
	limiter := store.NewRateLimiter(store.DefaultMaxRequests, store.DefaultRateWindow)
	dedup := store.NewDeduplicator(store.DefaultDedupTTL)

	driver := agent.NewDriver(client, sessions, agent.Config{AssistantID: cfg.AgentID})

	slog.Info("policy assistant configured",
		"session_mode", cfg.Mode(),
		"agent_id_set", cfg.AgentID != "",
		"port", cfg.Port)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:       24 * time.Hour,
	}))

	routes.SetupRoutes(router, routes.Deps{
		Ask:     handlers.NewAskHandler(driver, dedup),
		Stream:  handlers.NewStreamHandler(driver, dedup, handlers.StreamConfig{}),
		Session: handlers.NewSessionHandler(driver),
		Health:  handlers.NewHealthHandler(cfg),
		Limiter: limiter,
	})

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
