// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wildfire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/AleutianAI/WildfireOS/services/wildfire/agents"
	"github.com/AleutianAI/WildfireOS/services/wildfire/datatypes"
	"github.com/AleutianAI/WildfireOS/services/wildfire/engine"
	"github.com/AleutianAI/WildfireOS/services/wildfire/handlers"
	"github.com/AleutianAI/WildfireOS/services/wildfire/history"
	"github.com/AleutianAI/WildfireOS/services/wildfire/observability"
	"github.com/AleutianAI/WildfireOS/services/wildfire/routes"
	"github.com/AleutianAI/WildfireOS/services/wildfire/scenario"
	"github.com/AleutianAI/WildfireOS/services/wildfire/simulation"
	"github.com/AleutianAI/WildfireOS/services/wildfire/store"
)

const serviceName = "wildfire-service"

// tickController holds the live tick interval behind a mutex so handlers
// can adjust the loop while it runs.
type tickController struct {
	mu       sync.Mutex
	interval time.Duration
}

func (t *tickController) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

func (t *tickController) SetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interval = d
}

// Service owns the assembled components and the simulation loop.
type Service struct {
	cfg    Config
	logger *slog.Logger

	sim      *simulation.FireSimulation
	eng      *engine.Engine
	provider history.Provider
	analogs  history.Source
	feed     *store.NotificationStore
	hub      *handlers.Hub
	metrics  *observability.PipelineMetrics
	influx   *observability.InfluxRecorder
	ticker   *tickController
	router   *gin.Engine
}

// NewService wires the whole stack from config. The reasoner is injected
// so the serve path uses OpenAI while tests and replay tooling can run a
// scripted one.
func NewService(cfg Config, reasoner agents.Reasoner, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storeCfg := store.InMemoryConfig()
	if cfg.DataDir != "" {
		storeCfg = store.DefaultConfig(cfg.DataDir)
	}
	storeCfg.Logger = logger
	feed, err := store.NewNotificationStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open notification store: %w", err)
	}

	metrics := observability.DefaultMetrics
	if metrics == nil {
		metrics = observability.InitMetrics()
	}
	eng := engine.New(reasoner, agents.DefaultRetryConfig(),
		engine.WithMetrics(metrics), engine.WithLogger(logger))

	analogs := buildAnalogSource(cfg, logger)
	provider := buildHistoryProvider(analogs, logger)

	var influx *observability.InfluxRecorder
	if cfg.InfluxURL != "" {
		influx = observability.NewInfluxRecorder(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		logger.Info("InfluxDB tick recording enabled", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	}

	svc := &Service{
		cfg:      cfg,
		logger:   logger,
		sim:      simulation.New(cfg.Seed),
		eng:      eng,
		provider: provider,
		analogs:  analogs,
		feed:     feed,
		hub:      handlers.NewHub(logger),
		metrics:  metrics,
		influx:   influx,
		ticker:   &tickController{interval: cfg.TickInterval},
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(router, routes.Deps{
		Engine:  eng,
		History: provider,
		Feed:    feed,
		Hub:     svc.hub,
		Sim:     svc.sim,
		Ticker:  svc.ticker,
		Metrics: metrics,
		Logger:  logger,
	})
	svc.router = router

	return svc, nil
}

// buildAnalogSource prefers a Weaviate store when a valid URL is
// configured; anything else degrades to the in-memory index.
func buildAnalogSource(cfg Config, logger *slog.Logger) history.Source {
	raw := strings.Trim(cfg.WeaviateURL, "\"' ")
	if raw == "" || !strings.Contains(raw, "http") {
		logger.Info("WEAVIATE_SERVICE_URL not set. Using the in-memory analog index.")
		return history.NewAnalogIndex(nil)
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		logger.Warn("WEAVIATE_SERVICE_URL is invalid. Using the in-memory analog index.",
			"url", raw, "error", err)
		return history.NewAnalogIndex(nil)
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: parsed.Host, Scheme: parsed.Scheme})
	if err != nil {
		logger.Error("Failed to create Weaviate client. Using the in-memory analog index.", "error", err)
		return history.NewAnalogIndex(nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := history.EnsureIncidentSchema(ctx, client); err != nil {
		logger.Error("Failed to ensure the incident schema. Using the in-memory analog index.", "error", err)
		return history.NewAnalogIndex(nil)
	}
	analogStore := history.NewWeaviateAnalogStore(client)
	if err := analogStore.Seed(ctx, history.BuiltinFires()); err != nil {
		logger.Warn("Failed to seed analog incidents", "error", err)
	}
	logger.Info("Using the Weaviate analog store", "host", parsed.Host)
	return analogStore
}

// buildHistoryProvider uses an LLM summarizer when an OpenAI key is
// available, otherwise the deterministic digest.
func buildHistoryProvider(analogs history.Source, logger *slog.Logger) history.Provider {
	if os.Getenv("OPENAI_API_KEY") == "" {
		logger.Info("OPENAI_API_KEY not set for summarization. Using the static analog digest.")
		return history.NewStaticProvider(analogs)
	}
	model, err := lcopenai.New()
	if err != nil {
		logger.Warn("Failed to build the summarizer model. Using the static analog digest.", "error", err)
		return history.NewStaticProvider(analogs)
	}
	return history.NewLLMSummarizer(model, analogs, logger)
}

// initTracer configures the OTLP trace pipeline and returns its shutdown
// hook.
func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
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

// Run starts the tracer, the scenario watcher, the tick loop, and the HTTP
// server, then blocks until ctx is cancelled or the server fails.
func (s *Service) Run(ctx context.Context) error {
	cleanup, err := initTracer(s.cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setup the OTLP tracer: %w", err)
	}
	defer cleanup(context.Background())

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()

	if s.cfg.ScenarioDir != "" {
		watcher, err := scenario.NewWatcher(s.cfg.ScenarioDir, s.handleFrame(loopCtx), s.logger)
		if err != nil {
			return fmt.Errorf("create scenario watcher: %w", err)
		}
		if err := watcher.Start(loopCtx); err != nil {
			return fmt.Errorf("start scenario watcher: %w", err)
		}
		defer watcher.Stop()
		s.logger.Info("Watching for scenario frames", "dir", s.cfg.ScenarioDir)
	}

	server := &http.Server{
		Addr:    ":" + s.cfg.Port,
		Handler: s.router,
	}

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		s.tickLoop(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Starting the wildfire server", "port", s.cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown failed", "error", err)
		}
		return nil
	})
	err = g.Wait()

	if s.influx != nil {
		s.influx.Close()
	}
	if closeErr := s.feed.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// tickEnvironment assembles the environment snapshot for one tick from the
// simulation's wind state and representative terrain defaults.
func (s *Service) tickEnvironment() datatypes.EnvironmentContext {
	dir, speed := s.sim.Wind()
	return datatypes.EnvironmentContext{
		WindSpeed:     speed,
		WindDirection: dir,
		Humidity:      25,
		SlopePercent:  18,
		Vegetation:    "chaparral",
	}
}

// analyzeAndPersist runs the full pipeline over one observation: history
// resolution, orchestration seeded with the last stored recommendation,
// then persistence of the accepted output.
func (s *Service) analyzeAndPersist(
	ctx context.Context,
	telemetry datatypes.RawTelemetry,
	env datatypes.EnvironmentContext,
	infra datatypes.InfrastructureContext,
	timeLabel string,
) (*datatypes.AnalysisResult, string, error) {
	summary := history.Resolve(ctx, s.provider, history.QueryFor(env), s.logger)

	var previous *datatypes.Recommendation
	if last, err := s.feed.LatestRecommendation(); err == nil && last != nil {
		previous = &last.Recommendation
	}

	result, err := s.eng.Run(ctx, engine.Request{
		Telemetry:              telemetry,
		Environment:            env,
		Infrastructure:         infra,
		HistorySummary:         summary,
		PreviousRecommendation: previous,
	}, nil)
	if err != nil {
		return nil, summary, err
	}

	meta := store.TickMeta{
		Timestamp: time.Now().UTC(),
		TimeLabel: timeLabel,
		DataStep:  telemetry.Step,
	}
	source := "agent"
	if result.Fallback {
		source = "system"
	}
	if _, err := s.feed.AppendNotifications(result.Notifications, source, meta); err != nil {
		s.logger.Error("failed to persist notifications", "error", err)
	}
	rec := store.StoredRecommendation{
		Recommendation: result.Recommendation,
		Timestamp:      meta.Timestamp,
		TimeLabel:      meta.TimeLabel,
		DataStep:       meta.DataStep,
		Fallback:       result.Fallback,
	}
	if err := s.feed.SaveRecommendation(rec); err != nil {
		s.logger.Error("failed to persist recommendation", "error", err)
	}
	return result, summary, nil
}

// tickLoop advances the simulation on the live interval, runs the analysis
// pipeline over each snapshot, and pushes one frame per tick to websocket
// clients.
func (s *Service) tickLoop(ctx context.Context) {
	timer := time.NewTimer(s.ticker.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		started := time.Now()
		snap := s.sim.Step()
		telemetry := snap.Telemetry()
		env := s.tickEnvironment()

		analogs, err := s.analogs.Nearest(ctx, history.QueryFor(env), 3)
		if err != nil {
			s.logger.Warn("analog lookup failed for the tick frame", "error", err)
			analogs = nil
		}
		advisory := agents.RuleBasedAdvisory(telemetry, env.WindSpeed, env.WindDirection, history.Stats(analogs))

		tickCtx, cancel := context.WithTimeout(ctx, tickDeadline(s.ticker.Interval()))
		result, summary, err := s.analyzeAndPersist(tickCtx, telemetry, env, datatypes.InfrastructureContext{}, "")
		cancel()
		if err != nil {
			s.logger.Error("tick analysis failed", "error", err, "step", snap.Step)
			timer.Reset(s.ticker.Interval())
			continue
		}

		frame := gin.H{
			"action": "tick",
			"fire": gin.H{
				"burning_cells": snap.BurningCells,
				"perimeter":     snap.PerimeterPolygon,
				"step":          snap.Step,
				"total_burning": snap.TotalBurning,
				"total_burned":  snap.TotalBurned,
			},
			"wind": gin.H{
				"direction": env.WindDirection,
				"speed":     env.WindSpeed,
			},
			"analysis":       advisory,
			"recommendation": result.Recommendation,
			"notifications":  result.Notifications,
			"physics":        result.Physics,
			"historical":     summary,
			"fallback":       result.Fallback,
		}
		s.hub.Broadcast(frame)

		duration := time.Since(started)
		s.metrics.TickDurationSeconds.Observe(duration.Seconds())

		if s.influx != nil {
			record := observability.TickRecord{
				Telemetry: telemetry,
				Physics:   result.Physics,
				WindSpeed: env.WindSpeed,
				WindDir:   env.WindDirection,
				Attempts:  result.Attempts,
				Fallback:  result.Fallback,
				Duration:  duration,
			}
			if err := s.influx.RecordTick(ctx, record); err != nil {
				s.logger.Warn("failed to record the tick", "error", err)
			}
		}

		timer.Reset(s.ticker.Interval())
	}
}

// tickDeadline bounds one tick's analysis. Slow providers get a floor well
// above the fastest tick setting so retries can still complete.
func tickDeadline(interval time.Duration) time.Duration {
	deadline := 4 * interval
	if deadline < 30*time.Second {
		deadline = 30 * time.Second
	}
	return deadline
}

// handleFrame feeds one dropped scenario frame through the same pipeline
// as a simulation tick.
func (s *Service) handleFrame(ctx context.Context) scenario.FrameHandler {
	return func(frame scenario.Frame) {
		result, summary, err := s.analyzeAndPersist(ctx, frame.Telemetry, frame.Environment, frame.Infrastructure, frame.TimeLabel)
		if err != nil {
			s.logger.Error("scenario frame analysis failed", "error", err, "step", frame.Telemetry.Step)
			return
		}

		s.hub.Broadcast(gin.H{
			"action":           "frame_analysis",
			"time_label":       frame.TimeLabel,
			"notifications":    result.Notifications,
			"recommendation":   result.Recommendation,
			"computed_physics": result.Physics,
			"history_summary":  summary,
			"fallback":         result.Fallback,
		})
	}
}
