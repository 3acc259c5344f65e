package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classlog/internal/api"
	"classlog/internal/archive"
	"classlog/internal/bootstrap"
	"classlog/internal/config"
	"classlog/internal/exporter"
	"classlog/internal/httpmiddleware"
	"classlog/internal/logging"
	"classlog/internal/queue"
	"classlog/internal/report"
	"classlog/internal/school"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Env, cfg.LogLevel)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		logging.Component("api").WithError(err).Fatal("http server failed")
	}
}

func runHTTP(cfg config.App) error {
	log := logging.Component("api")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	rt, err := bootstrap.Open(openCtx, cfg, log)
	cancel()
	if err != nil {
		return err
	}
	defer rt.Close()

	svc := school.NewService(rt.Store, rt.Cache, cfg.CacheTTL)
	reports := report.NewService(svc)
	renderer := report.Renderer{Width: cfg.RenderWidth, Scale: cfg.RenderScale, Settle: cfg.RenderSettle}
	statuses := exporter.NewStatuses(rt.Cache)
	submitter := exporter.NewSubmitter(rt.Queue, statuses)

	// An in-memory queue cannot be shared with cmd/worker, so exports run in-process.
	if _, ok := rt.Queue.(*queue.InMemory); ok {
		arch, err := archive.New(cfg)
		if err != nil {
			return err
		}
		runner := exporter.NewRunner(reports, arch, renderer, statuses)
		go func() {
			if err := runner.Run(ctx, rt.Queue); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("in-process export runner stopped")
			}
		}()
		log.Info("export jobs run in-process")
	}

	h := api.New(api.Deps{
		School:    svc,
		Reports:   reports,
		Renderer:  renderer,
		Submitter: submitter,
		Statuses:  statuses,
		Checks:    rt.Checks,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logging.Component("http"), "/healthz", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.CORS(cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders(cfg.Production()))
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.HTTPPort).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced shutdown")
	}
	log.Info("server exited")
	return nil
}
