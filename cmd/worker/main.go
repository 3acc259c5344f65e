package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"classlog/internal/archive"
	"classlog/internal/bootstrap"
	"classlog/internal/config"
	"classlog/internal/exporter"
	"classlog/internal/logging"
	"classlog/internal/report"
	"classlog/internal/school"
)

// Worker consumes export jobs, renders the reports and archives them. With REPORT_SCHEDULE
// set it also queues the daily exports itself.
func main() {
	cfg := config.Load()
	logging.Setup(cfg.Env, cfg.LogLevel)
	log := logging.Component("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	rt, err := bootstrap.Open(openCtx, cfg, log)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("backend setup failed")
	}
	defer rt.Close()

	arch, err := archive.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("archive setup failed")
	}

	svc := school.NewService(rt.Store, rt.Cache, cfg.CacheTTL)
	statuses := exporter.NewStatuses(rt.Cache)
	renderer := report.Renderer{Width: cfg.RenderWidth, Scale: cfg.RenderScale, Settle: cfg.RenderSettle}
	runner := exporter.NewRunner(report.NewService(svc), arch, renderer, statuses)

	if cfg.ReportSchedule != "" {
		sched, err := exporter.NewScheduler(cfg.ReportSchedule, exporter.NewSubmitter(rt.Queue, statuses))
		if err != nil {
			log.WithError(err).Fatal("invalid report schedule")
		}
		sched.Start()
		defer sched.Stop()
	}

	log.WithField("archive", cfg.ArchiveBackend).Info("worker started, waiting for export jobs")
	if err := runner.Run(ctx, rt.Queue); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("worker stopped")
		return
	}
	log.Info("worker stopped")
}
