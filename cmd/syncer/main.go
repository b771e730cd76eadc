// Package main запускает синхронизацию отчётов платного хранения WB.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/akozyrev/wb-storage-sync/internal/config"
	"github.com/akozyrev/wb-storage-sync/internal/pacer"
	"github.com/akozyrev/wb-storage-sync/internal/report"
	"github.com/akozyrev/wb-storage-sync/internal/repository"
	"github.com/akozyrev/wb-storage-sync/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	client := report.NewClient(cfg.ReportAPIAddress, cfg.APIKey)
	governor := pacer.New(cfg.PollInterval, cfg.WindowDelay, cfg.BatchDelay, cfg.ErrorCooldown, nil)

	svc := service.NewService(client, repo, governor, sugar, service.Options{
		BatchSize:     cfg.BatchSize,
		LookbackDays:  cfg.LookbackDays,
		MaxSpanDays:   cfg.MaxWindowSpanDays,
		ClearLookback: cfg.ClearLookback,
	})
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	today := time.Now()

	if cfg.Initial {
		sugar.Infow("starting backfill", "origin", cfg.BackfillOrigin)
		err = svc.Backfill(ctx, cfg.Origin(), today.AddDate(0, 0, -1))
	} else {
		sugar.Infow("starting daily refresh", "lookback_days", cfg.LookbackDays)
		err = svc.Daily(ctx, today)
	}

	if err != nil {
		sugar.Fatalw("sync terminated with error", "error", err.Error())
	}

	sugar.Info("sync finished")
}
