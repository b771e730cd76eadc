// Package service реализует конвейер синхронизации отчётов платного хранения.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akozyrev/wb-storage-sync/internal/model"
	"github.com/akozyrev/wb-storage-sync/internal/normalize"
	"github.com/akozyrev/wb-storage-sync/internal/pacer"
	"github.com/akozyrev/wb-storage-sync/internal/planner"
	"github.com/akozyrev/wb-storage-sync/internal/report"
)

// ErrReportGeneration возвращается, когда API сообщает об ошибке генерации отчёта.
var ErrReportGeneration = errors.New("report generation failed")

// ReportAPI описывает операции API отчётов, используемые конвейером.
type ReportAPI interface {
	CreateTask(ctx context.Context, from, to time.Time) (string, error)
	TaskStatus(ctx context.Context, taskID string) (model.TaskStatus, error)
	Download(ctx context.Context, taskID string) ([]report.RawItem, error)
}

// Storage описывает контракт хранилища записей платного хранения.
type Storage interface {
	Close() error
	UpsertUsageRecords(ctx context.Context, records []model.StorageUsageRecord) error
	DeleteUsageSince(ctx context.Context, from time.Time) error
}

// Options содержит параметры конвейера синхронизации.
type Options struct {
	BatchSize     int
	LookbackDays  int
	MaxSpanDays   int
	ClearLookback bool
}

// Service — конвейер синхронизации одного периода: создание задачи,
// ожидание готовности отчёта, загрузка, нормализация и запись пакетами.
// Окна обрабатываются строго последовательно.
type Service struct {
	api      ReportAPI
	storage  Storage
	governor *pacer.Governor
	log      *zap.SugaredLogger
	opts     Options
}

// NewService создаёт конвейер с указанными клиентом API, хранилищем и регулятором пауз.
func NewService(api ReportAPI, storage Storage, governor *pacer.Governor, log *zap.SugaredLogger, opts Options) *Service {
	return &Service{
		api:      api,
		storage:  storage,
		governor: governor,
		log:      log,
		opts:     opts,
	}
}

// Close закрывает ресурсы конвейера.
func (s *Service) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

// SyncWindow обрабатывает одно окно: создаёт задачу, дожидается готовности
// отчёта, загружает его и сохраняет. Перед возвратом выдерживается пауза окна,
// чтобы не превысить бюджет создания отчётов.
func (s *Service) SyncWindow(ctx context.Context, w planner.Window) error {
	s.log.Infow("processing window", "window", w.String())

	taskID, err := s.api.CreateTask(ctx, w.From, w.To)
	if err != nil {
		return fmt.Errorf("create report task: %w", err)
	}
	s.log.Infow("report task created", "task_id", taskID)

	if err := s.awaitTask(ctx, taskID); err != nil {
		return err
	}

	items, err := s.api.Download(ctx, taskID)
	if err != nil {
		return fmt.Errorf("download report: %w", err)
	}
	s.log.Infow("report downloaded", "task_id", taskID, "items", len(items))

	if err := s.persist(ctx, items); err != nil {
		return err
	}

	return s.governor.AwaitNextWindow(ctx)
}

// awaitTask опрашивает статус задачи до терминального состояния.
func (s *Service) awaitTask(ctx context.Context, taskID string) error {
	for {
		status, err := s.api.TaskStatus(ctx, taskID)
		if err != nil {
			return fmt.Errorf("poll task status: %w", err)
		}

		switch status {
		case model.TaskStatusDone:
			return nil
		case model.TaskStatusError:
			return fmt.Errorf("%w: task %s", ErrReportGeneration, taskID)
		}

		s.log.Infow("report not ready", "task_id", taskID, "status", string(status))

		if err := s.governor.AwaitPoll(ctx); err != nil {
			return err
		}
	}
}

// persist нормализует строки отчёта и записывает их пакетами по BatchSize
// с короткой паузой между пакетами. Ошибка записи прерывает окно:
// молчаливая потеря записей нарушила бы контракт долговечности.
func (s *Service) persist(ctx context.Context, items []report.RawItem) error {
	if len(items) == 0 {
		return nil
	}

	records, skipped := normalize.Records(items, s.log)
	if skipped > 0 {
		s.log.Warnw("report items dropped during normalization", "skipped", skipped)
	}

	for start := 0; start < len(records); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(records))

		if err := s.storage.UpsertUsageRecords(ctx, records[start:end]); err != nil {
			return fmt.Errorf("upsert batch: %w", err)
		}
		s.log.Infow("batch saved", "records", end-start)

		if end < len(records) {
			if err := s.governor.AwaitNextBatch(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

// Backfill загружает историю с указанной даты по граничную включительно.
// Ошибка одного окна не прерывает загрузку: после увеличенной паузы
// обработка продолжается со следующего окна. Если хотя бы одно окно
// завершилось с ошибкой, возвращается итоговая ошибка с их количеством.
func (s *Service) Backfill(ctx context.Context, origin, until time.Time) error {
	windows, err := planner.Split(origin, until, s.opts.MaxSpanDays)
	if err != nil {
		return err
	}
	s.log.Infow("backfill planned", "windows", len(windows))

	failed := 0
	for _, w := range windows {
		if err := s.SyncWindow(ctx, w); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			failed++
			s.log.Errorw("window failed", "window", w.String(), "error", err.Error())

			if err := s.governor.AwaitCooldown(ctx); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("backfill finished with %d failed windows of %d", failed, len(windows))
	}
	return nil
}

// Daily перезагружает скользящее окно последних LookbackDays дней, чтобы
// подхватить поздние корректировки источника. Первая же ошибка возвращается
// сразу: повтор всего запуска — забота внешнего планировщика.
func (s *Service) Daily(ctx context.Context, today time.Time) error {
	yesterday := today.AddDate(0, 0, -1)
	start := yesterday.AddDate(0, 0, -s.opts.LookbackDays)

	windows, err := planner.Split(start, yesterday, s.opts.MaxSpanDays)
	if err != nil {
		return err
	}

	if s.opts.ClearLookback {
		if err := s.storage.DeleteUsageSince(ctx, windows[0].From); err != nil {
			return fmt.Errorf("clear lookback window: %w", err)
		}
		s.log.Infow("lookback window cleared", "from", windows[0].From.Format("2006-01-02"))
	}

	for _, w := range windows {
		if err := s.SyncWindow(ctx, w); err != nil {
			return err
		}
	}

	return nil
}
