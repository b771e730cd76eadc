// Package repository содержит реализацию хранилища записей в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/akozyrev/wb-storage-sync/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Естественный ключ строки платного хранения. NULL-компоненты сворачиваются
// в COALESCE, чтобы уникальный индекс покрывал и неполные строки.
const upsertUsageSQL = `
	INSERT INTO usage_records (
		report_date, office_id, warehouse_name, log_warehouse_coef, warehouse_coef,
		gi_id, chrt_id, size, barcode, subject, brand, vendor_code, nm_id,
		volume, calc_type, warehouse_price, barcodes_count, pallet_place_code,
		pallet_count, loyalty_discount, original_date, tariff_fix_date, tariff_lower_date
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
	)
	ON CONFLICT (
		report_date, COALESCE(office_id, -1), COALESCE(warehouse_name, ''),
		COALESCE(chrt_id, -1), COALESCE(size, ''), COALESCE(barcode, ''),
		COALESCE(calc_type, '')
	)
	DO UPDATE SET
		log_warehouse_coef = EXCLUDED.log_warehouse_coef,
		warehouse_coef = EXCLUDED.warehouse_coef,
		gi_id = EXCLUDED.gi_id,
		subject = EXCLUDED.subject,
		brand = EXCLUDED.brand,
		vendor_code = EXCLUDED.vendor_code,
		nm_id = EXCLUDED.nm_id,
		volume = EXCLUDED.volume,
		warehouse_price = EXCLUDED.warehouse_price,
		barcodes_count = EXCLUDED.barcodes_count,
		pallet_place_code = EXCLUDED.pallet_place_code,
		pallet_count = EXCLUDED.pallet_count,
		loyalty_discount = EXCLUDED.loyalty_discount,
		original_date = EXCLUDED.original_date,
		tariff_fix_date = EXCLUDED.tariff_fix_date,
		tariff_lower_date = EXCLUDED.tariff_lower_date,
		loaded_at = now()`

// PostgresRepository предоставляет доступ к хранилищу записей платного хранения.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при временных сбоях: конфликте сериализации,
// дедлоке или обрыве соединения. Прочие ошибки возвращаются сразу.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewConstant(2*time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// UpsertUsageRecords сохраняет пакет записей платного хранения одной пачкой запросов.
// Повторная запись того же пакета перезаписывает строки по естественному ключу,
// не создавая дублей.
func (r *PostgresRepository) UpsertUsageRecords(ctx context.Context, records []model.StorageUsageRecord) error {
	if len(records) == 0 {
		return nil
	}

	return r.withRetry(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			batch.Queue(upsertUsageSQL,
				rec.ReportDate, rec.OfficeID, rec.WarehouseName,
				rec.LogWarehouseCoef, rec.WarehouseCoef,
				rec.GiID, rec.ChrtID, rec.Size, rec.Barcode,
				rec.Subject, rec.Brand, rec.VendorCode, rec.NmID,
				rec.Volume, rec.CalcType, rec.WarehousePrice,
				rec.BarcodesCount, rec.PalletPlaceCode, rec.PalletCount,
				rec.LoyaltyDiscount, rec.OriginalDate, rec.TariffFixDate, rec.TariffLowerDate,
			)
		}

		br := r.pool.SendBatch(ctx, batch)
		defer br.Close()

		for range records {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("upsert usage record: %w", err)
			}
		}

		return nil
	})
}

// DeleteUsageSince удаляет записи с датой отчёта не ранее указанной.
func (r *PostgresRepository) DeleteUsageSince(ctx context.Context, from time.Time) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`DELETE FROM usage_records WHERE report_date >= $1`,
			from,
		)
		if err != nil {
			return fmt.Errorf("delete usage records: %w", err)
		}
		return nil
	})
}
