// Package normalize преобразует сырые строки отчёта в записи хранилища.
package normalize

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akozyrev/wb-storage-sync/internal/model"
	"github.com/akozyrev/wb-storage-sync/internal/report"
)

var errMissingDate = errors.New("missing report date")

var dateLayouts = []string{"2006-01-02", time.RFC3339}

// Record преобразует одну строку отчёта в запись хранилища.
// Отсутствующие и null-поля проходят как есть; ошибкой считается только
// отсутствующая или нечитаемая обязательная дата отчёта.
func Record(item report.RawItem) (model.StorageUsageRecord, error) {
	if item.Date == nil || *item.Date == "" {
		return model.StorageUsageRecord{}, errMissingDate
	}

	reportDate, err := parseDate(*item.Date)
	if err != nil {
		return model.StorageUsageRecord{}, fmt.Errorf("parse report date: %w", err)
	}

	return model.StorageUsageRecord{
		ReportDate:       reportDate,
		OfficeID:         item.OfficeID,
		WarehouseName:    item.Warehouse,
		LogWarehouseCoef: item.LogWarehouseCoef,
		WarehouseCoef:    item.WarehouseCoef,
		GiID:             item.GiID,
		ChrtID:           item.ChrtID,
		Size:             item.Size,
		Barcode:          item.Barcode,
		Subject:          item.Subject,
		Brand:            item.Brand,
		VendorCode:       item.VendorCode,
		NmID:             item.NmID,
		Volume:           item.Volume,
		CalcType:         item.CalcType,
		WarehousePrice:   item.WarehousePrice,
		BarcodesCount:    item.BarcodesCount,
		PalletPlaceCode:  item.PalletPlaceCode,
		PalletCount:      item.PalletCount,
		LoyaltyDiscount:  item.LoyaltyDiscount,
		OriginalDate:     parseOptionalDate(item.OriginalDate),
		TariffFixDate:    parseOptionalDate(item.TariffFixDate),
		TariffLowerDate:  parseOptionalDate(item.TariffLowerDate),
	}, nil
}

// Records нормализует пакет строк с устойчивостью к браку на уровне строки:
// некорректная строка логируется и отбрасывается, остальные обрабатываются.
// Возвращает записи и количество отброшенных строк.
func Records(items []report.RawItem, log *zap.SugaredLogger) ([]model.StorageUsageRecord, int) {
	records := make([]model.StorageUsageRecord, 0, len(items))
	skipped := 0

	for i, item := range items {
		rec, err := Record(item)
		if err != nil {
			skipped++
			if log != nil {
				log.Warnw("report item skipped", "index", i, "error", err.Error())
			}
			continue
		}
		records = append(records, rec)
	}

	return records, skipped
}

func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// parseOptionalDate возвращает nil для отсутствующей, пустой или нечитаемой даты:
// необязательное поле не должно ронять строку целиком.
func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil
	}
	return &t
}
