// Package model содержит доменные сущности сервиса синхронизации платного хранения.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaskStatus описывает статус задачи генерации отчёта на стороне WB.
type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusError      TaskStatus = "error"
)

// Terminal сообщает, что задача больше не изменит статус.
// Незнакомый статус считается промежуточным и опрашивается дальше.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusError
}

// StorageUsageRecord — одна строка платного хранения: товар на складе за один день.
// Обязательна только дата отчёта; остальные поля источник заполняет непостоянно,
// поэтому отсутствующее значение хранится как NULL, а не как ноль или пустая строка.
type StorageUsageRecord struct {
	ReportDate       time.Time
	OfficeID         *int64
	WarehouseName    *string
	LogWarehouseCoef *float64
	WarehouseCoef    *float64
	GiID             *int64
	ChrtID           *int64
	Size             *string
	Barcode          *string
	Subject          *string
	Brand            *string
	VendorCode       *string
	NmID             *int64
	Volume           *float64
	CalcType         *string
	WarehousePrice   decimal.NullDecimal
	BarcodesCount    *int64
	PalletPlaceCode  *int64
	PalletCount      *float64
	LoyaltyDiscount  decimal.NullDecimal
	OriginalDate     *time.Time
	TariffFixDate    *time.Time
	TariffLowerDate  *time.Time
}
