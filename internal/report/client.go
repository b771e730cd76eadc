// Package report предоставляет клиент API отчётов платного хранения WB.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akozyrev/wb-storage-sync/internal/model"
)

const defaultBaseURL = "https://seller-analytics-api.wildberries.ru"

const dateLayout = "2006-01-02"

// ErrRequestFailed возвращается при транспортной ошибке, неуспешном статусе
// ответа или некорректном теле ответа API отчётов.
var ErrRequestFailed = errors.New("report api request failed")

// Client инкапсулирует HTTP-взаимодействие с API отчётов платного хранения.
// Клиент не выполняет повторов: политика повторов принадлежит вызывающему.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт клиент API отчётов. Пустой baseURL означает боевой адрес.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RawItem — одна строка отчёта в том виде, в котором её отдаёт API.
// Все поля указательные либо Null-типы: отсутствующее поле и явный null
// одинаково декодируются в пустое значение.
type RawItem struct {
	Date             *string             `json:"date"`
	LogWarehouseCoef *float64            `json:"logWarehouseCoef"`
	OfficeID         *int64              `json:"officeId"`
	Warehouse        *string             `json:"warehouse"`
	WarehouseCoef    *float64            `json:"warehouseCoef"`
	GiID             *int64              `json:"giId"`
	ChrtID           *int64              `json:"chrtId"`
	Size             *string             `json:"size"`
	Barcode          *string             `json:"barcode"`
	Subject          *string             `json:"subject"`
	Brand            *string             `json:"brand"`
	VendorCode       *string             `json:"vendorCode"`
	NmID             *int64              `json:"nmId"`
	Volume           *float64            `json:"volume"`
	CalcType         *string             `json:"calcType"`
	WarehousePrice   decimal.NullDecimal `json:"warehousePrice"`
	BarcodesCount    *int64              `json:"barcodesCount"`
	PalletPlaceCode  *int64              `json:"palletPlaceCode"`
	PalletCount      *float64            `json:"palletCount"`
	LoyaltyDiscount  decimal.NullDecimal `json:"loyaltyDiscount"`
	OriginalDate     *string             `json:"originalDate"`
	TariffFixDate    *string             `json:"tariffFixDate"`
	TariffLowerDate  *string             `json:"tariffLowerDate"`
}

// CreateTask создаёт задачу генерации отчёта за период и возвращает её идентификатор.
func (c *Client) CreateTask(ctx context.Context, from, to time.Time) (string, error) {
	query := url.Values{}
	query.Set("dateFrom", from.Format(dateLayout))
	query.Set("dateTo", to.Format(dateLayout))

	var payload struct {
		Data struct {
			TaskID string `json:"taskId"`
		} `json:"data"`
	}

	endpoint := c.baseURL + "/api/v1/paid_storage?" + query.Encode()
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}

	if payload.Data.TaskID == "" {
		return "", fmt.Errorf("%w: empty taskId in response", ErrRequestFailed)
	}

	return payload.Data.TaskID, nil
}

// TaskStatus запрашивает текущий статус задачи генерации отчёта.
// Статус error возвращается как значение, а не как ошибка: решение принимает вызывающий.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (model.TaskStatus, error) {
	var payload struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}

	endpoint := c.baseURL + "/api/v1/paid_storage/tasks/" + url.PathEscape(taskID) + "/status"
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}

	return model.TaskStatus(payload.Data.Status), nil
}

// Download загружает готовый отчёт. Пустой отчёт — корректный результат.
func (c *Client) Download(ctx context.Context, taskID string) ([]RawItem, error) {
	var items []RawItem

	endpoint := c.baseURL + "/api/v1/paid_storage/tasks/" + url.PathEscape(taskID) + "/download"
	if err := c.getJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}

	return items, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: do request: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}

	return nil
}
