// Package planner разбивает диапазон дат на окна запросов отчётов.
package planner

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange возвращается при некорректных границах диапазона дат.
var ErrInvalidRange = errors.New("invalid date range")

const dateLayout = "2006-01-02"

// Window — границы одного запроса отчёта, обе даты включительно.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) String() string {
	return w.From.Format(dateLayout) + ".." + w.To.Format(dateLayout)
}

// Split покрывает [start, end] упорядоченными смежными окнами.
// Разница дат внутри окна не превышает maxSpanDays дней, следующее окно
// начинается на следующий день после конца предыдущего.
func Split(start, end time.Time, maxSpanDays int) ([]Window, error) {
	if maxSpanDays < 1 {
		return nil, fmt.Errorf("%w: max span %d days", ErrInvalidRange, maxSpanDays)
	}

	start = truncateToDay(start)
	end = truncateToDay(end)

	if start.After(end) {
		return nil, fmt.Errorf("%w: %s after %s",
			ErrInvalidRange, start.Format(dateLayout), end.Format(dateLayout))
	}

	var windows []Window
	for cur := start; !cur.After(end); {
		to := cur.AddDate(0, 0, maxSpanDays)
		if to.After(end) {
			to = end
		}
		windows = append(windows, Window{From: cur, To: to})
		cur = to.AddDate(0, 0, 1)
	}

	return windows, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
