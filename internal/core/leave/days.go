package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

var halfDayAmount = decimal.RequireFromString("0.5")

// DateOnly は時刻を切り捨て、同じ暦日の UTC 0 時を返します。
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InclusiveDays は start から end までの暦日数を両端を含めて返します。土日祝日は除外しません。
func InclusiveDays(start, end time.Time) int {
	s := DateOnly(start)
	e := DateOnly(end)
	if e.Before(s) {
		return 0
	}
	return int(e.Sub(s).Hours()/24) + 1
}

// CalculateTotalDays は申請日数を返します。半休は 0.5 日です。
func CalculateTotalDays(start, end time.Time, halfDay bool) decimal.Decimal {
	if halfDay {
		return halfDayAmount
	}
	return decimal.NewFromInt(int64(InclusiveDays(start, end)))
}
