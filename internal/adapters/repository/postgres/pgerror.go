package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/leave-ledger/internal/core/leave"
	pgdb "github.com/ogurasousui/leave-ledger/internal/platform/db/postgres"
	"github.com/shopspring/decimal"
)

const (
	uniqueViolationCode           = "23505"
	foreignKeyViolationCode       = "23503"
	checkViolationCode            = "23514"
	invalidTextRepresentationCode = "22P02"
)

// pgError は err に含まれる PostgreSQL エラーを返します。
func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// isInvalidID は UUID 列に UUID 以外の文字列を渡した場合のエラーかどうかを返します。
func isInvalidID(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.Code == invalidTextRepresentationCode
}

// conflictOr はシリアライズ失敗とデッドロックを leave.ErrConcurrentModification として返し、
// それ以外は err をそのまま返します。
func conflictOr(err error) error {
	if pgdb.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %w", leave.ErrConcurrentModification, err)
	}
	return err
}

func nullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return dateOnly(*value)
}

func nullableTimestamp(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC()
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableDecimal(value *decimal.Decimal) any {
	if value == nil {
		return nil
	}
	return value.String()
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func datePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	d := dateOnly(value.Time)
	return &d
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func parseDecimal(column, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: parse %s: %w", column, err)
	}
	return d, nil
}

func parseNullableDecimal(column string, raw sql.NullString) (*decimal.Decimal, error) {
	if !raw.Valid {
		return nil, nil
	}
	d, err := parseDecimal(column, raw.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func intPtr(value sql.NullInt32) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int32)
	return &v
}
