package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/noah-isme/sma-bulletin-api/internal/models"
)

// paging converts page/size into LIMIT/OFFSET values. Pages beyond
// models.MaxPage are clamped so the offset cannot overflow.
func paging(page, size, defaultSize, maxSize int) (int, int) {
	page, size = models.NormalizePage(page, size, defaultSize, maxSize)
	return size, (page - 1) * size
}

// requireAffected maps a zero-row write to sql.ErrNoRows.
func requireAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// pqInt64Array passes int64 slices as Postgres arrays.
func pqInt64Array(values []int64) interface{} {
	return pq.Array(values)
}
