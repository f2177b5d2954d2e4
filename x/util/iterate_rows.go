package util

import (
	"context"
	"database/sql"
)

// ScanRow reads the current row of rows into a fresh slice.
func ScanRow(rows *sql.Rows, width int) ([]interface{}, error) {
	row := make([]interface{}, width)
	ptrs := make([]interface{}, width)
	for i := range row {
		ptrs[i] = &row[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return row, nil
}

// IterateRows streams rows over a channel. The error channel yields the
// iteration error (nil when rows were exhausted) after the value channel
// closes. Callers stop early by cancelling ctx; the error is then
// ctx.Err().
func IterateRows(ctx context.Context, rows *sql.Rows) (<-chan []interface{}, <-chan error) {
	valCh := make(chan []interface{})
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		defer close(valCh)

		cols, err := rows.Columns()
		if err != nil {
			errCh <- err
			return
		}
		for rows.Next() {
			row, err := ScanRow(rows, len(cols))
			if err != nil {
				errCh <- err
				return
			}
			select {
			case valCh <- row:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- rows.Err()
	}()
	return valCh, errCh
}
