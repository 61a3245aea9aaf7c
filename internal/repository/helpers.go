package repository

import (
	"database/sql"
	"errors"
)

// handleNotFound converts sql.ErrNoRows into a nil result without
// error; callers treat a missing row as an expected condition.
func handleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
