package repositories

import (
	"database/sql"
	"fmt"
)

// requireAffected turns a zero-row write into a not-found error built by notFound.
func requireAffected(result sql.Result, notFound func() error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound()
	}
	return nil
}
