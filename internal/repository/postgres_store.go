package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertRowQuery = `INSERT INTO cart_items (user_id, dish_ref, quantity, added_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (user_id, dish_ref) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

func (s *PostgresStore) ReadCartRows(ctx context.Context, userID string) ([]Row, error) {
	query := `SELECT dish_ref, quantity FROM cart_items WHERE user_id = $1 ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart rows: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.DishRef, &r.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) DeleteCartRows(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete cart rows: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertCartRows(ctx context.Context, userID string, rows []Row) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, userID, rows)
	})
}

// ReplaceCartRows deletes and inserts in one transaction, so concurrent
// readers see either the old or the new row set.
func (s *PostgresStore) ReplaceCartRows(ctx context.Context, userID string, rows []Row) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete cart rows: %w", err)
		}
		return insertRows(ctx, tx, userID, rows)
	})
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, userID string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, insertRowQuery)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, userID, r.DishRef, r.Quantity); err != nil {
			return fmt.Errorf("insert cart row %s: %w", r.DishRef, err)
		}
	}
	return nil
}
