package inquiry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// RunMigrations applies the inquiry schema. connString is a postgres:// URL.
func RunMigrations(connString, migrationsPath string) error {
	dbURL := "pgx5://" + strings.TrimPrefix(strings.TrimPrefix(connString, "postgres://"), "postgresql://")
	sep := "?"
	if strings.Contains(dbURL, "?") {
		sep = "&"
	}
	dbURL += sep + "x-migrations-table=inquiry_schema_migrations"

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dbURL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const inquiryColumns = `id, customer_name, customer_email, customer_phone, message,
	dish_id, dish_name, quantity, type, status, user_id, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, inq *domain.Inquiry) error {
	query := `INSERT INTO inquiries (` + inquiryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		inq.ID, inq.CustomerName, inq.CustomerEmail, inq.CustomerPhone, inq.Message,
		inq.DishID, inq.DishName, inq.Quantity, string(inq.Type), string(inq.Status), inq.UserID,
		inq.CreatedAt, inq.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries WHERE id = $1`

	inq, err := scanInquiry(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}
	return inq, nil
}

func (r *PostgresRepository) List(ctx context.Context, status domain.InquiryStatus) ([]domain.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries: %w", err)
	}
	defer rows.Close()

	var result []domain.Inquiry
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		result = append(result, *inq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.InquiryStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inquiries SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), at, id, string(from))
	if err != nil {
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

func scanInquiry(row pgx.Row) (*domain.Inquiry, error) {
	var (
		inq         domain.Inquiry
		typ, status string
	)
	err := row.Scan(
		&inq.ID, &inq.CustomerName, &inq.CustomerEmail, &inq.CustomerPhone, &inq.Message,
		&inq.DishID, &inq.DishName, &inq.Quantity, &typ, &status, &inq.UserID,
		&inq.CreatedAt, &inq.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inq.Type = domain.InquiryType(typ)
	inq.Status = domain.InquiryStatus(status)
	return &inq, nil
}
