package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrDishNotFound = errors.New("dish not found")

// Catalog is the read side of the menu the storefront serves from.
type Catalog interface {
	ListDishes(ctx context.Context) ([]domain.Dish, error)
	GetDish(ctx context.Context, id string) (domain.Dish, error)
	GetDishes(ctx context.Context, ids []string) (map[string]domain.Dish, error)
}

type Repository struct {
	db *sql.DB
}

const dishColumns = `id, name, description, category, price, image_ref,
	availability_type, available_days, preorder_opens_on, requires_preorder,
	special_order_surcharge, nutrition, gallery`

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

func (r *Repository) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query dishes: %w", err)
	}
	defer rows.Close()

	var dishes []domain.Dish
	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return dishes, nil
}

func (r *Repository) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE id = ?`

	d, err := scanDish(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Dish{}, fmt.Errorf("%w: %s", ErrDishNotFound, id)
	}
	if err != nil {
		return domain.Dish{}, err
	}
	return d, nil
}

// GetDishes returns the dishes that exist among ids, keyed by id. Unknown ids
// are simply absent from the result.
func (r *Repository) GetDishes(ctx context.Context, ids []string) (map[string]domain.Dish, error) {
	result := make(map[string]domain.Dish, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT ` + dishColumns + ` FROM dishes WHERE id IN (` + placeholders + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dishes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDish(rows)
		if err != nil {
			return nil, err
		}
		result[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDish(s scanner) (domain.Dish, error) {
	var (
		d                           domain.Dish
		price, surcharge, availType string
		days, opensOn, gallery      string
		requiresPreorder            bool
		nutrition                   sql.NullString
	)
	err := s.Scan(&d.ID, &d.Name, &d.Description, &d.Category, &price, &d.ImageRef,
		&availType, &days, &opensOn, &requiresPreorder, &surcharge, &nutrition, &gallery)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return d, err
		}
		return d, fmt.Errorf("failed to scan dish: %w", err)
	}

	if d.Price, err = decimal.NewFromString(price); err != nil {
		return d, fmt.Errorf("dish %s: bad price %q: %w", d.ID, price, err)
	}
	if d.Availability.SpecialOrderSurcharge, err = decimal.NewFromString(surcharge); err != nil {
		return d, fmt.Errorf("dish %s: bad surcharge %q: %w", d.ID, surcharge, err)
	}
	if d.Availability.Type, err = domain.ParseAvailabilityType(availType); err != nil {
		return d, fmt.Errorf("dish %s: %w", d.ID, err)
	}
	if d.Availability.Days, err = parseDays(days); err != nil {
		return d, fmt.Errorf("dish %s: %w", d.ID, err)
	}
	if opensOn != "" {
		if d.Availability.PreorderOpensOn, err = domain.ParseWeekday(opensOn); err != nil {
			return d, fmt.Errorf("dish %s: %w", d.ID, err)
		}
	}
	d.Availability.RequiresPreorder = requiresPreorder

	if nutrition.Valid && nutrition.String != "" {
		var n domain.Nutrition
		if err := json.Unmarshal([]byte(nutrition.String), &n); err != nil {
			return d, fmt.Errorf("dish %s: bad nutrition: %w", d.ID, err)
		}
		d.Nutrition = &n
	}
	if err := json.Unmarshal([]byte(gallery), &d.Gallery); err != nil {
		return d, fmt.Errorf("dish %s: bad gallery: %w", d.ID, err)
	}

	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// parseDays reads the comma separated day list, dropping duplicates.
func parseDays(s string) ([]domain.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []domain.Weekday
	seen := make(map[domain.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		day, err := domain.ParseWeekday(part)
		if err != nil {
			return nil, err
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days, nil
}
