package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/fjod/go_kitchen/internal/repository"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// RecipeSnapshot is the dish data a loaded row is displayed with.
type RecipeSnapshot struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	ImageRef string
}

type LoadedRow struct {
	DishRef  string
	Quantity int
	Recipe   RecipeSnapshot
}

// Loader reads a user's saved cart and joins it with the catalog.
type Loader struct {
	store   repository.Store
	catalog catalog.Catalog
	engine  *availability.Engine
	log     *slog.Logger
	sfg     singleflight.Group
}

func NewLoader(store repository.Store, c catalog.Catalog, engine *availability.Engine, log *slog.Logger) *Loader {
	return &Loader{store: store, catalog: c, engine: engine, log: log}
}

// Load returns the saved rows in stored order. Concurrent loads for the same
// user share one store round trip; the result must not be modified.
func (l *Loader) Load(ctx context.Context, userID string) ([]LoadedRow, error) {
	v, err, _ := l.sfg.Do(userID, func() (any, error) {
		return l.load(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]LoadedRow), nil
}

func (l *Loader) load(ctx context.Context, userID string) ([]LoadedRow, error) {
	rows, err := l.store.ReadCartRows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.DishRef)
	}
	dishes, err := l.catalog.GetDishes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("look up cart dishes: %w", err)
	}

	loaded := make([]LoadedRow, 0, len(rows))
	for _, r := range rows {
		d, ok := dishes[r.DishRef]
		if !ok {
			l.log.InfoContext(ctx, "saved cart row for unknown dish dropped", "user_id", userID, "dish_id", r.DishRef)
			continue
		}
		if r.Quantity < 1 {
			continue
		}
		loaded = append(loaded, LoadedRow{
			DishRef:  r.DishRef,
			Quantity: r.Quantity,
			Recipe: RecipeSnapshot{
				ID:       d.ID,
				Name:     d.Name,
				Price:    orderPrice(d, l.engine.Evaluate(d)),
				ImageRef: d.ImageRef,
			},
		})
	}
	return loaded, nil
}

// orderPrice is the unit price a cart line carries for dish under verdict v.
// Special orders include the surcharge.
func orderPrice(dish domain.Dish, v domain.Verdict) decimal.Decimal {
	if v.Status == domain.StatusSpecialOrder {
		return dish.PriceWithSurcharge()
	}
	return dish.Price
}
