package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_kitchen/internal/catalog"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *catalog.Repository {
	repo, err := catalog.NewRepository(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations("./migrations"))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestListDishes_ReturnsSeededMenuInOrder(t *testing.T) {
	repo := setupTestDB(t)

	dishes, err := repo.ListDishes(context.Background())
	require.NoError(t, err)
	require.Len(t, dishes, 6)

	ids := make([]string, len(dishes))
	for i, d := range dishes {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"dal-makhani", "tandoori-roti", "paneer-tikka", "sunday-biryani", "festive-thali", "gulab-jamun"}, ids)
}

func TestGetDish_DecodesAllColumns(t *testing.T) {
	repo := setupTestDB(t)

	d, err := repo.GetDish(context.Background(), "sunday-biryani")
	require.NoError(t, err)

	assert.Equal(t, "Sunday Mutton Biryani", d.Name)
	assert.True(t, d.Price.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, domain.AvailabilityWeeklySpecial, d.Availability.Type)
	assert.Equal(t, []domain.Weekday{domain.Sunday}, d.Availability.Days)
	assert.Equal(t, domain.Wednesday, d.Availability.PreorderOpensOn)
	assert.True(t, d.Availability.SpecialOrderSurcharge.Equal(decimal.NewFromInt(50)))
	require.NotNil(t, d.Nutrition)
	assert.Equal(t, 780, d.Nutrition.Calories)
	assert.False(t, d.Nutrition.Vegetarian)
	assert.Len(t, d.Gallery, 2)
}

func TestGetDish_WithoutNutrition(t *testing.T) {
	repo := setupTestDB(t)

	d, err := repo.GetDish(context.Background(), "festive-thali")
	require.NoError(t, err)
	assert.Nil(t, d.Nutrition)
	assert.Equal(t, []domain.Weekday{domain.Saturday, domain.Sunday}, d.Availability.Days)
	assert.Equal(t, domain.Friday, d.Availability.PreorderOpensOn)
	assert.True(t, d.Availability.RequiresPreorder)
	assert.Equal(t, domain.AvailabilityPreorderOnly, d.Availability.Type)
}

func TestGetDish_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetDish(context.Background(), "pizza")
	assert.ErrorIs(t, err, catalog.ErrDishNotFound)
}

func TestGetDishes_SkipsUnknownIDs(t *testing.T) {
	repo := setupTestDB(t)

	dishes, err := repo.GetDishes(context.Background(), []string{"dal-makhani", "gone", "gulab-jamun"})
	require.NoError(t, err)
	assert.Len(t, dishes, 2)
	assert.Contains(t, dishes, "dal-makhani")
	assert.Contains(t, dishes, "gulab-jamun")

	empty, err := repo.GetDishes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestListDishes_WithCancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := repo.ListDishes(ctx)
	assert.Error(t, err)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations("./migrations"))
}
