package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mondayEngine() *availability.Engine {
	return availability.NewEngine(time.UTC, func() time.Time { return monday })
}

func TestLoader_EnrichesRowsInStoredOrder(t *testing.T) {
	store := newMockStore()
	ctx := context.Background()
	require.NoError(t, store.InsertCartRows(ctx, "user-1", []repository.Row{
		{DishRef: "b", Quantity: 2},
		{DishRef: "a", Quantity: 1},
	}))
	l := NewLoader(store, newMockCatalog(dish("a", "Aloo", 60), dish("b", "Bhindi", 80)), mondayEngine(), discardLogger())

	rows, err := l.Load(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].DishRef)
	assert.Equal(t, "Bhindi", rows[0].Recipe.Name)
	assert.Equal(t, "80", rows[0].Recipe.Price.String())
	assert.Equal(t, 1, rows[1].Quantity)
}

func TestLoader_EmptyCart(t *testing.T) {
	l := NewLoader(newMockStore(), newMockCatalog(), mondayEngine(), discardLogger())

	rows, err := l.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoader_ReadError(t *testing.T) {
	store := newMockStore()
	store.setReadErr(errStoreDown)
	l := NewLoader(store, newMockCatalog(), mondayEngine(), discardLogger())

	_, err := l.Load(context.Background(), "user-1")
	assert.ErrorIs(t, err, errStoreDown)
}

func TestLoader_ConcurrentLoadsShareOneRead(t *testing.T) {
	store := newMockStore()
	ctx := context.Background()
	require.NoError(t, store.InsertCartRows(ctx, "user-1", []repository.Row{{DishRef: "a", Quantity: 1}}))
	l := NewLoader(store, newMockCatalog(dish("a", "A", 10)), mondayEngine(), discardLogger())

	started, release := store.gateReads()

	const callers = 5
	var wg sync.WaitGroup
	results := make(chan int, callers)
	wg.Add(1)
	go func() {
		defer wg.Done()
		rows, err := l.Load(ctx, "user-1")
		if err == nil {
			results <- len(rows)
		}
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := l.Load(ctx, "user-1")
			if err == nil {
				results <- len(rows)
			}
		}()
	}
	// give the late callers time to join the in-flight read
	time.Sleep(50 * time.Millisecond)
	release()
	wg.Wait()
	close(results)

	for n := range results {
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, 1, store.readCount())
}

func TestLoader_PricesSpecialOrdersWithSurcharge(t *testing.T) {
	store := newMockStore()
	ctx := context.Background()
	require.NoError(t, store.InsertCartRows(ctx, "user-1", []repository.Row{{DishRef: "sunday-biryani", Quantity: 1}}))

	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"special order on a weekday", tuesday, "500"},
		{"preorder on saturday", saturday, "450"},
		{"available on sunday", sunday, "450"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			engine := availability.NewEngine(time.UTC, func() time.Time { return at })
			l := NewLoader(store, newMockCatalog(biryani()), engine, discardLogger())

			rows, err := l.Load(ctx, "user-1")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0].Recipe.Price.String())
		})
	}
}
