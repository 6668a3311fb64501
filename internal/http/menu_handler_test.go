package http

import (
	"net/http"
	"testing"

	"github.com/fjod/go_kitchen/internal/availability"
	"github.com/fjod/go_kitchen/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/health"})

	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestMenuList(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/menu"})

	requireStatus(t, rec, http.StatusOK)
	resp := decodeBody[MenuResponse](t, rec)
	assert.Equal(t, "2024-01-01", resp.AsOf)
	require.Len(t, resp.Dishes, 3)

	dal := resp.Dishes[0]
	assert.Equal(t, "dal-makhani", dal.ID)
	assert.Equal(t, "https://cdn.example.com/menu/dal.jpg", dal.ImageURL)
	assert.Equal(t, domain.StatusAvailable, dal.Verdict.Status)
	assert.True(t, dal.Verdict.CanOrder)
	assert.Equal(t, availability.VariantSuccess, dal.Badge.Variant)

	thali := resp.Dishes[1]
	assert.Equal(t, domain.StatusUnavailable, thali.Verdict.Status)
	assert.False(t, thali.Verdict.CanOrder)
	assert.Equal(t, availability.VariantMuted, thali.Badge.Variant)

	biryani := resp.Dishes[2]
	assert.Equal(t, domain.StatusSpecialOrder, biryani.Verdict.Status)
	assert.Equal(t, availability.VariantWarning, biryani.Badge.Variant)
	require.NotNil(t, biryani.Verdict.PriceWithSurcharge)
	assert.True(t, decimal.NewFromInt(500).Equal(*biryani.Verdict.PriceWithSurcharge))
	assert.Equal(t, []string{
		"https://cdn.example.com/menu/biryani-1.jpg",
		"https://img.example.com/biryani-2.jpg",
	}, biryani.Gallery)
	assert.Empty(t, biryani.ImageURL)
}

func TestMenuList_ETag(t *testing.T) {
	env := newTestEnv(t)

	first := env.do(t, request{method: http.MethodGet, path: "/api/v1/menu"})
	requireStatus(t, first, http.StatusOK)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cached := env.do(t, request{
		method: http.MethodGet,
		path:   "/api/v1/menu",
		header: map[string]string{"If-None-Match": etag},
	})
	requireStatus(t, cached, http.StatusNotModified)
	assert.Zero(t, cached.Body.Len())
	assert.Equal(t, etag, cached.Header().Get("ETag"))

	changed := dal()
	changed.Price = decimal.NewFromInt(240)
	env.catalog.set(changed)

	fresh := env.do(t, request{
		method: http.MethodGet,
		path:   "/api/v1/menu",
		header: map[string]string{"If-None-Match": etag},
	})
	requireStatus(t, fresh, http.StatusOK)
	assert.NotEqual(t, etag, fresh.Header().Get("ETag"))
}

func TestMenuGet(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/menu/sunday-biryani"})

	requireStatus(t, rec, http.StatusOK)
	dish := decodeBody[DishResponse](t, rec)
	assert.Equal(t, "Sunday Biryani", dish.Name)
	assert.Equal(t, domain.StatusSpecialOrder, dish.Verdict.Status)
}

func TestMenuGet_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/menu/nope"})

	requireStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, "dish_not_found", decodeBody[ErrorResponse](t, rec).Code)
}

func TestMenu_InvalidTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, request{method: http.MethodGet, path: "/api/v1/menu", token: "garbage"})

	requireStatus(t, rec, http.StatusUnauthorized)
}

func TestETagMatches(t *testing.T) {
	assert.True(t, etagMatches(`"abc"`, `"abc"`))
	assert.True(t, etagMatches(`"x", W/"abc"`, `"abc"`))
	assert.True(t, etagMatches(`*`, `"abc"`))
	assert.False(t, etagMatches(``, `"abc"`))
	assert.False(t, etagMatches(`"abd"`, `"abc"`))
}
