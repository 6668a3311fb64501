package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id int64, name string, price int64) Line {
	return Line{LocalID: id, ExternalID: name, Name: name, UnitPrice: decimal.NewFromInt(price)}
}

func TestAdd_TwiceIncrementsQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(42, "X", 100)))
	require.NoError(t, c.Add(line(42, "X", 100)))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(200).Equal(c.Total()))
	assert.Equal(t, 2, c.ItemCount())
}

func TestAdd_KeepsInsertionOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(3, "c", 1)))
	require.NoError(t, c.Add(line(1, "a", 1)))
	require.NoError(t, c.Add(line(2, "b", 1)))
	require.NoError(t, c.Add(line(1, "a", 1)))

	var ids []int64
	for _, l := range c.Lines() {
		ids = append(ids, l.LocalID)
	}
	assert.Equal(t, []int64{3, 1, 2}, ids)
}

func TestAdd_RejectsNegativeID(t *testing.T) {
	c := New()
	err := c.Add(line(-1, "bad", 10))
	assert.ErrorIs(t, err, ErrInvalidItem)
	assert.Zero(t, c.Len())
}

func TestAdd_IgnoresIncomingQuantity(t *testing.T) {
	c := New()
	l := line(7, "x", 10)
	l.Quantity = 9
	require.NoError(t, c.Add(l))

	got, ok := c.Get(7)
	require.True(t, ok)
	assert.Equal(t, 1, got.Quantity)
}

func TestRemove_EmptyCartIsNoop(t *testing.T) {
	c := New()
	assert.False(t, c.Remove(1))
	assert.Zero(t, c.Len())
}

func TestRemove(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(1, "a", 10)))
	require.NoError(t, c.Add(line(2, "b", 20)))

	assert.True(t, c.Remove(1))
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
}

func TestSetQuantity_ZeroRemoves(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(1, "a", 10)))

	assert.True(t, c.SetQuantity(1, 0))
	assert.Zero(t, c.Len())

	require.NoError(t, c.Add(line(1, "a", 10)))
	assert.True(t, c.SetQuantity(1, -3))
	assert.Zero(t, c.Len())
}

func TestSetQuantity_Idempotent(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(1, "a", 10)))

	assert.True(t, c.SetQuantity(1, 4))
	once := c.Lines()
	assert.False(t, c.SetQuantity(1, 4))
	assert.Equal(t, once, c.Lines())
}

func TestSetQuantity_UnknownLine(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(1, "a", 10)))
	assert.False(t, c.SetQuantity(99, 3))
}

func TestTotal_SkipsBrokenLines(t *testing.T) {
	c := New()
	c.lines = []Line{
		{LocalID: 1, UnitPrice: decimal.RequireFromString("12.50"), Quantity: 2},
		{LocalID: 2, UnitPrice: decimal.NewFromInt(-5), Quantity: 1},
		{LocalID: 3, UnitPrice: decimal.NewFromInt(10), Quantity: 0},
	}

	assert.Equal(t, "25", c.Total().String())
	assert.Equal(t, 3, c.ItemCount())
}

func TestReplace_DropsZeroQuantity(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(1, "a", 10)))

	c.Replace([]Line{
		{LocalID: 5, Name: "e", Quantity: 2},
		{LocalID: 6, Name: "f", Quantity: 0},
	})

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, int64(5), lines[0].LocalID)
}

func TestLines_ReturnsCopy(t *testing.T) {
	c := New()
	require.NoError(t, c.Add(line(1, "a", 10)))

	lines := c.Lines()
	lines[0].Quantity = 50

	got, _ := c.Get(1)
	assert.Equal(t, 1, got.Quantity)
}

func TestClear(t *testing.T) {
	c := New()
	assert.False(t, c.Clear())
	require.NoError(t, c.Add(line(1, "a", 10)))
	assert.True(t, c.Clear())
	assert.Zero(t, c.ItemCount())
	assert.True(t, decimal.Zero.Equal(c.Total()))
}

func TestPersistable(t *testing.T) {
	assert.True(t, Line{LocalID: 1, ExternalID: "x"}.Persistable())
	assert.False(t, Line{LocalID: 0, ExternalID: "x"}.Persistable())
	assert.False(t, Line{LocalID: 1}.Persistable())
}
