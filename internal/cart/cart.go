package cart

import (
	"errors"
	"slices"

	"github.com/shopspring/decimal"
)

var ErrInvalidItem = errors.New("invalid cart item")

// Line is one dish in the cart. UnitPrice is captured when the dish is added
// and is not refreshed afterwards.
type Line struct {
	LocalID    int64           `json:"local_id"`
	ExternalID string          `json:"dish_id,omitempty"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	ImageRef   string          `json:"image_ref,omitempty"`
}

// Persistable reports whether the line can be written to the remote store.
func (l Line) Persistable() bool {
	return l.LocalID > 0 && l.ExternalID != ""
}

// Cart keeps lines in insertion order. It is not safe for concurrent use;
// the owning session serialises access.
type Cart struct {
	lines []Line
}

func New() *Cart {
	return &Cart{}
}

// Add increments the quantity of the line with the same local id, or appends
// a new line with quantity 1.
func (c *Cart) Add(line Line) error {
	if line.LocalID < 0 {
		return ErrInvalidItem
	}
	if i := c.index(line.LocalID); i >= 0 {
		c.lines[i].Quantity++
		return nil
	}
	line.Quantity = 1
	c.lines = append(c.lines, line)
	return nil
}

// Remove deletes the line with localID. It reports whether anything changed.
func (c *Cart) Remove(localID int64) bool {
	i := c.index(localID)
	if i < 0 {
		return false
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	return true
}

// SetQuantity sets the quantity of a line; zero or less removes it.
func (c *Cart) SetQuantity(localID int64, qty int) bool {
	if qty <= 0 {
		return c.Remove(localID)
	}
	i := c.index(localID)
	if i < 0 || c.lines[i].Quantity == qty {
		return false
	}
	c.lines[i].Quantity = qty
	return true
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		if l.Quantity > 0 {
			n += l.Quantity
		}
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		if l.Quantity <= 0 || l.UnitPrice.IsNegative() {
			continue
		}
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

func (c *Cart) Clear() bool {
	if len(c.lines) == 0 {
		return false
	}
	c.lines = nil
	return true
}

// Replace swaps the whole content, dropping lines that break the quantity invariant.
func (c *Cart) Replace(lines []Line) {
	c.lines = c.lines[:0:0]
	for _, l := range lines {
		if l.Quantity >= 1 {
			c.lines = append(c.lines, l)
		}
	}
}

// Lines returns a copy of the cart content.
func (c *Cart) Lines() []Line {
	return slices.Clone(c.lines)
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Get(localID int64) (Line, bool) {
	if i := c.index(localID); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

func (c *Cart) index(localID int64) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.LocalID == localID })
}
