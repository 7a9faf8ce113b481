// Package cart holds the in-memory cart model: lines referencing catalog
// products with quantities, selected add-ons, and free-text notes.
package cart

import (
	"github.com/go-faster/errors"
)

// ErrLineNotFound is returned when a referenced cart line does not exist.
var ErrLineNotFound = errors.New("cart line not found")

// Line is a single cart entry. AddonIDs reference catalog add-ons; Note is
// free-text passed through to the kitchen.
type Line struct {
	ID        string
	ProductID string
	Quantity  int
	AddonIDs  []string
	Note      string
}

// Cart is an ordered collection of lines. The version counter increments on
// every mutation so in-flight async work can detect that it is stale.
type Cart struct {
	lines   []Line
	version uint64
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Version returns the current mutation counter.
func (c *Cart) Version() uint64 {
	return c.version
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// Add appends a line. Quantity below 1 is clamped to 1.
func (c *Cart) Add(line Line) {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	c.lines = append(c.lines, line)
	c.version++
}

// SetQuantity replaces the quantity of the given line, clamping below 1 to 1.
func (c *Cart) SetQuantity(lineID string, quantity int) error {
	l := c.find(lineID)
	if l == nil {
		return ErrLineNotFound
	}
	if quantity < 1 {
		quantity = 1
	}
	l.Quantity = quantity
	c.version++
	return nil
}

// SetAddons replaces the selected add-on IDs of the given line.
func (c *Cart) SetAddons(lineID string, addonIDs []string) error {
	l := c.find(lineID)
	if l == nil {
		return ErrLineNotFound
	}
	l.AddonIDs = append([]string(nil), addonIDs...)
	c.version++
	return nil
}

// SetNote replaces the free-text note of the given line.
func (c *Cart) SetNote(lineID string, note string) error {
	l := c.find(lineID)
	if l == nil {
		return ErrLineNotFound
	}
	l.Note = note
	c.version++
	return nil
}

// Remove deletes the given line.
func (c *Cart) Remove(lineID string) error {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.version++
			return nil
		}
	}
	return ErrLineNotFound
}

func (c *Cart) find(lineID string) *Line {
	for i := range c.lines {
		if c.lines[i].ID == lineID {
			return &c.lines[i]
		}
	}
	return nil
}
