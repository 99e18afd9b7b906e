package domain

// CartLine is one row in the cart: a product snapshot taken at the time of
// the first add, with a quantity. A line with quantity 0 must never exist;
// decrementing to zero removes the line instead.
type CartLine struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"` // cents
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
}

// Cart is an ordered sequence of lines, at most one per product ID. Order is
// the insertion order of the first add and governs display order.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Subtotal returns the exact sum of unit price times quantity over all lines,
// in cents. It is always derived, never stored.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// Count returns the total quantity across all lines, used by the navbar badge.
func (c *Cart) Count() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// FindLine returns the index of the line with the given product ID, or -1.
func (c *Cart) FindLine(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}
