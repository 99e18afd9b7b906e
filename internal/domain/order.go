package domain

import "time"

// Order status constants.
const (
	OrderStatusPlaced = "placed"
)

// Order is the record written when a checkout completes.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Status         string      `json:"status"`
	Items          []OrderItem `json:"items"`
	SubtotalAmount int64       `json:"subtotal_amount"`
	TotalAmount    int64       `json:"total_amount"`
	Currency       string      `json:"currency"`
	Shipping       Contact     `json:"shipping"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrderItem is a single purchased line, copied from the cart at checkout.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Contact holds the shipping and contact details collected by the checkout form.
type Contact struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zip_code"`
}
