package orders

import (
	"context"
	"errors"

	"bakery-service/internal/products"
)

var ErrNotFound = errors.New("order not found")

// Store is the order store. Every mutating call writes the order change and
// its outbox event atomically.
type Store interface {
	// PlaceOrder inserts o, empties the cart of o.UserID and appends ev in
	// one transaction. It returns users.ErrNotFound when the user is gone.
	PlaceOrder(ctx context.Context, o Order, ev Event) error
	OrderByID(ctx context.Context, id string) (Order, error)
	// OrdersByUser and AllOrders return newest first.
	OrdersByUser(ctx context.Context, userID string) ([]Order, error)
	AllOrders(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id, status string, ev func(Order) (Event, error)) (Order, error)
	MarkPaid(ctx context.Context, id, paymentRef string, ev func(Order) (Event, error)) (Order, error)
}

// Catalog resolves product names for order lines.
type Catalog interface {
	ProductByID(ctx context.Context, id string) (products.Product, error)
}

// Checkout starts an online payment for a card order and returns the URL the
// customer is redirected to.
type Checkout interface {
	NewSession(ctx context.Context, o Order) (string, error)
}
