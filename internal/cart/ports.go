package cart

import "context"

// Store reads and replaces the cart embedded in a user record. Both methods
// return users.ErrNotFound when the user does not exist.
type Store interface {
	CartOf(ctx context.Context, userID string) (map[string]int, error)
	SaveCart(ctx context.Context, userID string, cart map[string]int) error
}
