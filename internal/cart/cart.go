package cart

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"bakery-service/internal/users"
	"bakery-service/pkg/apperr"
)

type Conf struct {
	store Store
}

func NewConf(store Store) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store is nil")
	}
	return &Conf{store: store}, nil
}

// Add increments the quantity of itemID by qty, creating the key if needed.
func (c *Conf) Add(ctx context.Context, userID, itemID string, qty int) (map[string]int, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperr.Invalid("Item ID is required", nil)
	}
	if qty < 1 {
		return nil, apperr.Invalid("Quantity must be a positive number", nil)
	}

	cart, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart[itemID] += qty
	return cart, c.save(ctx, userID, cart)
}

// Update overwrites the quantity of itemID. Zero removes the key and is a
// no-op when it is already absent.
func (c *Conf) Update(ctx context.Context, userID, itemID string, qty int) (map[string]int, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperr.Invalid("Item ID and quantity are required", nil)
	}
	if qty < 0 {
		return nil, apperr.Invalid("Quantity must be a non-negative number", nil)
	}

	cart, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if qty == 0 {
		delete(cart, itemID)
	} else {
		cart[itemID] = qty
	}
	return cart, c.save(ctx, userID, cart)
}

func (c *Conf) Remove(ctx context.Context, userID, itemID string) (map[string]int, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, apperr.Invalid("Item ID is required", nil)
	}

	cart, err := c.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := cart[itemID]; !ok {
		return nil, apperr.NotFound("Item not found in cart")
	}
	delete(cart, itemID)
	return cart, c.save(ctx, userID, cart)
}

func (c *Conf) Get(ctx context.Context, userID string) (map[string]int, error) {
	return c.load(ctx, userID)
}

func (c *Conf) Clear(ctx context.Context, userID string) (map[string]int, error) {
	cart := map[string]int{}
	return cart, c.save(ctx, userID, cart)
}

// Count returns the sum of quantities and the number of distinct items.
func (c *Conf) Count(ctx context.Context, userID string) (int, int, error) {
	cart, err := c.load(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	total := 0
	for _, q := range cart {
		total += q
	}
	return total, len(cart), nil
}

// load returns a private copy of the stored cart with non-positive entries
// dropped, so a corrupt record never leaks a zero quantity back to clients.
func (c *Conf) load(ctx context.Context, userID string) (map[string]int, error) {
	stored, err := c.store.CartOf(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, apperr.Unauthorized("User not found")
		}
		return nil, apperr.Upstream("Failed to load cart", err)
	}

	cart := make(map[string]int, len(stored))
	maps.Copy(cart, stored)
	maps.DeleteFunc(cart, func(_ string, q int) bool { return q < 1 })
	return cart, nil
}

func (c *Conf) save(ctx context.Context, userID string, cart map[string]int) error {
	if err := c.store.SaveCart(ctx, userID, cart); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return apperr.Unauthorized("User not found")
		}
		return apperr.Upstream("Failed to save cart", err)
	}
	return nil
}
