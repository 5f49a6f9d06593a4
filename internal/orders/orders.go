package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bakery-service/internal/cart"
	"bakery-service/internal/products"
	"bakery-service/internal/users"
	"bakery-service/pkg/apperr"
	"bakery-service/pkg/logkey"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// lookupLimit bounds concurrent catalog reads while resolving product names.
const lookupLimit = 8

type Conf struct {
	store    Store
	catalog  Catalog
	checkout Checkout
	pricing  Pricing
	now      func() time.Time
	newID    func() string
}

// NewConf builds the order workflow. checkout may be nil, in which case card
// orders are placed without an online payment session.
func NewConf(store Store, catalog Catalog, checkout Checkout, pricing Pricing) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("order store is nil")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	return &Conf{
		store:    store,
		catalog:  catalog,
		checkout: checkout,
		pricing:  pricing,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Place validates the request, recomputes the total and persists the order
// together with the cart reset. Validation failures never touch the store.
func (c *Conf) Place(ctx context.Context, userID string, req NewOrder) (Placed, error) {
	if userID == "" {
		return Placed{}, apperr.Unauthorized("User not authenticated")
	}

	o, err := c.build(userID, req)
	if err != nil {
		return Placed{}, err
	}

	ev, err := newEvent(EventOrderPlaced, o, o.Date)
	if err != nil {
		return Placed{}, apperr.Upstream("Failed to place order", err)
	}
	if err := c.store.PlaceOrder(ctx, o, ev); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Placed{}, apperr.Unauthorized("User not found")
		}
		return Placed{}, apperr.Upstream("Failed to place order", err)
	}

	res := Placed{Order: o}
	if c.checkout != nil && IsCard(o.PaymentMethod) && !o.Payment {
		url, err := c.checkout.NewSession(ctx, o)
		if err != nil {
			// the order stands; the customer can still pay on delivery
			slog.Error("checkout session failed", slog.String(logkey.OrderID, o.ID), slog.String(logkey.ERROR, err.Error()))
		} else {
			res.CheckoutURL = url
		}
	}
	return res, nil
}

func (c *Conf) build(userID string, req NewOrder) (Order, error) {
	if req.Items == nil || req.Amount == nil || req.Address == nil {
		return Order{}, apperr.Invalid("Missing required fields for order placement", map[string]bool{
			"items":   req.Items == nil,
			"amount":  req.Amount == nil,
			"address": req.Address == nil,
		})
	}
	if len(req.Items) == 0 {
		return Order{}, apperr.Invalid("Items must be a non-empty array", nil)
	}
	if missing := req.Address.missing(); len(missing) > 0 {
		return Order{}, apperr.Invalid("Missing required address fields", missing)
	}

	items := make([]Item, 0, len(req.Items))
	var bad []string
	for i, in := range req.Items {
		id := strings.TrimSpace(in.ProductID)
		if id == "" {
			bad = append(bad, fmt.Sprintf("items[%d].productId", i))
		}
		qty, err := cart.ParseQuantity(in.Quantity)
		if err != nil || qty < 1 {
			bad = append(bad, fmt.Sprintf("items[%d].quantity", i))
		}
		if in.Price == nil || in.Price.IsNegative() {
			bad = append(bad, fmt.Sprintf("items[%d].price", i))
		}
		if len(bad) > 0 {
			continue
		}
		items = append(items, Item{ProductID: id, Quantity: qty, Price: in.Price.Round(2)})
	}
	if len(bad) > 0 {
		return Order{}, apperr.Invalid("Order validation failed", bad)
	}

	method := normalizePaymentMethod(req.PaymentMethod)

	q := c.pricing.Quote(items)
	if !q.Matches(*req.Amount) {
		return Order{}, apperr.Invalid("Order amount does not match items", map[string]string{
			"expected":  q.Total.StringFixed(2),
			"submitted": req.Amount.String(),
		})
	}

	payment := false
	if req.Payment != nil {
		payment = *req.Payment
	}

	return Order{
		ID:            c.newID(),
		UserID:        userID,
		Items:         items,
		Subtotal:      q.Subtotal,
		ShippingFee:   q.ShippingFee,
		Tax:           q.Tax,
		Amount:        q.Total,
		Address:       req.Address.trimmed(),
		Status:        StatusPlaced,
		PaymentMethod: method,
		Payment:       payment,
		Date:          c.now().UTC(),
	}, nil
}

// UserOrders returns the caller's orders with product names filled in.
func (c *Conf) UserOrders(ctx context.Context, userID string) ([]Order, error) {
	list, err := c.store.OrdersByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch orders", err)
	}
	return c.withNames(ctx, list), nil
}

func (c *Conf) AllOrders(ctx context.Context) ([]Order, error) {
	list, err := c.store.AllOrders(ctx)
	if err != nil {
		return nil, apperr.Upstream("Failed to fetch orders", err)
	}
	return c.withNames(ctx, list), nil
}

func (c *Conf) Order(ctx context.Context, id string) (Order, error) {
	if strings.TrimSpace(id) == "" {
		return Order{}, apperr.Invalid("Order ID is required", nil)
	}
	o, err := c.store.OrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, apperr.NotFound("Order not found")
		}
		return Order{}, apperr.Upstream("Failed to fetch order", err)
	}
	return o, nil
}

// UpdateStatus replaces the status of an order. Transitions are not checked.
func (c *Conf) UpdateStatus(ctx context.Context, id, status string) (Order, error) {
	id, status = strings.TrimSpace(id), strings.TrimSpace(status)
	if id == "" || status == "" {
		return Order{}, apperr.Invalid("Order ID and status are required", nil)
	}
	if !ValidStatus(status) {
		return Order{}, apperr.Invalid("Invalid order status", Statuses)
	}

	o, err := c.store.UpdateStatus(ctx, id, status, func(o Order) (Event, error) {
		return newEvent(EventStatusChanged, o, c.now().UTC())
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, apperr.NotFound("Order not found")
		}
		return Order{}, apperr.Upstream("Failed to update status", err)
	}
	return o, nil
}

// MarkPaid records a settled online payment.
func (c *Conf) MarkPaid(ctx context.Context, id, paymentRef string) (Order, error) {
	if strings.TrimSpace(id) == "" {
		return Order{}, apperr.Invalid("Order ID is required", nil)
	}

	o, err := c.store.MarkPaid(ctx, id, paymentRef, func(o Order) (Event, error) {
		return newEvent(EventOrderPaid, o, c.now().UTC())
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, apperr.NotFound("Order not found")
		}
		return Order{}, apperr.Upstream("Failed to record payment", err)
	}
	return o, nil
}

func (c *Conf) withNames(ctx context.Context, list []Order) []Order {
	var all []Item
	for _, o := range list {
		all = append(all, o.Items...)
	}
	names := ProductNames(ctx, c.catalog, all)

	for i := range list {
		for j := range list[i].Items {
			list[i].Items[j].ProductName = names[list[i].Items[j].ProductID]
		}
	}
	if list == nil {
		list = []Order{}
	}
	return list
}

// ProductNames resolves the display name of every distinct product in items.
// Products that no longer exist, or cannot be read, map to UnknownProduct.
func ProductNames(ctx context.Context, catalog Catalog, items []Item) map[string]string {
	ids := make(map[string]struct{}, len(items))
	for _, it := range items {
		ids[it.ProductID] = struct{}{}
	}

	var mu sync.Mutex
	names := make(map[string]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupLimit)
	for id := range ids {
		g.Go(func() error {
			name := UnknownProduct
			p, err := catalog.ProductByID(gctx, id)
			switch {
			case err == nil:
				name = p.Name
			case !errors.Is(err, products.ErrNotFound):
				slog.Warn("product lookup failed", slog.String(logkey.Product, id), slog.String(logkey.ERROR, err.Error()))
			}

			mu.Lock()
			names[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}
