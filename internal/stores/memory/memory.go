// Package memory keeps every store in process memory. It backs local runs
// with STORE_DRIVER=memory and the HTTP tests.
package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"bakery-service/internal/orders"
	"bakery-service/internal/products"
	"bakery-service/internal/users"

	"github.com/google/uuid"
)

// MaxPendingEvents bounds the outbox. Without a relay nothing drains it, so the
// oldest unpublished events are dropped past this size.
const MaxPendingEvents = 1000

type Store struct {
	mu       sync.Mutex
	users    map[string]users.User
	products map[string]products.Product
	orders   map[string]orders.Order
	outbox   []orders.Event
}

func New() *Store {
	return &Store{
		users:    map[string]users.User{},
		products: map[string]products.Product{},
		orders:   map[string]orders.Order{},
	}
}

func (s *Store) InsertUser(_ context.Context, u users.User) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return users.User{}, users.ErrDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CartData = maps.Clone(u.CartData)
	if u.CartData == nil {
		u.CartData = map[string]int{}
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UserByID(_ context.Context, id string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	u.CartData = maps.Clone(u.CartData)
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u.CartData = maps.Clone(u.CartData)
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (s *Store) CartOf(_ context.Context, userID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, users.ErrNotFound
	}
	return maps.Clone(u.CartData), nil
}

func (s *Store) SaveCart(_ context.Context, userID string, cart map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return users.ErrNotFound
	}
	u.CartData = maps.Clone(cart)
	s.users[userID] = u
	return nil
}

func (s *Store) InsertProduct(_ context.Context, p products.Product) (products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.products[p.ID] = p
	return p, nil
}

func (s *Store) ListProducts(context.Context) ([]products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Collect(maps.Values(s.products))
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ProductByID(_ context.Context, id string) (products.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return products.Product{}, products.ErrNotFound
	}
	return p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return products.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) PlaceOrder(_ context.Context, o orders.Order, ev orders.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[o.UserID]
	if !ok {
		return users.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	s.orders[o.ID] = o
	u.CartData = map[string]int{}
	s.users[o.UserID] = u
	s.queue(ev)
	return nil
}

func (s *Store) OrderByID(_ context.Context, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	o.Items = slices.Clone(o.Items)
	return o, nil
}

func (s *Store) OrdersByUser(_ context.Context, userID string) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listOrders(func(o orders.Order) bool { return o.UserID == userID }), nil
}

func (s *Store) AllOrders(context.Context) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listOrders(func(orders.Order) bool { return true }), nil
}

func (s *Store) listOrders(keep func(orders.Order) bool) []orders.Order {
	var out []orders.Order
	for _, o := range s.orders {
		if keep(o) {
			o.Items = slices.Clone(o.Items)
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (s *Store) UpdateStatus(_ context.Context, id, status string, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	return s.mutate(id, func(o *orders.Order) { o.Status = status }, ev)
}

func (s *Store) MarkPaid(_ context.Context, id, paymentRef string, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	return s.mutate(id, func(o *orders.Order) {
		o.Payment = true
		o.PaymentRef = paymentRef
	}, ev)
}

func (s *Store) mutate(id string, apply func(*orders.Order), ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	apply(&o)
	e, err := ev(o)
	if err != nil {
		return orders.Order{}, err
	}
	s.orders[id] = o
	s.queue(e)
	return o, nil
}

func (s *Store) queue(e orders.Event) {
	if len(s.outbox) >= MaxPendingEvents {
		s.outbox = slices.Delete(s.outbox, 0, len(s.outbox)-MaxPendingEvents+1)
	}
	s.outbox = append(s.outbox, e)
}

// PendingEvents returns up to limit unpublished outbox events, oldest first.
func (s *Store) PendingEvents(_ context.Context, limit int) ([]orders.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := max(0, min(limit, len(s.outbox)))
	return slices.Clone(s.outbox[:n]), nil
}

// MarkPublished removes the published events from the outbox.
func (s *Store) MarkPublished(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = slices.DeleteFunc(s.outbox, func(e orders.Event) bool {
		return slices.Contains(ids, e.ID)
	})
	return nil
}

// PendingCount is the number of events still waiting for the relay.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}
