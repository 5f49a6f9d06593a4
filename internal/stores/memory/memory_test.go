package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"bakery-service/internal/orders"
	"bakery-service/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderClearsCartAndQueuesEvent(t *testing.T) {
	ctx := context.Background()
	s := New()

	u, err := s.InsertUser(ctx, users.User{Email: "a@x.com"})
	require.NoError(t, err)
	require.NoError(t, s.SaveCart(ctx, u.ID, map[string]int{"P1": 2}))

	err = s.PlaceOrder(ctx, orders.Order{ID: "o1", UserID: u.ID, Date: time.Now()}, orders.Event{ID: "e1", OrderID: "o1"})
	require.NoError(t, err)

	cart, err := s.CartOf(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart)

	pending, err := s.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, s.MarkPublished(ctx, []string{"e1"}))
	pending, err = s.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOutboxStaysBounded(t *testing.T) {
	ctx := context.Background()
	s := New()
	u, err := s.InsertUser(ctx, users.User{Email: "busy@x.com"})
	require.NoError(t, err)

	for i := range MaxPendingEvents + 5 {
		id := fmt.Sprintf("o%d", i)
		err := s.PlaceOrder(ctx, orders.Order{ID: id, UserID: u.ID}, orders.Event{ID: "e-" + id, OrderID: id})
		require.NoError(t, err)
	}
	assert.Equal(t, MaxPendingEvents, s.PendingCount())

	pending, err := s.PendingEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "e-o5", pending[0].ID)

	require.NoError(t, s.MarkPublished(ctx, []string{pending[0].ID, pending[1].ID}))
	assert.Equal(t, MaxPendingEvents-2, s.PendingCount())

	_, err = s.UpdateStatus(ctx, "o7", orders.StatusShipped, func(o orders.Order) (orders.Event, error) {
		return orders.Event{ID: "e-status", OrderID: o.ID}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, MaxPendingEvents-1, s.PendingCount())
}

func TestPlaceOrderUnknownUser(t *testing.T) {
	s := New()
	err := s.PlaceOrder(context.Background(), orders.Order{ID: "o1", UserID: "ghost"}, orders.Event{})
	assert.ErrorIs(t, err, users.ErrNotFound)

	_, err = s.OrderByID(context.Background(), "o1")
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

func TestDuplicateEmail(t *testing.T) {
	s := New()
	_, err := s.InsertUser(context.Background(), users.User{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = s.InsertUser(context.Background(), users.User{Email: "A@x.com"})
	assert.ErrorIs(t, err, users.ErrDuplicateEmail)
}

func TestImagesInline(t *testing.T) {
	url, err := Images{}.Upload(context.Background(), "k", "image/png", strings.NewReader("png"), 3)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,cG5n", url)
}
