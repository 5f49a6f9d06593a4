package cart

import (
	"context"
	"errors"
	"maps"
	"sync"
	"testing"

	"bakery-service/internal/users"
	"bakery-service/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	carts   map[string]map[string]int
	saves   int
	saveErr error
}

func newFakeStore(userIDs ...string) *fakeStore {
	f := &fakeStore{carts: map[string]map[string]int{}}
	for _, id := range userIDs {
		f.carts[id] = map[string]int{}
	}
	return f
}

func (f *fakeStore) CartOf(_ context.Context, userID string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return nil, users.ErrNotFound
	}
	return maps.Clone(c), nil
}

func (f *fakeStore) SaveCart(_ context.Context, userID string, cart map[string]int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.carts[userID]; !ok {
		return users.ErrNotFound
	}
	f.saves++
	f.carts[userID] = maps.Clone(cart)
	return nil
}

func newCart(t *testing.T, store Store) *Conf {
	t.Helper()
	c, err := NewConf(store)
	require.NoError(t, err)
	return c
}

func TestAddAccumulates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("u1")
	c := newCart(t, store)

	_, err := c.Add(ctx, "u1", "x", 2)
	require.NoError(t, err)
	got, err := c.Add(ctx, "u1", "x", 3)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"x": 5}, got)
	assert.Equal(t, 5, store.carts["u1"]["x"])
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore("u1")
	c := newCart(t, store)

	tests := []struct {
		name   string
		itemID string
		qty    int
	}{
		{"empty id", "  ", 1},
		{"zero quantity", "x", 0},
		{"negative quantity", "x", -4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Add(ctx, "u1", tt.itemID, tt.qty)
			assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
		})
	}
	assert.Zero(t, store.saves)
}

func TestUpdateToZeroIsIdempotentRemoval(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, newFakeStore("u1"))

	_, err := c.Add(ctx, "u1", "x", 2)
	require.NoError(t, err)

	for range 2 {
		got, err := c.Update(ctx, "u1", "x", 0)
		require.NoError(t, err)
		assert.NotContains(t, got, "x")
	}

	got, err := c.Update(ctx, "u1", "never-added", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateOverwrites(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, newFakeStore("u1"))

	_, err := c.Add(ctx, "u1", "x", 4)
	require.NoError(t, err)
	got, err := c.Update(ctx, "u1", "x", 1)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 1}, got)

	_, err = c.Update(ctx, "u1", "x", -1)
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, newFakeStore("u1"))

	_, err := c.Add(ctx, "u1", "x", 1)
	require.NoError(t, err)

	got, err := c.Remove(ctx, "u1", "x")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = c.Remove(ctx, "u1", "x")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestClearAndCount(t *testing.T) {
	ctx := context.Background()
	c := newCart(t, newFakeStore("u1"))

	_, err := c.Add(ctx, "u1", "a", 2)
	require.NoError(t, err)
	_, err = c.Add(ctx, "u1", "b", 3)
	require.NoError(t, err)

	count, unique, err := c.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 2, unique)

	cleared, err := c.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cleared)

	got, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetDropsNonPositiveEntries(t *testing.T) {
	store := newFakeStore("u1")
	store.carts["u1"] = map[string]int{"ok": 2, "zero": 0, "neg": -1}
	c := newCart(t, store)

	got, err := c.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ok": 2}, got)
}

func TestUnknownUserIsUnauthorized(t *testing.T) {
	c := newCart(t, newFakeStore())

	_, err := c.Add(context.Background(), "ghost", "x", 1)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = c.Clear(context.Background(), "ghost")
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestSaveFailureIsUpstream(t *testing.T) {
	store := newFakeStore("u1")
	store.saveErr = errors.New("write conflict")
	c := newCart(t, store)

	_, err := c.Add(context.Background(), "u1", "x", 1)
	assert.True(t, apperr.Is(err, apperr.KindUpstream))
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in      any
		want    int
		wantErr bool
	}{
		{float64(2), 2, false},
		{float64(2.9), 2, false},
		{"3", 3, false},
		{" 4 boxes", 4, false},
		{"-1", -1, false},
		{"abc", 0, true},
		{"", 0, true},
		{nil, 0, true},
		{true, 0, true},
	}
	for _, tt := range tests {
		got, err := ParseQuantity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}
