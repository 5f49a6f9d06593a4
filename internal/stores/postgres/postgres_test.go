package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakery-service/internal/users"
)

type fakeResult struct {
	n   int64
	err error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestExpectOne(t *testing.T) {
	assert.NoError(t, expectOne(fakeResult{n: 1}, users.ErrNotFound))
	assert.ErrorIs(t, expectOne(fakeResult{n: 0}, users.ErrNotFound), users.ErrNotFound)

	boom := errors.New("boom")
	assert.ErrorIs(t, expectOne(fakeResult{err: boom}, users.ErrNotFound), boom)
}

func TestIsUniqueViolation(t *testing.T) {
	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: uniqueViolation})
	assert.True(t, isUniqueViolation(dup))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
}

func TestDecodeCart(t *testing.T) {
	cart, err := decodeCart(nil)
	require.NoError(t, err)
	assert.Empty(t, cart)

	cart, err = decodeCart([]byte(`{"p1":2,"p2":1}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"p1": 2, "p2": 1}, cart)

	_, err = decodeCart([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(migrations, files[0])
	require.NoError(t, err)
	for _, table := range []string{"users", "products", "orders", "outbox"} {
		assert.True(t, strings.Contains(string(body), "CREATE TABLE "+table), table)
	}
	assert.Contains(t, string(body), "-- +goose Down")
}

func TestNewStoreRejectsNilDB(t *testing.T) {
	_, err := NewStore(nil)
	assert.Error(t, err)
}
