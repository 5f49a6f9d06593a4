package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bakery-service/internal/users"
)

const userColumns = `id, name, email, password_hash, cart_data, created_at`

func (s *Store) InsertUser(ctx context.Context, u users.User) (users.User, error) {
	u.ID = uuid.NewString()
	if u.CartData == nil {
		u.CartData = map[string]int{}
	}
	cart, err := json.Marshal(u.CartData)
	if err != nil {
		return users.User{}, err
	}

	const q = `INSERT INTO users (id, name, email, password_hash, cart_data, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = s.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, cart, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return users.User{}, users.ErrDuplicateEmail
		}
		return users.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (users.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (users.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (s *Store) CartOf(ctx context.Context, userID string) (map[string]int, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT cart_data FROM users WHERE id = $1`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cart: %w", err)
	}
	return decodeCart(raw)
}

func (s *Store) SaveCart(ctx context.Context, userID string, cart map[string]int) error {
	if cart == nil {
		cart = map[string]int{}
	}
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET cart_data = $2 WHERE id = $1`, userID, data)
	if err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return expectOne(res, users.ErrNotFound)
}

func scanUser(row scanner) (users.User, error) {
	var (
		u    users.User
		cart []byte
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &cart, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return users.User{}, users.ErrNotFound
	}
	if err != nil {
		return users.User{}, fmt.Errorf("scanning user: %w", err)
	}
	if u.CartData, err = decodeCart(cart); err != nil {
		return users.User{}, err
	}
	return u, nil
}

func decodeCart(raw []byte) (map[string]int, error) {
	cart := map[string]int{}
	if len(raw) == 0 {
		return cart, nil
	}
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	return cart, nil
}

// expectOne turns an update that touched no row into notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
