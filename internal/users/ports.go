package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Store is the credential store. Implementations return ErrNotFound for
// missing users and ErrDuplicateEmail when the unique email constraint trips.
type Store interface {
	InsertUser(ctx context.Context, u User) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
}
