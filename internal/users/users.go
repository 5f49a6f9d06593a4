package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakery-service/internal/auth"
	"bakery-service/pkg/apperr"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type Conf struct {
	store         Store
	keys          *auth.Keys
	adminEmail    string
	adminPassword string
	now           func() time.Time
}

func NewConf(store Store, keys *auth.Keys, adminEmail, adminPassword string) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("user store is nil")
	}
	if keys == nil {
		return nil, fmt.Errorf("auth keys are nil")
	}
	return &Conf{
		store:         store,
		keys:          keys,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		now:           time.Now,
	}, nil
}

// Register creates a user with a hashed password and an empty cart and
// returns a token for it.
func (c *Conf) Register(ctx context.Context, nu NewUser) (User, string, error) {
	nu.Email = strings.TrimSpace(nu.Email)

	_, err := c.store.UserByEmail(ctx, nu.Email)
	switch {
	case err == nil:
		return User{}, "", apperr.Invalid("User already exists", nil)
	case !errors.Is(err, ErrNotFound):
		return User{}, "", apperr.Upstream("Failed to register user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcryptCost)
	if err != nil {
		return User{}, "", apperr.Upstream("Failed to register user", fmt.Errorf("hashing password: %w", err))
	}

	u, err := c.store.InsertUser(ctx, User{
		Name:         strings.TrimSpace(nu.Name),
		Email:        nu.Email,
		PasswordHash: string(hash),
		CartData:     map[string]int{},
		CreatedAt:    c.now().UTC(),
	})
	if err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, ErrDuplicateEmail) {
			return User{}, "", apperr.Invalid("User already exists", nil)
		}
		return User{}, "", apperr.Upstream("Failed to register user", err)
	}

	token, err := c.keys.GenerateToken(u.ID)
	if err != nil {
		return User{}, "", apperr.Upstream("Failed to register user", err)
	}
	return u, token, nil
}

// Login checks the password against the stored hash and issues a token.
func (c *Conf) Login(ctx context.Context, cr Credentials) (User, string, error) {
	u, err := c.store.UserByEmail(ctx, strings.TrimSpace(cr.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", apperr.Unauthorized("User doesn't exist")
		}
		return User{}, "", apperr.Upstream("Failed to login", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cr.Password)); err != nil {
		return User{}, "", apperr.Unauthorized("Invalid Credentials")
	}

	token, err := c.keys.GenerateToken(u.ID)
	if err != nil {
		return User{}, "", apperr.Upstream("Failed to login", err)
	}
	return u, token, nil
}

// AdminLogin compares against the configured admin credentials. Admins have
// no user record; the token itself carries the admin flag.
func (c *Conf) AdminLogin(cr Credentials) (Profile, string, error) {
	if c.adminEmail == "" || c.adminPassword == "" {
		return Profile{}, "", apperr.Unauthorized("Invalid admin credentials")
	}
	emailOK := subtle.ConstantTimeCompare([]byte(cr.Email), []byte(c.adminEmail)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(cr.Password), []byte(c.adminPassword)) == 1
	if !emailOK || !passOK {
		return Profile{}, "", apperr.Unauthorized("Invalid admin credentials")
	}

	token, err := c.keys.GenerateAdminToken(cr.Email)
	if err != nil {
		return Profile{}, "", apperr.Upstream("Server error during admin login", err)
	}
	return Profile{ID: auth.AdminSubject, Name: "Admin", Email: cr.Email}, token, nil
}

func (c *Conf) UserByID(ctx context.Context, id string) (User, error) {
	u, err := c.store.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("User not found")
		}
		return User{}, apperr.Upstream("Failed to fetch user", err)
	}
	return u, nil
}

func (c *Conf) FindByEmail(ctx context.Context, email string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, apperr.Invalid("Email is required", nil)
	}
	u, err := c.store.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, apperr.NotFound("User not found")
		}
		return User{}, apperr.Upstream("Failed to fetch user", err)
	}
	return u, nil
}
