package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject of tokens issued by the admin login path.
const AdminSubject = "admin"

type Capability string

const (
	CapabilityUser  Capability = "user"
	CapabilityAdmin Capability = "admin"
)

type ctxKey int

const PrincipalKey ctxKey = 1

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload: subject, optional admin flag and expiry.
type Claims struct {
	IsAdmin bool   `json:"isAdmin,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the identity resolved once per request by the Authentication middleware.
type Principal struct {
	Subject      string
	Email        string
	Capabilities map[Capability]bool
}

func (p Principal) Can(c Capability) bool {
	return p.Capabilities[c]
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(Principal)
	return p, ok
}

// Keys signs and validates HS256 bearer tokens.
type Keys struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewKeys(secret string, ttl time.Duration) (*Keys, error) {
	if secret == "" {
		return nil, errors.New("token secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &Keys{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// GenerateToken issues a user token for subject.
func (k *Keys) GenerateToken(subject string) (string, error) {
	return k.sign(Claims{RegisteredClaims: k.registered(subject)})
}

// GenerateAdminToken issues a token carrying the admin flag.
func (k *Keys) GenerateAdminToken(email string) (string, error) {
	return k.sign(Claims{
		IsAdmin:          true,
		Email:            email,
		RegisteredClaims: k.registered(AdminSubject),
	})
}

func (k *Keys) registered(subject string) jwt.RegisteredClaims {
	now := k.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
	}
}

func (k *Keys) sign(c Claims) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (k *Keys) ValidateToken(tokenStr string) (Claims, error) {
	var c Claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(k.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}
