package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"bakery-service/internal/users"
)

type userDoc struct {
	ID           string         `bson:"_id"`
	Name         string         `bson:"name"`
	Email        string         `bson:"email"`
	EmailLower   string         `bson:"emailLower"`
	PasswordHash string         `bson:"password"`
	CartData     map[string]int `bson:"cartData"`
	CreatedAt    time.Time      `bson:"createdAt"`
}

func (d userDoc) user() users.User {
	cart := d.CartData
	if cart == nil {
		cart = map[string]int{}
	}
	return users.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CartData:     cart,
		CreatedAt:    d.CreatedAt,
	}
}

func (s *Store) InsertUser(ctx context.Context, u users.User) (users.User, error) {
	u.ID = uuid.NewString()
	if u.CartData == nil {
		u.CartData = map[string]int{}
	}
	doc := userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		EmailLower:   strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		CartData:     u.CartData,
		CreatedAt:    u.CreatedAt,
	}
	if _, err := s.db.Collection(colUsers).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return users.User{}, users.ErrDuplicateEmail
		}
		return users.User{}, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (users.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) UserByEmail(ctx context.Context, email string) (users.User, error) {
	return s.findUser(ctx, bson.M{"emailLower": strings.ToLower(email)})
}

func (s *Store) findUser(ctx context.Context, filter bson.M) (users.User, error) {
	var doc userDoc
	err := s.db.Collection(colUsers).FindOne(ctx, filter).Decode(&doc)
	if isNoDocuments(err) {
		return users.User{}, users.ErrNotFound
	}
	if err != nil {
		return users.User{}, fmt.Errorf("finding user: %w", err)
	}
	return doc.user(), nil
}

func (s *Store) CartOf(ctx context.Context, userID string) (map[string]int, error) {
	u, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.CartData, nil
}

func (s *Store) SaveCart(ctx context.Context, userID string, cart map[string]int) error {
	if cart == nil {
		cart = map[string]int{}
	}
	res, err := s.db.Collection(colUsers).UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"cartData": cart}})
	if err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return users.ErrNotFound
	}
	return nil
}
