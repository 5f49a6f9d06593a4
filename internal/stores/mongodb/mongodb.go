// Package mongodb stores users, products, orders and the order outbox in
// MongoDB. Order placement and status changes run inside multi-document
// transactions, so the server must be a replica set.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colUsers    = "users"
	colProducts = "products"
	colOrders   = "orders"
	colOutbox   = "outbox"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects, pings the primary and makes sure the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colUsers: {{
			Keys:    bson.D{{Key: "emailLower", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		colProducts: {{Keys: bson.D{{Key: "createdAt", Value: -1}}}},
		colOrders:   {{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}}},
		colOutbox:   {{Keys: bson.D{{Key: "publishedAt", Value: 1}, {Key: "createdAt", Value: 1}}}},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating %s indexes: %w", col, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction. The driver may call fn more than once
// on transient errors.
func (s *Store) withTx(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// toDecimal128 fails for values Decimal128 cannot hold exactly, such as more
// than 34 significant digits.
func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, ok := primitive.ParseDecimal128FromBigInt(d.Coefficient(), int(d.Exponent()))
	if !ok {
		return primitive.Decimal128{}, fmt.Errorf("%s does not fit a decimal128", d)
	}
	return v, nil
}

// decimals converts several values and keeps the first failure.
type decimals struct{ err error }

func (c *decimals) of(d decimal.Decimal) primitive.Decimal128 {
	v, err := toDecimal128(d)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	bi, exp, err := v.BigInt()
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(bi, int32(exp))
}
