package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bakery-service/internal/orders"
)

type eventDoc struct {
	ID          string     `bson:"_id"`
	Type        string     `bson:"type"`
	OrderID     string     `bson:"orderId"`
	Payload     []byte     `bson:"payload"`
	CreatedAt   time.Time  `bson:"createdAt"`
	PublishedAt *time.Time `bson:"publishedAt"`
}

func (s *Store) insertEvent(ctx context.Context, e orders.Event) error {
	doc := eventDoc{ID: e.ID, Type: e.Type, OrderID: e.OrderID, Payload: e.Payload, CreatedAt: e.CreatedAt}
	if _, err := s.db.Collection(colOutbox).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("queueing %s event: %w", e.Type, err)
	}
	return nil
}

// PendingEvents returns up to limit unpublished outbox events, oldest first.
func (s *Store) PendingEvents(ctx context.Context, limit int) ([]orders.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(int64(limit))
	cur, err := s.db.Collection(colOutbox).Find(ctx, bson.M{"publishedAt": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("reading outbox: %w", err)
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding outbox: %w", err)
	}

	out := make([]orders.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, orders.Event{ID: d.ID, Type: d.Type, OrderID: d.OrderID, Payload: d.Payload, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.Collection(colOutbox).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"publishedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("marking outbox published: %w", err)
	}
	return nil
}
