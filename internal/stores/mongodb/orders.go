package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bakery-service/internal/orders"
	"bakery-service/internal/users"
)

type itemDoc struct {
	ProductID   string               `bson:"productId"`
	Quantity    int                  `bson:"quantity"`
	Price       primitive.Decimal128 `bson:"price"`
	ProductName string               `bson:"productName,omitempty"`
}

type addressDoc struct {
	Street     string `bson:"street"`
	City       string `bson:"city"`
	State      string `bson:"state"`
	PostalCode string `bson:"postalCode"`
	Country    string `bson:"country"`
}

type orderDoc struct {
	ID            string               `bson:"_id"`
	UserID        string               `bson:"userId"`
	Items         []itemDoc            `bson:"items"`
	Subtotal      primitive.Decimal128 `bson:"subtotal"`
	ShippingFee   primitive.Decimal128 `bson:"shippingFee"`
	Tax           primitive.Decimal128 `bson:"tax"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Address       addressDoc           `bson:"address"`
	Status        string               `bson:"status"`
	PaymentMethod string               `bson:"paymentMethod"`
	Payment       bool                 `bson:"payment"`
	PaymentRef    string               `bson:"paymentRef,omitempty"`
	Date          time.Time            `bson:"date"`
}

func newOrderDoc(o orders.Order) (orderDoc, error) {
	var conv decimals
	items := make([]itemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemDoc{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Price:       conv.of(it.Price),
			ProductName: it.ProductName,
		})
	}
	doc := orderDoc{
		ID:            o.ID,
		UserID:        o.UserID,
		Items:         items,
		Subtotal:      conv.of(o.Subtotal),
		ShippingFee:   conv.of(o.ShippingFee),
		Tax:           conv.of(o.Tax),
		Amount:        conv.of(o.Amount),
		Address:       addressDoc(o.Address),
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		Payment:       o.Payment,
		PaymentRef:    o.PaymentRef,
		Date:          o.Date,
	}
	if conv.err != nil {
		return orderDoc{}, fmt.Errorf("order %s: %w", o.ID, conv.err)
	}
	return doc, nil
}

func (d orderDoc) order() orders.Order {
	items := make([]orders.Item, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, orders.Item{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			Price:       fromDecimal128(it.Price),
			ProductName: it.ProductName,
		})
	}
	return orders.Order{
		ID:            d.ID,
		UserID:        d.UserID,
		Items:         items,
		Subtotal:      fromDecimal128(d.Subtotal),
		ShippingFee:   fromDecimal128(d.ShippingFee),
		Tax:           fromDecimal128(d.Tax),
		Amount:        fromDecimal128(d.Amount),
		Address:       orders.Address(d.Address),
		Status:        d.Status,
		PaymentMethod: d.PaymentMethod,
		Payment:       d.Payment,
		PaymentRef:    d.PaymentRef,
		Date:          d.Date.UTC(),
	}
}

func (s *Store) PlaceOrder(ctx context.Context, o orders.Order, ev orders.Event) error {
	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(sc mongo.SessionContext) error {
		res, err := s.db.Collection(colUsers).UpdateOne(sc, bson.M{"_id": o.UserID},
			bson.M{"$set": bson.M{"cartData": bson.M{}}})
		if err != nil {
			return fmt.Errorf("clearing cart: %w", err)
		}
		if res.MatchedCount == 0 {
			return users.ErrNotFound
		}
		if _, err := s.db.Collection(colOrders).InsertOne(sc, doc); err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		return s.insertEvent(sc, ev)
	})
}

func (s *Store) OrderByID(ctx context.Context, id string) (orders.Order, error) {
	var doc orderDoc
	err := s.db.Collection(colOrders).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if isNoDocuments(err) {
		return orders.Order{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, fmt.Errorf("finding order: %w", err)
	}
	return doc.order(), nil
}

func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]orders.Order, error) {
	return s.findOrders(ctx, bson.M{"userId": userID})
}

func (s *Store) AllOrders(ctx context.Context) ([]orders.Order, error) {
	return s.findOrders(ctx, bson.M{})
}

func (s *Store) findOrders(ctx context.Context, filter bson.M) ([]orders.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.db.Collection(colOrders).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}

	out := make([]orders.Order, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.order())
	}
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id, status string, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	return s.mutate(ctx, id, bson.M{"status": status}, ev)
}

func (s *Store) MarkPaid(ctx context.Context, id, paymentRef string, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	return s.mutate(ctx, id, bson.M{"payment": true, "paymentRef": paymentRef}, ev)
}

// mutate applies set and queues the event built from the updated order in
// the same transaction.
func (s *Store) mutate(ctx context.Context, id string, set bson.M, ev func(orders.Order) (orders.Event, error)) (orders.Order, error) {
	var out orders.Order
	err := s.withTx(ctx, func(sc mongo.SessionContext) error {
		var doc orderDoc
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err := s.db.Collection(colOrders).FindOneAndUpdate(sc, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc)
		if isNoDocuments(err) {
			return orders.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("updating order: %w", err)
		}

		o := doc.order()
		e, err := ev(o)
		if err != nil {
			return err
		}
		if err := s.insertEvent(sc, e); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return orders.Order{}, err
	}
	return out, nil
}
