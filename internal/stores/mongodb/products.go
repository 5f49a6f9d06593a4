package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bakery-service/internal/products"
)

type productDoc struct {
	ID          string               `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Price       primitive.Decimal128 `bson:"price"`
	Image       string               `bson:"image"`
	Category    string               `bson:"category"`
	Popular     bool                 `bson:"popular"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

func newProductDoc(p products.Product) (productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return productDoc{}, fmt.Errorf("product price: %w", err)
	}
	return productDoc{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Image:       p.Image,
		Category:    p.Category,
		Popular:     p.Popular,
		CreatedAt:   p.CreatedAt,
	}, nil
}

func (d productDoc) product() products.Product {
	return products.Product{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Price:       fromDecimal128(d.Price),
		Image:       d.Image,
		Category:    d.Category,
		Popular:     d.Popular,
		CreatedAt:   d.CreatedAt,
	}
}

func (s *Store) InsertProduct(ctx context.Context, p products.Product) (products.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	doc, err := newProductDoc(p)
	if err != nil {
		return products.Product{}, err
	}
	if _, err := s.db.Collection(colProducts).InsertOne(ctx, doc); err != nil {
		return products.Product{}, fmt.Errorf("inserting product: %w", err)
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]products.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.db.Collection(colProducts).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}

	out := make([]products.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.product())
	}
	return out, nil
}

func (s *Store) ProductByID(ctx context.Context, id string) (products.Product, error) {
	var doc productDoc
	err := s.db.Collection(colProducts).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if isNoDocuments(err) {
		return products.Product{}, products.ErrNotFound
	}
	if err != nil {
		return products.Product{}, fmt.Errorf("finding product: %w", err)
	}
	return doc.product(), nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.Collection(colProducts).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	if res.DeletedCount == 0 {
		return products.ErrNotFound
	}
	return nil
}
