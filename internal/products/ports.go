package products

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("product not found")

// Store is the catalog store. ListProducts returns newest first.
type Store interface {
	InsertProduct(ctx context.Context, p Product) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	ProductByID(ctx context.Context, id string) (Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ImageUploader stores an image and returns a URL it can be fetched from.
type ImageUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}
