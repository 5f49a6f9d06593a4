package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"bakery-service/pkg/apperr"
	"bakery-service/pkg/cache"
	"bakery-service/pkg/logkey"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const listTTL = 5 * time.Minute

type Conf struct {
	store    Store
	uploader ImageUploader
	cache    cache.Cache
	now      func() time.Time
}

func NewConf(store Store, uploader ImageUploader, c cache.Cache) (*Conf, error) {
	if store == nil {
		return nil, fmt.Errorf("product store is nil")
	}
	if uploader == nil {
		return nil, fmt.Errorf("image uploader is nil")
	}
	if c == nil {
		c = cache.Nop{}
	}
	return &Conf{store: store, uploader: uploader, cache: c, now: time.Now}, nil
}

// Add validates the form, uploads the image and persists the product.
func (c *Conf) Add(ctx context.Context, np NewProduct, img *Image) (Product, error) {
	if img == nil {
		return Product{}, apperr.Invalid("Product image is required", nil)
	}

	name := strings.TrimSpace(np.Name)
	description := strings.TrimSpace(np.Description)
	category := strings.ToLower(strings.TrimSpace(np.Category))
	rawPrice := strings.TrimSpace(np.Price)

	var missing []string
	if name == "" {
		missing = append(missing, "Name is required")
	}
	if description == "" {
		missing = append(missing, "Description is required")
	}
	if rawPrice == "" {
		missing = append(missing, "Price is required")
	}
	if category == "" {
		missing = append(missing, "Category is required")
	}
	if len(missing) > 0 {
		return Product{}, apperr.Invalid("Validation failed", missing)
	}

	price, err := decimal.NewFromString(rawPrice)
	price = price.Round(2)
	if err != nil || !price.IsPositive() {
		return Product{}, apperr.Invalid("Price must be a valid positive number", nil)
	}

	key := "products/" + uuid.NewString() + strings.ToLower(path.Ext(img.Filename))
	url, err := c.uploader.Upload(ctx, key, img.ContentType, img.Body, img.Size)
	if err != nil {
		return Product{}, apperr.Upstream("Failed to upload image", err)
	}

	p, err := c.store.InsertProduct(ctx, Product{
		Name:        name,
		Description: description,
		Price:       price,
		Image:       url,
		Category:    category,
		Popular:     strings.EqualFold(strings.TrimSpace(np.Popular), "true"),
		CreatedAt:   c.now().UTC(),
	})
	if err != nil {
		return Product{}, apperr.Upstream("Database operation failed", err)
	}

	c.invalidate(ctx)
	return p, nil
}

// List returns the catalog newest first, served from cache when warm.
func (c *Conf) List(ctx context.Context) ([]Product, error) {
	key := c.cache.GenerateKey("products", "list")

	if cached, err := c.cache.Get(ctx, key); err != nil {
		slog.Warn("product cache read failed", slog.String(logkey.ERROR, err.Error()))
	} else if cached != "" {
		var list []Product
		if err := json.Unmarshal([]byte(cached), &list); err == nil {
			return list, nil
		}
	}

	list, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, apperr.Upstream("Failed to list products", err)
	}
	if list == nil {
		list = []Product{}
	}

	if data, err := json.Marshal(list); err == nil {
		if err := c.cache.Set(ctx, key, string(data), listTTL); err != nil {
			slog.Warn("product cache write failed", slog.String(logkey.ERROR, err.Error()))
		}
	}
	return list, nil
}

func (c *Conf) Get(ctx context.Context, id string) (Product, error) {
	p, err := c.store.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Product{}, apperr.NotFound("Product not found")
		}
		return Product{}, apperr.Upstream("Failed to fetch product", err)
	}
	return p, nil
}

// Remove hard-deletes a product. Orders keep their dangling references.
func (c *Conf) Remove(ctx context.Context, id string) error {
	if err := c.store.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("Product not found")
		}
		return apperr.Upstream("Failed to remove product", err)
	}
	c.invalidate(ctx)
	return nil
}

func (c *Conf) invalidate(ctx context.Context) {
	if err := c.cache.Delete(ctx, c.cache.GenerateKey("products", "list")); err != nil {
		slog.Warn("product cache invalidation failed", slog.String(logkey.ERROR, err.Error()))
	}
}
