package products

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"bakery-service/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu        sync.Mutex
	products  map[string]Product
	listCalls int
}

func newFakeStore() *fakeStore { return &fakeStore{products: map[string]Product{}} }

func (f *fakeStore) InsertProduct(_ context.Context, p Product) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = "p" + strconv.Itoa(len(f.products)+1)
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) ListProducts(context.Context) ([]Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ProductByID(_ context.Context, id string) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[id]; !ok {
		return ErrNotFound
	}
	delete(f.products, id)
	return nil
}

type fakeUploader struct {
	keys []string
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.test/" + key, nil
}

type mapCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mapCache) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mapCache) GenerateKey(op, key string) string { return op + ":" + key }

func image() *Image {
	return &Image{Filename: "cake.JPG", ContentType: "image/jpeg", Size: 4, Body: strings.NewReader("jpeg")}
}

func validProduct() NewProduct {
	return NewProduct{Name: " Black Forest ", Description: "Cherry cake", Price: "12.50", Category: " Cakes ", Popular: "true"}
}

func TestAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("normalises fields and uploads image", func(t *testing.T) {
		up := &fakeUploader{}
		c, err := NewConf(newFakeStore(), up, nil)
		require.NoError(t, err)

		p, err := c.Add(ctx, validProduct(), image())
		require.NoError(t, err)
		assert.Equal(t, "Black Forest", p.Name)
		assert.Equal(t, "cakes", p.Category)
		assert.True(t, p.Popular)
		assert.Equal(t, "12.5", p.Price.String())
		require.Len(t, up.keys, 1)
		assert.True(t, strings.HasPrefix(up.keys[0], "products/"))
		assert.True(t, strings.HasSuffix(up.keys[0], ".jpg"))
		assert.Equal(t, "https://cdn.test/"+up.keys[0], p.Image)
	})

	t.Run("image is required", func(t *testing.T) {
		c, err := NewConf(newFakeStore(), &fakeUploader{}, nil)
		require.NoError(t, err)

		_, err = c.Add(ctx, validProduct(), nil)
		assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
	})

	t.Run("missing fields are listed", func(t *testing.T) {
		c, err := NewConf(newFakeStore(), &fakeUploader{}, nil)
		require.NoError(t, err)

		_, err = c.Add(ctx, NewProduct{Name: "x"}, image())
		require.True(t, apperr.Is(err, apperr.KindInvalidInput))
		assert.Equal(t, []string{"Description is required", "Price is required", "Category is required"}, apperr.DetailsOf(err))
	})

	t.Run("price must be positive", func(t *testing.T) {
		up := &fakeUploader{}
		c, err := NewConf(newFakeStore(), up, nil)
		require.NoError(t, err)

		for _, price := range []string{"0", "-3", "abc"} {
			np := validProduct()
			np.Price = price
			_, err = c.Add(ctx, np, image())
			assert.True(t, apperr.Is(err, apperr.KindInvalidInput), price)
		}
		assert.Empty(t, up.keys)
	})

	t.Run("upload failure is upstream", func(t *testing.T) {
		store := newFakeStore()
		c, err := NewConf(store, &fakeUploader{err: errors.New("s3 down")}, nil)
		require.NoError(t, err)

		_, err = c.Add(ctx, validProduct(), image())
		assert.True(t, apperr.Is(err, apperr.KindUpstream))
		assert.Empty(t, store.products)
	})
}

func TestListUsesCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	mc := &mapCache{data: map[string]string{}}
	c, err := NewConf(store, &fakeUploader{}, mc)
	require.NoError(t, err)

	_, err = c.Add(ctx, validProduct(), image())
	require.NoError(t, err)

	first, err := c.List(ctx)
	require.NoError(t, err)
	second, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].Price.Equal(second[0].Price))
	assert.Equal(t, 1, store.listCalls)

	require.NoError(t, c.Remove(ctx, first[0].ID))
	third, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, third)
	assert.Equal(t, 2, store.listCalls)
}

func TestGetAndRemoveNotFound(t *testing.T) {
	ctx := context.Background()
	c, err := NewConf(newFakeStore(), &fakeUploader{}, nil)
	require.NoError(t, err)

	_, err = c.Get(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	err = c.Remove(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
