package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"bakery-service/internal/orders"
	"bakery-service/internal/products"
)

func TestDecimal128(t *testing.T) {
	for _, s := range []string{"0", "10", "26.40", "0.07", "-3.5", "123456789.99"} {
		t.Run(s, func(t *testing.T) {
			d := decimal.RequireFromString(s)
			v, err := toDecimal128(d)
			require.NoError(t, err)
			got := fromDecimal128(v)
			assert.True(t, d.Equal(got), "want %s got %s", d, got)
		})
	}
}

func TestDecimal128RejectsExcessPrecision(t *testing.T) {
	d := decimal.RequireFromString("12.3456789012345678901234567890123456789")
	_, err := toDecimal128(d)
	assert.Error(t, err)

	_, err = newProductDoc(products.Product{ID: "p1", Price: d})
	assert.Error(t, err)

	_, err = newOrderDoc(orders.Order{ID: "o1", Items: []orders.Item{{ProductID: "p1", Quantity: 1, Price: d}}})
	assert.Error(t, err)

	rounded, err := toDecimal128(d.Round(2))
	require.NoError(t, err)
	assert.Equal(t, "12.35", fromDecimal128(rounded).StringFixed(2))
}

func TestOrderDocThroughBSON(t *testing.T) {
	o := orders.Order{
		ID:     "o1",
		UserID: "u1",
		Items: []orders.Item{
			{ProductID: "p1", Quantity: 2, Price: decimal.RequireFromString("10.00")},
		},
		Subtotal:      decimal.RequireFromString("20.00"),
		ShippingFee:   decimal.RequireFromString("5"),
		Tax:           decimal.RequireFromString("1.40"),
		Amount:        decimal.RequireFromString("26.40"),
		Address:       orders.Address{Street: "1 Main", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"},
		Status:        orders.StatusPlaced,
		PaymentMethod: orders.PaymentCOD,
		Date:          time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	doc, err := newOrderDoc(o)
	require.NoError(t, err)
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)

	var shape struct {
		UserID  string `bson:"userId"`
		Address struct {
			PostalCode string `bson:"postalCode"`
		} `bson:"address"`
	}
	require.NoError(t, bson.Unmarshal(raw, &shape))
	assert.Equal(t, "u1", shape.UserID)
	assert.Equal(t, "411001", shape.Address.PostalCode)

	var decoded orderDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	got := decoded.order()
	assert.True(t, got.Amount.Equal(o.Amount))
	assert.True(t, got.Items[0].Price.Equal(o.Items[0].Price))
	assert.Equal(t, o.Address, got.Address)
	assert.Equal(t, o.Date, got.Date)
}
