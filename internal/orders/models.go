package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. Any status may follow any other.
const (
	StatusPlaced     = "Order Placed"
	StatusProcessing = "Processing"
	StatusShipped    = "Shipped"
	StatusDelivered  = "Delivered"
	StatusCancelled  = "Cancelled"
)

var Statuses = []string{StatusPlaced, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}

func ValidStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

const (
	PaymentCOD        = "COD"
	PaymentCreditCard = "credit_card"
	PaymentDebitCard  = "debit_card"
	PaymentUPI        = "upi"
	PaymentPayPal     = "paypal"
	PaymentNetBanking = "net_banking"
)

// normalizePaymentMethod trims the client value; "" means COD. Known methods
// are folded to their canonical spelling and anything else is kept as sent.
func normalizePaymentMethod(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return PaymentCOD
	}
	for _, known := range []string{PaymentCOD, PaymentCreditCard, PaymentDebitCard, PaymentUPI, PaymentPayPal, PaymentNetBanking} {
		if strings.EqualFold(m, known) {
			return known
		}
	}
	return m
}

// IsCard reports whether the method is settled through a card checkout.
func IsCard(method string) bool {
	return method == PaymentCreditCard || method == PaymentDebitCard
}

const UnknownProduct = "Unknown Product"

// Item is a frozen line of an order; Price is the unit price at order time.
type Item struct {
	ProductID   string          `json:"productId"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"productName,omitempty"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// missing lists the empty address fields by their JSON names.
func (a Address) missing() []string {
	var out []string
	for _, f := range []struct{ name, value string }{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			out = append(out, f.name)
		}
	}
	return out
}

func (a Address) trimmed() Address {
	return Address{
		Street:     strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}

type Order struct {
	ID            string          `json:"_id"`
	UserID        string          `json:"userId"`
	Items         []Item          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	Tax           decimal.Decimal `json:"tax"`
	Amount        decimal.Decimal `json:"amount"`
	Address       Address         `json:"address"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	Payment       bool            `json:"payment"`
	PaymentRef    string          `json:"paymentRef,omitempty"`
	Date          time.Time       `json:"date"`
}

// NewItem is a line item as submitted by the storefront. Quantity may be a
// number or a numeric string.
type NewItem struct {
	ProductID string           `json:"productId"`
	Quantity  any              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// NewOrder is the placement request. Pointer fields distinguish absent from zero.
type NewOrder struct {
	Items         []NewItem        `json:"items"`
	Amount        *decimal.Decimal `json:"amount"`
	Address       *Address         `json:"address"`
	PaymentMethod string           `json:"paymentMethod"`
	Payment       *bool            `json:"payment"`
}

// Placed is the outcome of a successful placement.
type Placed struct {
	Order       Order
	CheckoutURL string
}
