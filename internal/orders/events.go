package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced   = "order.placed"
	EventStatusChanged = "order.status_changed"
	EventOrderPaid     = "order.paid"
)

// Event is an outbox row written in the same transaction as the order change
// it describes.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	OrderID   string    `json:"orderId"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"createdAt"`
}

type eventPayload struct {
	OrderID       string          `json:"orderId"`
	UserID        string          `json:"userId"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
	Payment       bool            `json:"payment"`
	Items         []Item          `json:"items,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

func newEvent(typ string, o Order, at time.Time) (Event, error) {
	p := eventPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		Amount:        o.Amount,
		PaymentMethod: o.PaymentMethod,
		Payment:       o.Payment,
		OccurredAt:    at,
	}
	if typ == EventOrderPlaced {
		p.Items = o.Items
	}

	data, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		OrderID:   o.ID,
		Payload:   data,
		CreatedAt: at,
	}, nil
}
