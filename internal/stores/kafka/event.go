package kafka

import (
	"encoding/json"
	"time"

	"bakery-service/internal/orders"
)

// Message is the record value written for every order event.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	OrderID   string          `json:"orderId"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

func envelope(e orders.Event) []byte {
	data := json.RawMessage(e.Payload)
	if !json.Valid(data) {
		data = json.RawMessage("null")
	}
	b, _ := json.Marshal(Message{
		ID:        e.ID,
		Type:      e.Type,
		OrderID:   e.OrderID,
		Data:      data,
		CreatedAt: e.CreatedAt,
	})
	return b
}
