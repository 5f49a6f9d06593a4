package products

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Popular     bool            `json:"popular"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewProduct holds the raw multipart form fields of an admin upload.
type NewProduct struct {
	Name        string `form:"name"`
	Description string `form:"description"`
	Price       string `form:"price"`
	Category    string `form:"category"`
	Popular     string `form:"popular"`
}

// Image is an uploaded product picture, read once by the ImageUploader.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
