package logkey

// keys used across slog calls so log queries stay consistent between handlers
const (
	TraceID = "TRACE ID"
	ERROR   = "ERROR"
	UserID  = "UserID"
	OrderID = "OrderID"
	Product = "ProductID"
	Status  = "Status"
)
