package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderItemEvent struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	LineTotal   int64     `json:"line_total"`
}

type OrderCreatedEvent struct {
	OrderID        uuid.UUID        `json:"order_id"`
	ConversationID int64            `json:"conversation_id"`
	CustomerName   string           `json:"customer_name"`
	Phone          string           `json:"phone"`
	Address        string           `json:"address"`
	Items          []OrderItemEvent `json:"items"`
	TotalPrice     int64            `json:"total_price"`
	PaymentMethod  string           `json:"payment_method"`
	SourceChannel  string           `json:"source_channel"`
	CreatedAt      time.Time        `json:"created_at"`
}

type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
}
