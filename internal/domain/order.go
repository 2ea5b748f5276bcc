package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced     OrderStatus = "placed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is the record of a checkout handed to the messaging channel. It is
// kept for the buyer's order history only; nothing is reserved or charged.
type Order struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"userId"`
	Status          OrderStatus     `json:"status"`
	Items           []LineItem      `json:"items"`
	TotalQty        int             `json:"totalQty"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DeliveryAddress *Location       `json:"deliveryAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func NewOrder(userID string, items []LineItem, loc *Location, now time.Time) *Order {
	snapshot := make([]LineItem, len(items))
	copy(snapshot, items)
	return &Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          OrderStatusPlaced,
		Items:           snapshot,
		TotalQty:        TotalQuantity(snapshot),
		TotalAmount:     TotalAmount(snapshot),
		DeliveryAddress: loc,
		CreatedAt:       now,
	}
}
