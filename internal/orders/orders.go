// Package orders records placed orders for the buyer's order history. Every
// sink here is written to best-effort by the checkout flow.
package orders

import (
	"context"
	"errors"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already recorded")
)

// History is implemented by sinks that can read orders back.
type History interface {
	ListOrdersByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// GetOrder returns ErrOrderNotFound when no order has the id.
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}
