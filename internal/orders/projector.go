package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/logger"
	"github.com/segmentio/kafka-go"
)

const DefaultProjectorGroup = "inquiry-order-history"

type Writer interface {
	WriteOrder(ctx context.Context, order *domain.Order) error
}

// Projector replays order_placed events from the orders topic into a
// readable repository, so history survives when checkout only publishes.
type Projector struct {
	writer Writer
	reader *kafka.Reader
}

func NewProjector(writer Writer, topic string, brokers ...string) *Projector {
	if topic == "" {
		topic = DefaultOrdersTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  DefaultProjectorGroup,
		MaxBytes: 10e6, // 10MB
	})
	return &Projector{writer: writer, reader: reader}
}

func (p *Projector) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Printf(ctx, "error reading order event: %v", err)
			continue
		}
		if err := p.handle(ctx, m); err != nil {
			logger.Printf(ctx, "order event at offset %d dropped: %v", m.Offset, err)
		}
	}
}

func (p *Projector) Close() error {
	return p.reader.Close()
}

func (p *Projector) handle(ctx context.Context, m kafka.Message) error {
	for _, h := range m.Headers {
		if h.Key == "event_type" && string(h.Value) != EventTypeOrderPlaced {
			return nil
		}
	}

	var order domain.Order
	if err := json.Unmarshal(m.Value, &order); err != nil {
		return fmt.Errorf("parse order event: %w", err)
	}
	if order.UserID == "" || len(order.Items) == 0 {
		return fmt.Errorf("order event %s is incomplete", order.ID)
	}

	if err := p.writer.WriteOrder(ctx, &order); err != nil {
		if errors.Is(err, ErrDuplicateOrder) {
			logger.Printf(ctx, "order %s already recorded, skipping", order.ID)
			return nil
		}
		return fmt.Errorf("record order %s: %w", order.ID, err)
	}
	return nil
}
