package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/bharatmart/inquiry-service/internal/cart"
	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/logger"
)

type CartSource interface {
	Snapshot() cart.Snapshot
}

type LocationSource interface {
	Load(ctx context.Context) *domain.Location
}

// OrderWriter records a placed order for the buyer's history.
type OrderWriter interface {
	WriteOrder(ctx context.Context, order *domain.Order) error
}

type Config struct {
	WhatsAppHost   string
	WhatsAppNumber string
	// OrderWriteTimeout bounds the background order write.
	OrderWriteTimeout time.Duration
}

type Service struct {
	cart     CartSource
	location LocationSource
	compiler *Compiler
	orders   OrderWriter
	cfg      Config
	now      func() time.Time

	wg sync.WaitGroup
}

// NewService wires the checkout flow. orders may be nil when no order
// history is kept.
func NewService(cart CartSource, loc LocationSource, compiler *Compiler, orders OrderWriter, cfg Config) *Service {
	if cfg.WhatsAppNumber == "" {
		cfg.WhatsAppNumber = DefaultWhatsAppNumber
	}
	if cfg.OrderWriteTimeout <= 0 {
		cfg.OrderWriteTimeout = 5 * time.Second
	}
	return &Service{
		cart:     cart,
		location: loc,
		compiler: compiler,
		orders:   orders,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Result is what the buyer's client needs to hand the checkout to WhatsApp.
type Result struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// BuildMessage compiles the current cart and stored location.
func (s *Service) BuildMessage(ctx context.Context) string {
	return s.compiler.Compile(s.cart.Snapshot().Items, s.location.Load(ctx), s.now())
}

func (s *Service) BuildURL(ctx context.Context) string {
	return s.URLFor(s.BuildMessage(ctx))
}

// URLFor wraps an already compiled message in the configured WhatsApp link.
func (s *Service) URLFor(message string) string {
	return WhatsAppURL(s.cfg.WhatsAppHost, s.cfg.WhatsAppNumber, message)
}

// Checkout compiles the message for the current cart and records the order
// in the background. A failed order write is logged and never delays or
// fails the checkout. The cart is left as is.
func (s *Service) Checkout(ctx context.Context, userID string) (*Result, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	snap := s.cart.Snapshot()
	if len(snap.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.now()
	loc := s.location.Load(ctx)
	order := domain.NewOrder(userID, snap.Items, loc, now)
	msg := s.compiler.Compile(snap.Items, loc, now)

	if s.orders != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OrderWriteTimeout)
			defer cancel()
			if err := s.orders.WriteOrder(writeCtx, order); err != nil {
				logger.Printf(ctx, "order write error for %s: %v", order.ID, err)
			}
		}()
	}

	return &Result{
		OrderID: order.ID.String(),
		Message: msg,
		URL:     s.URLFor(msg),
	}, nil
}

// Wait blocks until background order writes have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
