// Package cart owns the buyer's cart: a list of line items unique by product
// id, kept in insertion order and mirrored to durable storage after every
// change.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/bharatmart/inquiry-service/internal/domain"
	"github.com/bharatmart/inquiry-service/internal/logger"
	"github.com/bharatmart/inquiry-service/internal/storage"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable copy of the cart with its aggregates computed
// from the items it carries.
type Snapshot struct {
	Items       []domain.LineItem `json:"items"`
	TotalQty    int               `json:"totalQty"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
}

func newSnapshot(items []domain.LineItem) Snapshot {
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return Snapshot{
		Items:       out,
		TotalQty:    domain.TotalQuantity(out),
		TotalAmount: domain.TotalAmount(out),
	}
}

type Store struct {
	mu      sync.Mutex
	items   []domain.LineItem
	storage storage.Store
	key     string

	subMu       sync.Mutex
	subscribers map[int]func(Snapshot)
	nextSub     int
}

// New loads the persisted cart under key. A missing, unreadable or malformed
// payload yields an empty cart.
func New(ctx context.Context, st storage.Store, key string) *Store {
	s := &Store{
		storage:     st,
		key:         key,
		subscribers: make(map[int]func(Snapshot)),
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []domain.LineItem {
	raw, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Printf(ctx, "cart load error: %v", err)
		}
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		logger.Printf(ctx, "cart payload malformed, starting empty: %v", err)
		return nil
	}

	stored := make([]domain.LineItem, 0, len(entries))
	for i, entry := range entries {
		item, err := decodeStoredItem(entry)
		if err != nil {
			logger.Printf(ctx, "cart entry %d dropped: %v", i, err)
			continue
		}
		stored = append(stored, item)
	}
	return normalize(stored)
}

// storedItem is the lenient shape of a persisted line item. Quantities may
// have been written as floats or strings and prices as quoted decimals.
type storedItem struct {
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Price     json.RawMessage `json:"price"`
	Quantity  any             `json:"qty"`
	Image     string          `json:"image"`
	SellerID  string          `json:"sellerId"`
}

func decodeStoredItem(raw json.RawMessage) (domain.LineItem, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var in storedItem
	if err := dec.Decode(&in); err != nil {
		return domain.LineItem{}, err
	}

	var price decimal.Decimal
	if len(in.Price) > 0 {
		if err := price.UnmarshalJSON(in.Price); err != nil {
			return domain.LineItem{}, err
		}
	}

	return domain.LineItem{
		ProductID: in.ProductID,
		Title:     in.Title,
		Price:     price,
		Quantity:  domain.CoerceQuantity(in.Quantity),
		Image:     in.Image,
		SellerID:  in.SellerID,
	}, nil
}

// normalize applies the line item rules to data read back from storage:
// entries without a product id are dropped, quantities are floored at one,
// negative prices become zero and duplicate ids are merged.
func normalize(stored []domain.LineItem) []domain.LineItem {
	var items []domain.LineItem
	index := make(map[string]int, len(stored))
	for _, item := range stored {
		if item.ProductID == "" {
			continue
		}
		item.Quantity = domain.FloorQuantity(item.Quantity)
		if item.Price.IsNegative() {
			item.Price = decimal.Zero
		}
		if i, ok := index[item.ProductID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(items)
		items = append(items, item)
	}
	return items
}

// AddItem appends item or, when its product id is already in the cart, adds
// its quantity to the existing line. A quantity below one counts as one.
func (s *Store) AddItem(ctx context.Context, item domain.LineItem) Snapshot {
	qty := domain.FloorQuantity(item.Quantity)
	if item.Price.IsNegative() {
		item.Price = decimal.Zero
	}

	return s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i].Quantity += qty
				return items
			}
		}
		item.Quantity = qty
		return append(items, item)
	})
}

// UpdateQuantity replaces the quantity of an existing line. Zero or negative
// quantities are floored at one; use RemoveItem to drop a line.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) Snapshot {
	qty := domain.FloorQuantity(quantity)
	return s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		for i := range items {
			if items[i].ProductID == productID {
				items[i].Quantity = qty
			}
		}
		return items
	})
}

func (s *Store) RemoveItem(ctx context.Context, productID string) Snapshot {
	return s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		kept := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				kept = append(kept, item)
			}
		}
		return kept
	})
}

func (s *Store) Clear(ctx context.Context) Snapshot {
	return s.mutate(ctx, func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return newSnapshot(s.items)
}

func (s *Store) Items() []domain.LineItem {
	return s.Snapshot().Items
}

func (s *Store) TotalQuantity() int {
	return s.Snapshot().TotalQty
}

func (s *Store) TotalAmount() decimal.Decimal {
	return s.Snapshot().TotalAmount
}

// Subscribe registers fn to receive the cart after every mutation. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subscribers, id)
	}
}

// mutate applies fn to a private copy of the items, installs the result and
// persists it while still holding the lock, so writes reach storage in the
// order they were applied.
func (s *Store) mutate(ctx context.Context, fn func([]domain.LineItem) []domain.LineItem) Snapshot {
	s.mu.Lock()
	working := make([]domain.LineItem, len(s.items))
	copy(working, s.items)
	s.items = fn(working)
	snap := newSnapshot(s.items)
	s.persist(ctx, snap.Items)
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Store) persist(ctx context.Context, items []domain.LineItem) {
	if items == nil {
		items = []domain.LineItem{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		logger.Printf(ctx, "cart marshal error: %v", err)
		return
	}
	if err := s.storage.Set(ctx, s.key, payload); err != nil {
		logger.Printf(ctx, "cart persist error: %v", err)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
