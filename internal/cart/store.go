// Package cart owns the shopping cart: an ordered list of line items, unique by
// product id, persisted to a durable slot after every change.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/fjod/food-storefront/internal/domain"
	"github.com/fjod/food-storefront/internal/slot"
	"github.com/fjod/food-storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// StorageKey is the slot key the cart is serialized under.
const StorageKey = "cart"

// Snapshot is the cart state observed after a mutation.
type Snapshot struct {
	Items      []domain.LineItem `json:"items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	TotalItems int               `json:"total_items"`
}

type Listener func(Snapshot)

type subscription struct {
	id uint64
	fn Listener
}

// Store is the single source of truth for one shopper's cart.
// Mutations are serialized; each one is written to the slot before it returns
// and then announced to listeners.
type Store struct {
	mu    sync.Mutex
	items []domain.LineItem
	slot  slot.Slot
	// unrestored is set while the slot could not be read; the slot is not
	// written until a later read succeeds.
	unrestored bool

	lmu       sync.RWMutex
	listeners []subscription
	nextID    uint64
}

// NewStore restores the cart from s. A missing or unreadable slot yields an empty cart.
// When the slot cannot be read at all the store is unrestored: see Restored.
func NewStore(ctx context.Context, s slot.Slot) *Store {
	st := &Store{slot: s}
	items, err := st.load(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("cart slot read failed, starting empty")
		st.unrestored = true
	}
	st.items = items
	return st
}

// Restored reports whether the cart was read from the slot. An unrestored
// store retries the read before each mutation and does not overwrite the
// slot until a read succeeds.
func (s *Store) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unrestored
}

// load returns an error only when the slot itself failed. Missing or
// unparseable contents yield an empty cart.
func (s *Store) load(ctx context.Context) ([]domain.LineItem, error) {
	raw, err := s.slot.Get(ctx, StorageKey)
	if errors.Is(err, slot.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var items []domain.LineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("cart slot unparseable, starting empty")
		return nil, nil
	}
	return items, nil
}

// Add puts one unit of item in the cart. See AddN.
func (s *Store) Add(ctx context.Context, item domain.LineItem) {
	s.AddN(ctx, item, 1)
}

// AddN increases the matching line item by quantity, or appends item with
// that quantity. item.Quantity is ignored. quantity is not validated.
func (s *Store) AddN(ctx context.Context, item domain.LineItem, quantity int) {
	s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, item.ID); i >= 0 {
			items[i].Quantity += quantity
			return items
		}
		added := item.Clone()
		added.Quantity = quantity
		return append(items, added)
	})
}

// Remove deletes the line item for id, if any.
func (s *Store) Remove(ctx context.Context, id domain.ProductID) {
	s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, id); i >= 0 {
			return append(items[:i], items[i+1:]...)
		}
		return items
	})
}

// Increase adds one unit to the line item for id, if any.
func (s *Store) Increase(ctx context.Context, id domain.ProductID) {
	s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, id); i >= 0 {
			items[i].Quantity++
		}
		return items
	})
}

// Decrease removes one unit from the line item for id without going below 1.
// Any line item left with a non-positive quantity is then dropped from the cart.
func (s *Store) Decrease(ctx context.Context, id domain.ProductID) {
	s.mutate(ctx, func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, id); i >= 0 {
			items[i].Quantity = max(1, items[i].Quantity-1)
		}
		kept := items[:0]
		for _, it := range items {
			if it.Quantity > 0 {
				kept = append(kept, it)
			}
		}
		return kept
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mutate(ctx, func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalPrice(s.items)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalItems(s.items)
}

// Snapshot returns items and totals read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every mutation and returns a
// function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) mutate(ctx context.Context, fn func([]domain.LineItem) []domain.LineItem) {
	s.mu.Lock()
	if s.unrestored {
		s.restoreLocked(ctx)
	}
	s.items = fn(s.items)
	snap := s.snapshotLocked()
	// written under the lock so the slot sees saves in commit order
	if s.unrestored {
		logger.FromContext(ctx).Warn().Msg("cart slot unreadable, change kept in memory only")
	} else {
		s.persistLocked(ctx, snap.Items)
	}
	s.mu.Unlock()

	s.notifyUnlocked(snap)
}

// restoreLocked replaces the in-memory items with the slot contents once the slot is readable again.
func (s *Store) restoreLocked(ctx context.Context) {
	items, err := s.load(ctx)
	if err != nil {
		return
	}
	s.items = items
	s.unrestored = false
}

func (s *Store) persistLocked(ctx context.Context, items []domain.LineItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("cart marshal failed")
		return
	}
	if err := s.slot.Set(ctx, StorageKey, raw); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("cart slot write failed")
	}
}

// notifyUnlocked must run outside mu so listeners may read the store.
func (s *Store) notifyUnlocked(snap Snapshot) {
	s.lmu.RLock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.lmu.RUnlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items:      cloneItems(s.items),
		TotalPrice: totalPrice(s.items),
		TotalItems: totalItems(s.items),
	}
}

func indexOf(items []domain.LineItem, id domain.ProductID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

func totalPrice(items []domain.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func totalItems(items []domain.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
