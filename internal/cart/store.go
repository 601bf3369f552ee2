// Package cart holds the storefront cart: an in-memory cart with a derived
// total, a one-level undo buffer, and a snapshot persisted after every
// mutation.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/apada-appleid/biosell-sub000/internal/domain"
	"github.com/apada-appleid/biosell-sub000/internal/storage"
	"go.uber.org/zap"
)

type Store struct {
	mu          sync.Mutex
	cart        domain.Cart
	lastRemoved *domain.LastRemovedItem
	hydrated    bool
	// loadPending is set while the stored snapshot could not be read. Writes
	// are held back so they cannot overwrite it.
	loadPending bool

	storage storage.Storage
	logger  *zap.Logger
	now     func() time.Time
}

type Option func(*Store)

// WithClock replaces time.Now for removal timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(s storage.Storage, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	st := &Store{
		storage: s,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Snapshot returns a deep copy of the current cart.
func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// LastRemoved returns a copy of the undo buffer, or nil when it is empty.
func (s *Store) LastRemoved() *domain.LastRemovedItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRemoved == nil {
		return nil
	}
	item := *s.lastRemoved
	item.Product = item.Product.Clone()
	return &item
}

// AddToCart merges quantity into the line for product, or appends a new line
// holding a snapshot of product. Non-positive quantities are ignored.
func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryLoad(ctx)
	if s.add(product, quantity) {
		s.persist(ctx)
	}
	return s.cart.Clone()
}

// RemoveFromCart drops the line for productID and keeps it in the undo buffer.
func (s *Store) RemoveFromCart(ctx context.Context, productID string) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryLoad(ctx)
	if s.remove(productID) {
		s.persist(ctx)
	}
	return s.cart.Clone()
}

// UndoRemove re-adds the last removed line through the merge path and empties
// the buffer. When nothing could be restored, for example because the line is
// already at its inventory cap, the buffer is kept.
func (s *Store) UndoRemove(ctx context.Context) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryLoad(ctx)
	if s.lastRemoved == nil {
		return s.cart.Clone()
	}
	item := s.lastRemoved
	if !s.add(item.Product, item.Quantity) {
		s.logger.Debug("undo restored nothing", zap.String("product_id", item.Product.ID))
		return s.cart.Clone()
	}
	s.lastRemoved = nil
	s.persist(ctx)
	return s.cart.Clone()
}

// UpdateQuantity sets an absolute quantity. Zero or less removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryLoad(ctx)

	var changed bool
	if quantity <= 0 {
		changed = s.remove(productID)
	} else {
		changed = s.set(productID, quantity)
	}
	if changed {
		s.persist(ctx)
	}
	return s.cart.Clone()
}

func (s *Store) ClearCart(ctx context.Context) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = domain.Cart{}
	s.lastRemoved = nil
	// an explicit clear supersedes whatever is stored
	s.hydrated = true
	s.loadPending = false
	s.persist(ctx)
	return s.cart.Clone()
}

// ClearOrdered removes what an accepted order contained. Lines or quantities
// added after the order snapshot was taken stay in the cart. With no such
// changes the result equals ClearCart.
func (s *Store) ClearOrdered(ctx context.Context, ordered []domain.CartLine) domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryLoad(ctx)

	for _, o := range ordered {
		i := s.cart.IndexOf(o.Product.ID)
		if i < 0 {
			continue
		}
		if left := s.cart.Items[i].Quantity - o.Quantity; left > 0 {
			s.cart.Items[i].Quantity = left
			continue
		}
		s.cart.Items = append(s.cart.Items[:i:i], s.cart.Items[i+1:]...)
	}
	s.cart.RecomputeTotal()
	if s.cart.IsEmpty() {
		s.cart = domain.Cart{}
		s.lastRemoved = nil
	}
	s.persist(ctx)
	return s.cart.Clone()
}

// Hydrate replaces the in-memory cart with the persisted snapshot. Missing
// or malformed snapshots leave the cart as is and count as loaded. A failed
// read is retried by the next Hydrate or mutation; until then nothing is
// written back.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(ctx)
}

func (s *Store) retryLoad(ctx context.Context) {
	if s.loadPending {
		s.load(ctx)
	}
}

func (s *Store) load(ctx context.Context) {
	if s.hydrated {
		return
	}

	data, err := s.storage.Load(ctx, storage.CartKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.loadPending = true
		s.logger.Warn("cart hydrate failed", zap.Error(err))
		return
	}
	retried := s.loadPending
	s.hydrated = true
	s.loadPending = false
	if err != nil {
		return
	}

	c, err := decodeSnapshot(data)
	if err != nil {
		s.logger.Warn("ignoring persisted cart", zap.Error(err))
		return
	}
	if !retried {
		s.cart = c
		return
	}

	// lines added while storage was unreachable merge into the stored cart
	pending := s.cart.Items
	s.cart = c
	for _, line := range pending {
		s.add(line.Product, line.Quantity)
	}
	if len(pending) > 0 {
		s.persist(ctx)
	}
}

func (s *Store) add(product domain.Product, quantity int) bool {
	if quantity <= 0 || product.ID == "" {
		return false
	}

	if i := s.cart.IndexOf(product.ID); i >= 0 {
		line := &s.cart.Items[i]
		next := line.Product.ClampQuantity(line.Quantity + quantity)
		if next <= line.Quantity {
			return false
		}
		line.Quantity = next
	} else {
		snapshot := product.Clone()
		qty := snapshot.ClampQuantity(quantity)
		if qty <= 0 {
			return false
		}
		s.cart.Items = append(s.cart.Items, domain.CartLine{Product: snapshot, Quantity: qty})
	}
	s.cart.RecomputeTotal()
	return true
}

func (s *Store) remove(productID string) bool {
	i := s.cart.IndexOf(productID)
	if i < 0 {
		return false
	}
	line := s.cart.Items[i]
	s.cart.Items = append(s.cart.Items[:i:i], s.cart.Items[i+1:]...)
	s.cart.RecomputeTotal()
	s.lastRemoved = &domain.LastRemovedItem{
		Product:   line.Product,
		Quantity:  line.Quantity,
		RemovedAt: s.now(),
	}
	return true
}

func (s *Store) set(productID string, quantity int) bool {
	i := s.cart.IndexOf(productID)
	if i < 0 {
		return false
	}
	line := &s.cart.Items[i]
	next := line.Product.ClampQuantity(quantity)
	if next <= 0 {
		return s.remove(productID)
	}
	if next == line.Quantity {
		return false
	}
	line.Quantity = next
	s.cart.RecomputeTotal()
	return true
}

// persist never fails the mutation; the in-memory cart stays authoritative.
func (s *Store) persist(ctx context.Context) {
	if s.loadPending {
		s.logger.Warn("cart persist deferred, stored snapshot not loaded", zap.Int("items", len(s.cart.Items)))
		return
	}
	data, err := encodeSnapshot(s.cart)
	if err != nil {
		s.logger.Warn("cart snapshot encode failed", zap.Error(err))
		return
	}
	if err := s.storage.Save(ctx, storage.CartKey, data); err != nil {
		s.logger.Warn("cart persist failed", zap.Error(err), zap.Int("items", len(s.cart.Items)))
	}
}
