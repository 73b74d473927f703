package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the order store surface the intake pipeline depends on.
type Repository interface {
	Create(ctx context.Context, req *CreateOrderRequest) (*Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// LatestByPhone returns the most recently created order for the
	// phone, regardless of status. A status message may reference an
	// order that an earlier partial event already moved out of pending.
	LatestByPhone(ctx context.Context, phone string) (*Order, error)
	// ApplyUpdate mutates a single order atomically and appends the
	// history action to its audit trail.
	ApplyUpdate(ctx context.Context, id uuid.UUID, update Update, historyAction, details string) (*Order, error)
	ListRecent(ctx context.Context, filter ListFilter) ([]*Order, error)
}

// ListFilter narrows ListRecent. Zero values mean "no filter".
type ListFilter struct {
	Phone  string
	Status Status
	Limit  int
}

// InMemoryRepository is a map-backed Repository for tests and demo mode.
type InMemoryRepository struct {
	mu      sync.RWMutex
	orders  map[uuid.UUID]*Order
	history map[uuid.UUID][]HistoryEntry
	seq     int64
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		orders:  make(map[uuid.UUID]*Order),
		history: make(map[uuid.UUID][]HistoryEntry),
	}
}

func (r *InMemoryRepository) Create(_ context.Context, req *CreateOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	now := time.Now().Add(time.Duration(r.seq) * time.Microsecond)
	order := &Order{
		ID:              uuid.New(),
		GroupID:         req.GroupID,
		AgencyID:        req.AgencyID,
		Phone:           req.Phone,
		CustomerName:    req.CustomerName,
		Items:           req.Items,
		Quartier:        req.Quartier,
		Carrier:         req.Carrier,
		AmountDue:       req.AmountDue,
		Status:          StatusPending,
		SourceMessageID: req.SourceMessageID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.orders[order.ID] = order
	copied := *order
	return &copied, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *InMemoryRepository) LatestByPhone(_ context.Context, phone string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *Order
	for _, order := range r.orders {
		if order.Phone != phone {
			continue
		}
		if latest == nil || order.CreatedAt.After(latest.CreatedAt) {
			latest = order
		}
	}
	if latest == nil {
		return nil, ErrOrderNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *InMemoryRepository) ApplyUpdate(_ context.Context, id uuid.UUID, update Update, historyAction, details string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.AmountPaid != nil {
		order.AmountPaid = *update.AmountPaid
	}
	if update.AmountDue != nil {
		order.AmountDue = *update.AmountDue
	}
	if update.Items != nil {
		order.Items = *update.Items
	}
	if update.Phone != nil {
		order.Phone = *update.Phone
	}
	order.UpdatedAt = time.Now()
	r.history[id] = append(r.history[id], HistoryEntry{
		ID:        uuid.New(),
		OrderID:   id,
		Action:    historyAction,
		Details:   details,
		CreatedAt: order.UpdatedAt,
	})
	copied := *order
	return &copied, nil
}

func (r *InMemoryRepository) ListRecent(_ context.Context, filter ListFilter) ([]*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Order
	for _, order := range r.orders {
		if filter.Phone != "" && order.Phone != filter.Phone {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		copied := *order
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// History returns the audit trail of an order, newest last.
func (r *InMemoryRepository) History(_ context.Context, id uuid.UUID) ([]HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]HistoryEntry, len(r.history[id]))
	copy(entries, r.history[id])
	return entries, nil
}
