package orders

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("order not found")

// Repository is an in-memory order store safe for concurrent use.
type Repository struct {
	mu     sync.RWMutex
	orders map[int]Order
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[int]Order)}
}

func (r *Repository) Get(id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return Order{}, errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return order, nil
}

func (r *Repository) Save(order Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = order
}

func (r *Repository) UpdateStatus(id int, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "id %d", id)
	}
	order.Status = status
	r.orders[id] = order
	return nil
}

func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = make(map[int]Order)
}

// Create stores a new pending order under the next free ID.
func (r *Repository) Create(date time.Time) Order {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := 1
	for existing := range r.orders {
		if existing >= id {
			id = existing + 1
		}
	}
	order := Order{ID: id, Status: Pending, Date: date}
	r.orders[id] = order
	return order
}
