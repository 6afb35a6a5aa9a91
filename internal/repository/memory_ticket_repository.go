package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
)

// MemoryTicketRepository implements TicketRepository with in-memory storage.
// This is for development/testing. Production should use the SQL implementation.
type MemoryTicketRepository struct {
	mu       sync.RWMutex
	tickets  map[string]*models.Ticket // by ticket number
	failNext error
}

// NewMemoryTicketRepository creates a new in-memory ticket repository.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]*models.Ticket)}
}

// FailNextInsert makes the next Insert return err (tests).
func (r *MemoryTicketRepository) FailNextInsert(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = err
}

func clone(t *models.Ticket) *models.Ticket {
	c := *t
	c.Comments = append([]models.Comment{}, t.Comments...)
	return &c
}

// Insert saves a new ticket to memory.
func (r *MemoryTicketRepository) Insert(_ context.Context, t *models.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failNext; err != nil {
		r.failNext = nil
		return err
	}
	if _, exists := r.tickets[t.TicketNumber]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTicketNumber, t.TicketNumber)
	}
	r.tickets[t.TicketNumber] = clone(t)
	return nil
}

// GetByNumber returns a copy of the ticket.
func (r *MemoryTicketRepository) GetByNumber(_ context.Context, number string) (*models.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, number)
	}
	return clone(t), nil
}

// List returns the tickets selected by filter.
func (r *MemoryTicketRepository) List(_ context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*models.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		if filter.Matches(t) {
			out = append(out, clone(t))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.Sort == models.SortOldest {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if filter.Sort == models.SortOldest {
			return a.SequenceValue < b.SequenceValue
		}
		return a.SequenceValue > b.SequenceValue
	})
	return out, nil
}

// UpdateStatus changes the status of a ticket.
func (r *MemoryTicketRepository) UpdateStatus(_ context.Context, number string, status models.TicketStatus, adminComment string, at time.Time) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, number)
	}
	t.Status = status
	if adminComment != "" {
		t.AdminComment = adminComment
	}
	t.UpdatedAt = at
	return clone(t), nil
}

// AddComment appends a comment to a ticket.
func (r *MemoryTicketRepository) AddComment(_ context.Context, number string, c *models.Comment) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, number)
	}
	c.TicketID = t.ID
	t.Comments = append(t.Comments, *c)
	t.UpdatedAt = c.CreatedAt
	return clone(t), nil
}

// MaxSequenceValue returns the highest stored sequence value.
func (r *MemoryTicketRepository) MaxSequenceValue(context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max int64
	for _, t := range r.tickets {
		if t.SequenceValue > max {
			max = t.SequenceValue
		}
	}
	return max, nil
}
