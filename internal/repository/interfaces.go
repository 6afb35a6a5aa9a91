package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
)

var (
	// ErrTicketNotFound is returned when no ticket has the requested number.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrDuplicateTicketNumber is returned when a ticket number is already stored.
	ErrDuplicateTicketNumber = errors.New("duplicate ticket number")
)

// TicketRepository defines the persistence operations for tickets and comments.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *models.Ticket) error
	GetByNumber(ctx context.Context, number string) (*models.Ticket, error)
	List(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error)
	// UpdateStatus sets the status; an empty adminComment keeps the stored one.
	UpdateStatus(ctx context.Context, number string, status models.TicketStatus, adminComment string, at time.Time) (*models.Ticket, error)
	AddComment(ctx context.Context, number string, comment *models.Comment) (*models.Ticket, error)
	// MaxSequenceValue returns the highest sequence value stored on a ticket, 0 when empty.
	MaxSequenceValue(ctx context.Context) (int64, error)
}
