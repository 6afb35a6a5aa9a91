package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
)

const ticketColumns = `id, ticket_number, sequence_value, user_id, user_name, user_email,
	folder_path, query_text, status, admin_comment, created_at, updated_at`

const commentColumns = `id, ticket_id, text, author, author_type, created_at`

// SQLTicketRepository handles database operations for tickets.
type SQLTicketRepository struct {
	db *sqlx.DB
}

// NewSQLTicketRepository creates a new ticket repository.
func NewSQLTicketRepository(db *sqlx.DB) *SQLTicketRepository {
	return &SQLTicketRepository{db: db}
}

// Insert stores a new ticket. The ticket number must already be allocated.
func (r *SQLTicketRepository) Insert(ctx context.Context, t *models.Ticket) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO tickets (
			id, ticket_number, sequence_value, user_id, user_name, user_email,
			folder_path, query_text, status, admin_comment, created_at, updated_at
		) VALUES (
			:id, :ticket_number, :sequence_value, :user_id, :user_name, :user_email,
			:folder_path, :query_text, :status, :admin_comment, :created_at, :updated_at
		)`, t)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateTicketNumber, t.TicketNumber)
		}
		return fmt.Errorf("insert ticket %s: %w", t.TicketNumber, err)
	}
	return nil
}

// GetByNumber loads a ticket and its comments.
func (r *SQLTicketRepository) GetByNumber(ctx context.Context, number string) (*models.Ticket, error) {
	t, err := r.getByNumber(ctx, r.db, number)
	if err != nil {
		return nil, err
	}
	if err := r.attachComments(ctx, []*models.Ticket{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLTicketRepository) getByNumber(ctx context.Context, q sqlx.QueryerContext, number string) (*models.Ticket, error) {
	var t models.Ticket
	query := r.db.Rebind(`SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_number = ?`)
	if err := sqlx.GetContext(ctx, q, &t, query, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, number)
		}
		return nil, fmt.Errorf("get ticket %s: %w", number, err)
	}
	return &t, nil
}

// List returns the tickets selected by filter, comments included.
func (r *SQLTicketRepository) List(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	if err := filter.Normalize(); err != nil {
		return nil, err
	}
	var (
		where []string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if statuses := filter.Statuses(); statuses != nil {
		where = append(where, "status IN (?)")
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		args = append(args, names)
	}
	if filter.HasDateRange() {
		where = append(where, "created_at >= ?", "created_at <= ?")
		args = append(args, filter.StartDate.UTC(), filter.EndDate.UTC())
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.Sort == models.SortOldest {
		query += ` ORDER BY created_at ASC, sequence_value ASC`
	} else {
		query += ` ORDER BY created_at DESC, sequence_value DESC`
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build ticket list: %w", err)
	}
	tickets := []*models.Ticket{}
	if err := r.db.SelectContext(ctx, &tickets, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if err := r.attachComments(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *SQLTicketRepository) attachComments(ctx context.Context, tickets []*models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	byID := make(map[string]*models.Ticket, len(tickets))
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		t.Comments = []models.Comment{}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}
	query, args, err := sqlx.In(`SELECT `+commentColumns+` FROM ticket_comments WHERE ticket_id IN (?) ORDER BY created_at ASC`, ids)
	if err != nil {
		return fmt.Errorf("build comment query: %w", err)
	}
	var comments []models.Comment
	if err := r.db.SelectContext(ctx, &comments, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	for _, c := range comments {
		if t, ok := byID[c.TicketID]; ok {
			t.Comments = append(t.Comments, c)
		}
	}
	return nil
}

// UpdateStatus changes the ticket status and optionally the admin comment.
func (r *SQLTicketRepository) UpdateStatus(ctx context.Context, number string, status models.TicketStatus, adminComment string, at time.Time) (*models.Ticket, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE tickets
		SET status = ?, admin_comment = COALESCE(NULLIF(?, ''), admin_comment), updated_at = ?
		WHERE ticket_number = ?`), string(status), adminComment, at.UTC(), number)
	if err != nil {
		return nil, fmt.Errorf("update ticket %s: %w", number, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, number)
	}
	return r.GetByNumber(ctx, number)
}

// AddComment appends a comment and bumps the ticket's updated_at.
func (r *SQLTicketRepository) AddComment(ctx context.Context, number string, c *models.Comment) (*models.Ticket, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t, err := r.getByNumber(ctx, tx, number)
	if err != nil {
		return nil, err
	}
	c.TicketID = t.ID
	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO ticket_comments (id, ticket_id, text, author, author_type, created_at)
		VALUES (:id, :ticket_id, :text, :author, :author_type, :created_at)`, c); err != nil {
		return nil, fmt.Errorf("insert comment on %s: %w", number, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE tickets SET updated_at = ? WHERE id = ?`), c.CreatedAt.UTC(), t.ID); err != nil {
		return nil, fmt.Errorf("touch ticket %s: %w", number, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit comment on %s: %w", number, err)
	}
	return r.GetByNumber(ctx, number)
}

// MaxSequenceValue returns the highest stored sequence value.
func (r *SQLTicketRepository) MaxSequenceValue(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.GetContext(ctx, &v, `SELECT COALESCE(MAX(sequence_value), 0) FROM tickets`); err != nil {
		return 0, fmt.Errorf("max sequence value: %w", err)
	}
	return v, nil
}
