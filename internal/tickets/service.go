// Package tickets implements the enhancement request workflow: creation with a
// sequentially allocated TKT number, triage by administrators and comments.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gotrs-io/gotrs-helpdesk/internal/database"
	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
	"github.com/gotrs-io/gotrs-helpdesk/internal/repository"
	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
)

// DefaultSequenceName is the counter ticket numbers are drawn from.
const DefaultSequenceName = "ticketId"

var (
	// ErrValidation wraps rejected input.
	ErrValidation = errors.New("invalid ticket request")
	// ErrForbidden is returned when the caller may not perform the action.
	ErrForbidden = errors.New("forbidden")
)

// CreateInput carries the requester supplied fields of a new ticket.
type CreateInput struct {
	FolderPath string `json:"folder_path"`
	Query      string `json:"query"`
}

// Service coordinates ticket persistence, number allocation and notifications.
type Service struct {
	repo         repository.TicketRepository
	alloc        *sequence.Allocator
	sequenceName string
	format       sequence.Format
	retry        sequence.RetryPolicy
	notifier     Notifier
	logger       *log.Logger
	clock        func() time.Time
	newID        func() string
}

// NewService wires a ticket service around a repository and an allocator.
func NewService(repo repository.TicketRepository, alloc *sequence.Allocator, opts ...Option) *Service {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Notifier == nil {
		o.Notifier = NewLogNotifier(o.Logger, "")
	}
	return &Service{
		repo:         repo,
		alloc:        alloc,
		sequenceName: o.SequenceName,
		format:       o.Format,
		retry:        o.Retry,
		notifier:     o.Notifier,
		logger:       o.Logger,
		clock:        o.Clock,
		newID:        func() string { return uuid.NewString() },
	}
}

// Format returns the display format of ticket numbers.
func (s *Service) Format() sequence.Format { return s.format }

// Create allocates the next ticket number and stores the ticket. When the
// allocation fails nothing is persisted. Transient failures are retried as a
// whole according to the retry policy; a number consumed by an attempt whose
// insert failed is never reused.
func (s *Service) Create(ctx context.Context, who models.Identity, in CreateInput) (*models.Ticket, error) {
	if who.Anonymous() {
		return nil, fmt.Errorf("%w: user not identified", ErrForbidden)
	}
	in.FolderPath = strings.TrimSpace(in.FolderPath)
	in.Query = strings.TrimSpace(in.Query)
	if in.FolderPath == "" {
		return nil, fmt.Errorf("%w: folder path is required", ErrValidation)
	}
	if in.Query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrValidation)
	}

	var created *models.Ticket
	err := sequence.Retry(ctx, s.retry, func(ctx context.Context, attempt int) error {
		id, err := s.alloc.Allocate(ctx, s.sequenceName, s.format)
		if err != nil {
			return err
		}
		now := s.clock().UTC()
		t := &models.Ticket{
			ID:            s.newID(),
			TicketNumber:  id.Display,
			SequenceValue: id.Value,
			UserID:        who.UserID,
			UserName:      who.Name,
			UserEmail:     who.Email,
			FolderPath:    in.FolderPath,
			Query:         in.Query,
			Status:        models.StatusPending,
			Comments:      []models.Comment{},
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Insert(ctx, t); err != nil {
			if database.IsTransient(err) {
				err = fmt.Errorf("%w: %w", sequence.ErrStorageUnavailable, err)
			}
			s.logger.Printf("⚠️  Ticket %s allocated but not stored (attempt %d): %v", id.Display, attempt, err)
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		s.logger.Printf("❌ Create ticket for %s failed: %v", who.Email, err)
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.logger.Printf("✅ Ticket created: %s", created.TicketNumber)

	if err := s.notifier.TicketCreated(ctx, created); err != nil {
		s.logger.Printf("⚠️  Failed to notify about %s: %v", created.TicketNumber, err)
	}
	return created, nil
}

func (s *Service) checkNumber(number string) error {
	if _, err := s.format.Parse(number); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Get returns a ticket visible to the caller.
func (s *Service) Get(ctx context.Context, who models.Identity, number string) (*models.Ticket, error) {
	if err := s.checkNumber(number); err != nil {
		return nil, err
	}
	t, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !who.IsAdmin && t.UserID != who.UserID {
		return nil, fmt.Errorf("%w: ticket %s belongs to another user", ErrForbidden, number)
	}
	return t, nil
}

// ListMine lists the caller's own tickets.
func (s *Service) ListMine(ctx context.Context, who models.Identity, filter models.TicketFilter) ([]*models.Ticket, error) {
	if who.Anonymous() {
		return nil, fmt.Errorf("%w: user not identified", ErrForbidden)
	}
	filter.UserID = who.UserID
	return s.list(ctx, filter)
}

// ListAll lists every ticket; administrators only.
func (s *Service) ListAll(ctx context.Context, who models.Identity, filter models.TicketFilter) ([]*models.Ticket, error) {
	if !who.IsAdmin {
		return nil, fmt.Errorf("%w: administrator role required", ErrForbidden)
	}
	filter.UserID = ""
	return s.list(ctx, filter)
}

func (s *Service) list(ctx context.Context, filter models.TicketFilter) ([]*models.Ticket, error) {
	if err := filter.Normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if filter.HasDateRange() && filter.EndDate.Before(*filter.StartDate) {
		return nil, fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus lets an administrator triage a ticket. The requester is
// notified when the status changes to solved or error.
func (s *Service) UpdateStatus(ctx context.Context, who models.Identity, number string, status models.TicketStatus, adminComment string) (*models.Ticket, error) {
	if !who.IsAdmin {
		return nil, fmt.Errorf("%w: administrator role required", ErrForbidden)
	}
	if err := s.checkNumber(number); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	before, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	after, err := s.repo.UpdateStatus(ctx, number, status, strings.TrimSpace(adminComment), s.clock().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Printf("🔄 Ticket %s status %s -> %s", number, before.Status, after.Status)

	if before.Status != after.Status && after.Status.Final() {
		if err := s.notifier.TicketStatusChanged(ctx, after, before.Status); err != nil {
			s.logger.Printf("⚠️  Failed to notify %s about %s: %v", after.UserEmail, number, err)
		}
	}
	return after, nil
}

// AddComment appends a comment written by the ticket owner or an administrator.
func (s *Service) AddComment(ctx context.Context, who models.Identity, number, text string) (*models.Ticket, error) {
	if who.Anonymous() {
		return nil, fmt.Errorf("%w: user not identified", ErrForbidden)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrValidation)
	}
	if _, err := s.Get(ctx, who, number); err != nil {
		return nil, err
	}
	c := &models.Comment{
		ID:         s.newID(),
		Text:       text,
		Author:     who.Name,
		AuthorType: models.AuthorUser,
		CreatedAt:  s.clock().UTC(),
	}
	if who.IsAdmin {
		c.Author = "Admin"
		c.AuthorType = models.AuthorAdmin
	}
	t, err := s.repo.AddComment(ctx, number, c)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("💬 Comment added to %s by %s", number, c.AuthorType)
	return t, nil
}
