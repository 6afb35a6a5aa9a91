package models

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus is the lifecycle state of an enhancement request.
type TicketStatus string

const (
	StatusPending TicketStatus = "pending"
	StatusSolved  TicketStatus = "solved"
	StatusError   TicketStatus = "error"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case StatusPending, StatusSolved, StatusError:
		return true
	}
	return false
}

// Final reports whether the requester should be notified about s.
func (s TicketStatus) Final() bool { return s == StatusSolved || s == StatusError }

// AuthorType tells who wrote a comment.
type AuthorType string

const (
	AuthorUser  AuthorType = "user"
	AuthorAdmin AuthorType = "admin"
)

// Ticket represents an image enhancement request.
type Ticket struct {
	ID            string       `json:"id" db:"id"`
	TicketNumber  string       `json:"ticket_number" db:"ticket_number"` // TKT-000042, immutable
	SequenceValue int64        `json:"-" db:"sequence_value"`
	UserID        string       `json:"user_id" db:"user_id"`
	UserName      string       `json:"user_name" db:"user_name"`
	UserEmail     string       `json:"user_email" db:"user_email"`
	FolderPath    string       `json:"folder_path" db:"folder_path"`
	Query         string       `json:"query" db:"query_text"`
	Status        TicketStatus `json:"status" db:"status"`
	AdminComment  string       `json:"admin_comment" db:"admin_comment"`
	Comments      []Comment    `json:"comments" db:"-"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`
}

// Comment is a message on a ticket from the requester or an administrator.
type Comment struct {
	ID         string     `json:"id" db:"id"`
	TicketID   string     `json:"-" db:"ticket_id"`
	Text       string     `json:"text" db:"text"`
	Author     string     `json:"author" db:"author"`
	AuthorType AuthorType `json:"author_type" db:"author_type"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Status filters accepted by ticket listings.
const (
	FilterAll      = "all"
	FilterSolved   = "solved"
	FilterUnsolved = "unsolved"
	FilterError    = "error"
)

// Sort orders accepted by ticket listings.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// TicketFilter narrows a ticket listing.
type TicketFilter struct {
	UserID    string // empty lists every user's tickets
	Filter    string
	StartDate *time.Time
	EndDate   *time.Time
	Sort      string
}

// Normalize fills defaults and rejects unknown values.
func (f *TicketFilter) Normalize() error {
	f.Filter = strings.ToLower(strings.TrimSpace(f.Filter))
	if f.Filter == "" {
		f.Filter = FilterAll
	}
	switch f.Filter {
	case FilterAll, FilterSolved, FilterUnsolved, FilterError:
	default:
		return fmt.Errorf("unknown filter %q", f.Filter)
	}
	f.Sort = strings.ToLower(strings.TrimSpace(f.Sort))
	if f.Sort == "" {
		f.Sort = SortNewest
	}
	if f.Sort != SortNewest && f.Sort != SortOldest {
		return fmt.Errorf("unknown sort %q", f.Sort)
	}
	return nil
}

// Statuses returns the statuses selected by the filter, nil meaning all.
func (f TicketFilter) Statuses() []TicketStatus {
	switch f.Filter {
	case FilterSolved:
		return []TicketStatus{StatusSolved}
	case FilterUnsolved:
		return []TicketStatus{StatusPending, StatusError}
	case FilterError:
		return []TicketStatus{StatusError}
	}
	return nil
}

// HasDateRange reports whether both ends of the date range are set.
func (f TicketFilter) HasDateRange() bool { return f.StartDate != nil && f.EndDate != nil }

// Matches applies the filter to t in memory.
func (f TicketFilter) Matches(t *Ticket) bool {
	if f.UserID != "" && t.UserID != f.UserID {
		return false
	}
	if statuses := f.Statuses(); statuses != nil {
		ok := false
		for _, s := range statuses {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.HasDateRange() && (t.CreatedAt.Before(*f.StartDate) || t.CreatedAt.After(*f.EndDate)) {
		return false
	}
	return true
}
