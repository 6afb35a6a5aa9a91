package tickets

import (
	"context"
	"log"

	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
)

// Notifier is told about ticket events that concern a person. Delivery
// (mail, chat) lives outside this service.
type Notifier interface {
	TicketCreated(ctx context.Context, t *models.Ticket) error
	TicketStatusChanged(ctx context.Context, t *models.Ticket, from models.TicketStatus) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger     *log.Logger
	adminEmail string
}

// NewLogNotifier returns a notifier that logs to l.
func NewLogNotifier(l *log.Logger, adminEmail string) *LogNotifier {
	if l == nil {
		l = log.Default()
	}
	return &LogNotifier{logger: l, adminEmail: adminEmail}
}

func (n *LogNotifier) TicketCreated(_ context.Context, t *models.Ticket) error {
	to := n.adminEmail
	if to == "" {
		to = "admins"
	}
	n.logger.Printf("📧 notify %s: new ticket %s from %s <%s> (%s)", to, t.TicketNumber, t.UserName, t.UserEmail, t.FolderPath)
	return nil
}

func (n *LogNotifier) TicketStatusChanged(_ context.Context, t *models.Ticket, from models.TicketStatus) error {
	n.logger.Printf("📧 notify %s: ticket %s %s -> %s", t.UserEmail, t.TicketNumber, from, t.Status)
	return nil
}
