package tickets

import (
	"log"
	"time"

	"github.com/gotrs-io/gotrs-helpdesk/internal/sequence"
)

type options struct {
	Logger       *log.Logger
	Notifier     Notifier
	SequenceName string
	Format       sequence.Format
	Retry        sequence.RetryPolicy
	Clock        func() time.Time
}

// Option applies configuration to the ticket service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:       log.Default(),
		SequenceName: DefaultSequenceName,
		Format:       sequence.TicketFormat,
		Retry:        sequence.DefaultRetryPolicy(),
		Clock:        time.Now,
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithNotifier replaces the default log notifier.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.Notifier = n }
}

// WithSequence selects the counter name and display format for ticket numbers.
func WithSequence(name string, f sequence.Format) Option {
	return func(o *options) {
		if name != "" {
			o.SequenceName = name
		}
		if f.Prefix != "" {
			o.Format = f
		}
	}
}

// WithRetryPolicy sets how often creation is retried on transient storage failures.
func WithRetryPolicy(p sequence.RetryPolicy) Option {
	return func(o *options) { o.Retry = p }
}

// WithClock overrides time.Now (tests).
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.Clock = clock }
}
