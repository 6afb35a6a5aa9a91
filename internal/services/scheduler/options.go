package scheduler

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
)

type options struct {
	Logger        *log.Logger
	Cron          *cron.Cron
	Parser        cron.Parser
	Jobs          []*models.ScheduledJob
	Location      *time.Location
	Registerer    prometheus.Registerer
	SequenceName  string
	AuditSchedule string
}

// Option applies configuration to the scheduler service.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:        log.Default(),
		Location:      time.UTC,
		SequenceName:  "ticketId",
		AuditSchedule: "@every 15m",
	}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithCronParser allows replacing the cron expression parser.
func WithCronParser(p cron.Parser) Option {
	return func(o *options) {
		o.Parser = p
	}
}

// WithJobs registers explicit job definitions instead of defaults.
func WithJobs(jobs []*models.ScheduledJob) Option {
	return func(o *options) {
		o.Jobs = jobs
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}

// WithRegisterer registers the scheduler gauges with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.Registerer = reg
	}
}

// WithSequenceAudit sets the audited sequence and how often it is checked.
func WithSequenceAudit(name, schedule string) Option {
	return func(o *options) {
		if name != "" {
			o.SequenceName = name
		}
		if schedule != "" {
			o.AuditSchedule = schedule
		}
	}
}
