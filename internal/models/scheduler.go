package models

import "time"

// ScheduledJob is a background job definition together with the outcome of
// its most recent run.
type ScheduledJob struct {
	Name           string         `json:"name"`
	Slug           string         `json:"slug"`
	Handler        string         `json:"handler"`
	Schedule       string         `json:"schedule"`
	TimeoutSeconds int            `json:"timeout_seconds"`
	RunOnStartup   bool           `json:"run_on_startup"`
	Config         map[string]any `json:"config,omitempty"`
	LastRunAt      *time.Time     `json:"last_run_at,omitempty"`
	NextRunAt      *time.Time     `json:"next_run_at,omitempty"`
	LastStatus     string         `json:"last_status,omitempty"`
	ErrorMessage   *string        `json:"error_message,omitempty"`
	LastDurationMS int64          `json:"last_duration_ms"`
}

// Clone returns a deep copy of the job so schedule mutations stay isolated.
func (j *ScheduledJob) Clone() *ScheduledJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.Config != nil {
		c.Config = make(map[string]any, len(j.Config))
		for k, v := range j.Config {
			c.Config[k] = v
		}
	}
	if j.LastRunAt != nil {
		t := *j.LastRunAt
		c.LastRunAt = &t
	}
	if j.NextRunAt != nil {
		t := *j.NextRunAt
		c.NextRunAt = &t
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		c.ErrorMessage = &msg
	}
	return &c
}
