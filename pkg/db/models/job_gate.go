package models

import "time"

// JobGate persists the "last run" timestamp for run-at-most-once-per-interval
// jobs. Exclusivity during a run comes from the Redis lock; this row is what
// survives across processes between runs.
type JobGate struct {
	Name      string    `gorm:"column:name;type:text;primaryKey"`
	LastRunAt time.Time `gorm:"column:last_run_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName matches the goose migration.
func (JobGate) TableName() string { return "job_gates" }
