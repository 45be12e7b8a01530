// Package evidence persists per-unit and per-metric records produced by a
// decided Verdict, with idempotent upserts so re-running a task's Gate
// never explodes the row count.
package evidence

import (
	"context"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// UnitRow is a persisted row from the units table.
type UnitRow struct {
	TaskID    string
	UnitID    string
	UnitType  task.UnitType
	Claimed   bool
	Verified  bool
	Reason    string
	CreatedAt time.Time
}

// MetricRow is a persisted row from the metrics table.
type MetricRow struct {
	TaskID    string
	K         string
	V         string
	CreatedAt time.Time
}

// TaskSummary is the latest-verdict projection the Monitor Service reads.
type TaskSummary struct {
	TaskID        string
	Status        task.Status
	UnitsExpected int
	UnitsVerified int
	Reasons       []string
	DecidedAt     time.Time
}

// TypeCount is one row of the units-by-type histogram.
type TypeCount struct {
	UnitType task.UnitType
	Count    int
}

// DailyCount is one row of the daily task aggregate.
type DailyCount struct {
	Day   string
	Pass  int
	Fail  int
	Partial int
}

// Store is the Evidence DB contract. Both the Postgres and SQLite
// implementations satisfy it identically; callers never branch on backend.
type Store interface {
	// Init creates the schema if absent.
	Init(ctx context.Context) error

	// UpsertVerdict persists a decided Verdict: its per-unit rows (idempotent
	// on task_id,unit_id) and the task-level summary used by the Monitor.
	UpsertVerdict(ctx context.Context, v *task.Verdict) error

	// UpsertMetric records one metric observation, idempotent on
	// (task_id, k, created_at).
	UpsertMetric(ctx context.Context, taskID, k, v string, at time.Time) error

	// GetTask returns the latest persisted summary for a task.
	GetTask(ctx context.Context, taskID string) (*TaskSummary, error)

	// ListTasks returns task summaries, most recently decided first.
	ListTasks(ctx context.Context, limit int) ([]TaskSummary, error)

	// ListUnits returns every unit row for a task.
	ListUnits(ctx context.Context, taskID string) ([]UnitRow, error)

	// TypeHistogram aggregates unit counts by unit_type.
	TypeHistogram(ctx context.Context) ([]TypeCount, error)

	// DailyAggregates rolls up pass/fail/partial counts per day.
	DailyAggregates(ctx context.Context, days int) ([]DailyCount, error)
}
