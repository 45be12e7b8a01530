package evidence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// dialect isolates the handful of places Postgres and SQLite disagree:
// placeholder syntax and the upsert clause. Everything else is shared.
type dialect struct {
	name          string
	placeholder   func(n int) string
	unitsUpsert   string
	metricsUpsert string
}

var postgresDialect = dialect{
	name:        "postgres",
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	unitsUpsert: `ON CONFLICT (task_id, unit_id) DO UPDATE SET
		unit_type = EXCLUDED.unit_type,
		claimed = EXCLUDED.claimed,
		verified = EXCLUDED.verified,
		reason = EXCLUDED.reason,
		created_at = EXCLUDED.created_at`,
	metricsUpsert: `ON CONFLICT (task_id, k, created_at) DO UPDATE SET v = EXCLUDED.v`,
}

var sqliteDialect = dialect{
	name:          "sqlite",
	placeholder:   func(n int) string { return "?" },
	unitsUpsert:   `ON CONFLICT(task_id, unit_id) DO UPDATE SET unit_type=excluded.unit_type, claimed=excluded.claimed, verified=excluded.verified, reason=excluded.reason, created_at=excluded.created_at`,
	metricsUpsert: `ON CONFLICT(task_id, k, created_at) DO UPDATE SET v=excluded.v`,
}

// sqlStore is the shared database/sql-backed implementation; NewPostgres
// and NewSQLite each wrap it with their dialect and DDL.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlStore) ph(n int) string { return s.d.placeholder(n) }

const unitsDDLCommon = `(
	task_id    TEXT NOT NULL,
	unit_id    TEXT NOT NULL,
	unit_type  TEXT NOT NULL,
	claimed    INTEGER NOT NULL,
	verified   INTEGER NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (task_id, unit_id)
)`

const metricsDDLCommon = `(
	task_id    TEXT NOT NULL,
	k          TEXT NOT NULL,
	v          TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (task_id, k, created_at)
)`

const tasksDDLCommon = `(
	task_id        TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	units_expected INTEGER NOT NULL,
	units_verified INTEGER NOT NULL,
	reasons        TEXT NOT NULL DEFAULT '[]',
	decided_at     TIMESTAMP NOT NULL
)`

func (s *sqlStore) Init(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS units " + unitsDDLCommon,
		"CREATE TABLE IF NOT EXISTS metrics " + metricsDDLCommon,
		"CREATE TABLE IF NOT EXISTS tasks " + tasksDDLCommon,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("evidence: init schema (%s): %w", s.d.name, err)
		}
	}
	return nil
}

func (s *sqlStore) UpsertVerdict(ctx context.Context, v *task.Verdict) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("evidence: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := v.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	unitQuery := fmt.Sprintf(
		`INSERT INTO units (task_id, unit_id, unit_type, claimed, verified, reason, created_at)
		 VALUES (%s, %s, %s, %s, %s, %s, %s) %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7), s.d.unitsUpsert)

	for _, u := range v.PerUnit {
		claimed := 0
		if u.Claimed {
			claimed = 1
		}
		verified := 0
		if u.Verified {
			verified = 1
		}
		if _, err := tx.ExecContext(ctx, unitQuery, v.TaskID, u.UnitID, string(u.UnitType), claimed, verified, u.Reason, now); err != nil {
			return fmt.Errorf("evidence: upsert unit %s: %w", u.UnitID, err)
		}
	}

	reasonsJSON, err := json.Marshal(v.Reasons)
	if err != nil {
		return fmt.Errorf("evidence: marshal reasons: %w", err)
	}

	taskQuery := fmt.Sprintf(
		`INSERT INTO tasks (task_id, status, units_expected, units_verified, reasons, decided_at)
		 VALUES (%s, %s, %s, %s, %s, %s)`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6))
	if s.d.name == "postgres" {
		taskQuery += ` ON CONFLICT (task_id) DO UPDATE SET
			status = EXCLUDED.status,
			units_expected = EXCLUDED.units_expected,
			units_verified = EXCLUDED.units_verified,
			reasons = EXCLUDED.reasons,
			decided_at = EXCLUDED.decided_at`
	} else {
		taskQuery += ` ON CONFLICT(task_id) DO UPDATE SET status=excluded.status, units_expected=excluded.units_expected, units_verified=excluded.units_verified, reasons=excluded.reasons, decided_at=excluded.decided_at`
	}

	verifiedCount := 0
	for _, u := range v.PerUnit {
		if u.Verified {
			verifiedCount++
		}
	}

	if _, err := tx.ExecContext(ctx, taskQuery, v.TaskID, string(v.Status), len(v.PerUnit), verifiedCount, string(reasonsJSON), now); err != nil {
		return fmt.Errorf("evidence: upsert task %s: %w", v.TaskID, err)
	}

	return tx.Commit()
}

func (s *sqlStore) UpsertMetric(ctx context.Context, taskID, k, v string, at time.Time) error {
	query := fmt.Sprintf(
		`INSERT INTO metrics (task_id, k, v, created_at) VALUES (%s, %s, %s, %s) %s`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.d.metricsUpsert)
	if _, err := s.db.ExecContext(ctx, query, taskID, k, v, at); err != nil {
		return fmt.Errorf("evidence: upsert metric %s.%s: %w", taskID, k, err)
	}
	return nil
}

func (s *sqlStore) GetTask(ctx context.Context, taskID string) (*TaskSummary, error) {
	query := fmt.Sprintf(
		`SELECT task_id, status, units_expected, units_verified, reasons, decided_at FROM tasks WHERE task_id = %s`,
		s.ph(1))
	row := s.db.QueryRowContext(ctx, query, taskID)
	return scanTaskSummary(row)
}

func (s *sqlStore) ListTasks(ctx context.Context, limit int) ([]TaskSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(
		`SELECT task_id, status, units_expected, units_verified, reasons, decided_at
		 FROM tasks ORDER BY decided_at DESC LIMIT %s`, s.ph(1))
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("evidence: list tasks: %w", err)
	}
	defer rows.Close()

	var out []TaskSummary
	for rows.Next() {
		ts, err := scanTaskSummaryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ts)
	}
	return out, rows.Err()
}

func (s *sqlStore) ListUnits(ctx context.Context, taskID string) ([]UnitRow, error) {
	query := fmt.Sprintf(
		`SELECT task_id, unit_id, unit_type, claimed, verified, reason, created_at
		 FROM units WHERE task_id = %s ORDER BY unit_id ASC`, s.ph(1))
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("evidence: list units: %w", err)
	}
	defer rows.Close()

	var out []UnitRow
	for rows.Next() {
		var u UnitRow
		var unitType string
		var claimed, verified int
		if err := rows.Scan(&u.TaskID, &u.UnitID, &unitType, &claimed, &verified, &u.Reason, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("evidence: scan unit: %w", err)
		}
		u.UnitType = task.UnitType(unitType)
		u.Claimed = claimed != 0
		u.Verified = verified != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *sqlStore) TypeHistogram(ctx context.Context) ([]TypeCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT unit_type, COUNT(*) FROM units GROUP BY unit_type ORDER BY unit_type ASC`)
	if err != nil {
		return nil, fmt.Errorf("evidence: type histogram: %w", err)
	}
	defer rows.Close()

	var out []TypeCount
	for rows.Next() {
		var tc TypeCount
		var unitType string
		if err := rows.Scan(&unitType, &tc.Count); err != nil {
			return nil, fmt.Errorf("evidence: scan histogram row: %w", err)
		}
		tc.UnitType = task.UnitType(unitType)
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (s *sqlStore) DailyAggregates(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 30
	}
	// SUBSTR(decided_at, 1, 10) works against both an RFC3339 TEXT column in
	// SQLite and a TIMESTAMP cast to text in Postgres; avoids a dialect-specific
	// date-truncation function for a query this simple.
	query := `SELECT SUBSTR(CAST(decided_at AS TEXT), 1, 10) AS day, status, COUNT(*)
		FROM tasks GROUP BY day, status ORDER BY day DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("evidence: daily aggregates: %w", err)
	}
	defer rows.Close()

	byDay := map[string]*DailyCount{}
	var order []string
	for rows.Next() {
		var day, status string
		var count int
		if err := rows.Scan(&day, &status, &count); err != nil {
			return nil, fmt.Errorf("evidence: scan daily row: %w", err)
		}
		dc, ok := byDay[day]
		if !ok {
			dc = &DailyCount{Day: day}
			byDay[day] = dc
			order = append(order, day)
		}
		switch task.Status(status) {
		case task.StatusPass:
			dc.Pass += count
		case task.StatusFail:
			dc.Fail += count
		case task.StatusPartial:
			dc.Partial += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DailyCount, 0, len(order))
	for _, d := range order {
		out = append(out, *byDay[d])
	}
	if len(out) > days {
		out = out[:days]
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTaskSummary(row *sql.Row) (*TaskSummary, error) {
	return scanTaskSummaryRows(row)
}

func scanTaskSummaryRows(row rowScanner) (*TaskSummary, error) {
	var ts TaskSummary
	var status, reasonsJSON string
	if err := row.Scan(&ts.TaskID, &status, &ts.UnitsExpected, &ts.UnitsVerified, &reasonsJSON, &ts.DecidedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("evidence: scan task: %w", err)
	}
	ts.Status = task.Status(status)
	if strings.TrimSpace(reasonsJSON) != "" {
		if err := json.Unmarshal([]byte(reasonsJSON), &ts.Reasons); err != nil {
			return nil, fmt.Errorf("evidence: parse reasons: %w", err)
		}
	}
	return &ts, nil
}
