package evidence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// TestSQLStore_PostgresDialectPlaceholders exercises the postgres branch of
// sqlStore directly against a mocked driver — the real Postgres round trip
// is covered by evidence_test.go against SQLite, but the $N placeholder
// rewriting and ON CONFLICT clause selection only run when d is
// postgresDialect, which an in-memory SQLite test can never reach.
func TestSQLStore_PostgresDialectPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &sqlStore{db: db, d: postgresDialect}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO units \(task_id, unit_id, unit_type, claimed, verified, reason, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)`).
		WithArgs("t-1", "a.md", "file", 1, 1, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO tasks \(task_id, status, units_expected, units_verified, reasons, decided_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs("t-1", "pass", 1, 1, "[]", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	verdict := &task.Verdict{
		TaskID: "t-1",
		Status: task.StatusPass,
		PerUnit: []task.Unit{
			{TaskID: "t-1", UnitID: "a.md", UnitType: task.UnitFile, Claimed: true, Verified: true},
		},
		Reasons:   []string{},
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, s.UpsertVerdict(context.Background(), verdict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresMetricUpsertUsesDollarPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &sqlStore{db: db, d: postgresDialect}

	mock.ExpectExec(`INSERT INTO metrics \(task_id, k, v, created_at\) VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \(task_id, k, created_at\) DO UPDATE SET v = EXCLUDED.v`).
		WithArgs("t-1", "latency_ms", "42", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.UpsertMetric(context.Background(), "t-1", "latency_ms", "42", time.Now()))
	require.NoError(t, mock.ExpectationsWereMet())
}
