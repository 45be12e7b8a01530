package task_test

import (
	"testing"

	"github.com/Mindburn-Labs/verigate/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validClaim = `{
	"schema": "verify.claim/v1.1",
	"actor": "agent-1",
	"task_id": "t-1",
	"timestamp": "2026-01-01T00:00:00Z",
	"claim": {
		"type": "code",
		"units_total": 2,
		"units_list": ["func:a", "func:b"],
		"scope": {"repo_root": "."},
		"declared": {"intent": "fix bug"}
	}
}`

func TestParseClaim_Valid(t *testing.T) {
	c, err := task.ParseClaim([]byte(validClaim), "t-1")
	require.NoError(t, err)
	assert.Equal(t, task.ClaimSchemaVersion, c.Schema)
	assert.Equal(t, 2, c.Claim.UnitsTotal)
	assert.Len(t, c.Claim.UnitsList, 2)
}

func TestParseClaim_Empty(t *testing.T) {
	_, err := task.ParseClaim(nil, "t-1")
	assert.ErrorIs(t, err, task.ErrMissingClaim)
}

func TestParseClaim_TaskIDMismatch(t *testing.T) {
	_, err := task.ParseClaim([]byte(validClaim), "other-task")
	assert.ErrorIs(t, err, task.ErrClaimInconsistent)
}

func TestParseClaim_UnitsTotalMismatch(t *testing.T) {
	bad := `{
		"schema": "verify.claim/v1.1",
		"actor": "agent-1",
		"task_id": "t-1",
		"timestamp": "2026-01-01T00:00:00Z",
		"claim": {"type": "code", "units_total": 3, "units_list": ["func:a"]}
	}`
	_, err := task.ParseClaim([]byte(bad), "t-1")
	assert.ErrorIs(t, err, task.ErrClaimInconsistent)
}

func TestParseClaim_RejectsAdditionalProperties(t *testing.T) {
	bad := `{
		"schema": "verify.claim/v1.1",
		"actor": "agent-1",
		"task_id": "t-1",
		"timestamp": "2026-01-01T00:00:00Z",
		"claim": {"type": "code", "units_total": 0, "units_list": [], "unexpected_field": true}
	}`
	_, err := task.ParseClaim([]byte(bad), "t-1")
	assert.ErrorIs(t, err, task.ErrClaimInconsistent)
}

func TestParseClaim_WrongSchemaVersion(t *testing.T) {
	bad := `{"schema": "verify.claim/v2.0", "task_id": "t-1", "timestamp": "2026-01-01T00:00:00Z", "claim": {}}`
	_, err := task.ParseClaim([]byte(bad), "t-1")
	assert.ErrorIs(t, err, task.ErrClaimInconsistent)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, task.CanTransition(task.StatePending, task.StateClaimed))
	assert.True(t, task.CanTransition(task.StateClaimed, task.StateMeasured))
	assert.True(t, task.CanTransition(task.StateMeasured, task.StateDecided))
	assert.True(t, task.CanTransition(task.StateDecided, task.StatePersisted))
	assert.False(t, task.CanTransition(task.StatePending, task.StateMeasured))
	assert.False(t, task.CanTransition(task.StateDecided, task.StateClaimed))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, task.IsTerminal(task.StatePersisted))
	assert.True(t, task.IsTerminal(task.StateCancelled))
	assert.False(t, task.IsTerminal(task.StateMeasured))
}
