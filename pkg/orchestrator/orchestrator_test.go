package orchestrator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
	"github.com/Mindburn-Labs/verigate/pkg/orchestrator"
	"github.com/Mindburn-Labs/verigate/pkg/runtime"
	"github.com/Mindburn-Labs/verigate/pkg/store/artifacts"
	"github.com/Mindburn-Labs/verigate/pkg/store/evidence"
	"github.com/Mindburn-Labs/verigate/pkg/task"
	"github.com/stretchr/testify/require"
)

// writeContentScanAdapter installs a fake content:scan adapter binary that
// always writes a fixed scan.json, regardless of its claim/commitment
// inputs — enough to drive the Orchestrator's plumbing end to end without
// a real executor present.
func writeContentScanAdapter(t *testing.T, adapterDir string) {
	t.Helper()
	dir := filepath.Join(adapterDir, "content")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	script := `#!/bin/sh
set -e
shift
TASKDIR=""
while [ $# -gt 0 ]; do
  case "$1" in
    --task-dir) TASKDIR="$2"; shift 2;;
    *) shift;;
  esac
done
mkdir -p "$TASKDIR/content"
cat > "$TASKDIR/content/scan.json" <<'EOF'
{"files":[{"path":"README.md","word_count":500,"image_count":0}]}
EOF
`
	entry := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(entry, []byte(script), 0o755))

	manifest := `{
		"name": "content",
		"version": "1.0.0",
		"entry": "run.sh",
		"capabilities": ["content:scan"],
		"sandbox": {"timeout_s": 10, "network": false}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(manifest), 0o644))
}

func newOrchestrator(t *testing.T, adapterDir string) *orchestrator.Orchestrator {
	t.Helper()
	artifactRoot := t.TempDir()
	store, err := artifacts.NewStore(artifactRoot)
	require.NoError(t, err)

	idx, err := runtime.BuildIndex(adapterDir)
	require.NoError(t, err)

	ev, err := evidence.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, ev.Init(context.Background()))

	registry, err := gate.LoadRegistry(filepath.Join(t.TempDir(), "profiles.json"))
	require.NoError(t, err)

	return &orchestrator.Orchestrator{
		Artifacts: store,
		Runtime:   idx,
		Evidence:  ev,
		Profiles:  registry,
		Clock:     func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func validClaim(taskID string, units []string) []byte {
	return []byte(`{
		"schema": "verify.claim/v1.1",
		"actor": "executor-1",
		"task_id": "` + taskID + `",
		"timestamp": "2026-01-01T00:00:00Z",
		"claim": {
			"type": "content",
			"units_total": 1,
			"units_list": ["README.md"],
			"scope": {"repo_root": "."},
			"declared": {"intent": "update readme"}
		}
	}`)
}

func TestOrchestrator_RunHappyPath(t *testing.T) {
	adapterDir := t.TempDir()
	writeContentScanAdapter(t, adapterDir)
	o := newOrchestrator(t, adapterDir)

	commitment := task.Commitment{
		TaskID:        "task-1",
		Type:          task.TypeContent,
		Profile:       "content_default",
		ExpectedTotal: 1,
	}

	verdict, err := o.Run(context.Background(), commitment, validClaim("task-1", []string{"README.md"}))
	require.NoError(t, err)
	require.Equal(t, task.StatusPass, verdict.Status)
	require.Equal(t, 1, verdict.UnitsVerified)

	summary, err := o.Evidence.GetTask(context.Background(), "task-1")
	require.NoError(t, err)
	require.Equal(t, task.StatusPass, summary.Status)
}

func TestOrchestrator_MissingClaimSkipsMeasurement(t *testing.T) {
	adapterDir := t.TempDir() // no adapters registered at all
	o := newOrchestrator(t, adapterDir)

	commitment := task.Commitment{
		TaskID:        "task-2",
		Type:          task.TypeContent,
		Profile:       "content_default",
		ExpectedTotal: 1,
	}

	verdict, err := o.Run(context.Background(), commitment, nil)
	require.NoError(t, err)
	require.Equal(t, task.StatusFail, verdict.Status)
	require.Contains(t, verdict.Reasons, gate.ReasonMissingClaim)
}

func TestOrchestrator_CancelledBeforeMeasuredWritesNoVerdict(t *testing.T) {
	adapterDir := t.TempDir()
	writeContentScanAdapter(t, adapterDir)
	o := newOrchestrator(t, adapterDir)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	commitment := task.Commitment{
		TaskID:        "task-3",
		Type:          task.TypeContent,
		Profile:       "content_default",
		ExpectedTotal: 1,
	}

	_, err := o.Run(ctx, commitment, validClaim("task-3", []string{"README.md"}))
	require.ErrorIs(t, err, orchestrator.ErrCancelledBeforeMeasured)

	_, err = o.Evidence.GetTask(context.Background(), "task-3")
	require.Error(t, err)
}

func TestOrchestrator_NoPlanForDBUpdate(t *testing.T) {
	adapterDir := t.TempDir()
	o := newOrchestrator(t, adapterDir)

	commitment := task.Commitment{
		TaskID:        "task-4",
		Type:          task.TypeDBUpdate,
		Profile:       "content_default",
		ExpectedTotal: 1,
	}

	verdict, err := o.Run(context.Background(), commitment, validClaim("task-4", []string{"row-1"}))
	require.NoError(t, err)
	require.Equal(t, task.StatusFail, verdict.Status)
	require.Contains(t, verdict.Reasons, gate.ReasonNoPlanForType)
}
