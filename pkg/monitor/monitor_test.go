package monitor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/monitor"
	"github.com/Mindburn-Labs/verigate/pkg/store/evidence"
	"github.com/Mindburn-Labs/verigate/pkg/task"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, evidence.Store) {
	t.Helper()
	store, err := evidence.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))

	srv := httptest.NewServer(monitor.NewHandler(store))
	t.Cleanup(srv.Close)
	return srv, store
}

func TestMonitor_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMonitor_PostVerdictThenGetTask(t *testing.T) {
	srv, _ := newTestServer(t)

	v := task.Verdict{
		TaskID:        "t-1",
		Status:        task.StatusPass,
		UnitsExpected: 2,
		UnitsVerified: 2,
		PerUnit: []task.Unit{
			{TaskID: "t-1", UnitID: "a.md", UnitType: task.UnitFile, Claimed: true, Verified: true},
			{TaskID: "t-1", UnitID: "b.md", UnitType: task.UnitFile, Claimed: true, Verified: true},
		},
		Reasons:   []string{},
		Metrics:   map[string]any{},
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(v)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/verdict", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/tasks/t-1")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var summary evidence.TaskSummary
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&summary))
	require.Equal(t, task.StatusPass, summary.Status)
	require.Equal(t, 2, summary.UnitsVerified)

	resp3, err := http.Get(srv.URL + "/api/tasks/t-1/units")
	require.NoError(t, err)
	defer resp3.Body.Close()
	var units []evidence.UnitRow
	require.NoError(t, json.NewDecoder(resp3.Body).Decode(&units))
	require.Len(t, units, 2)
}

func TestMonitor_GetUnknownTaskIs404(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/tasks/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMonitor_PostVerdictMissingTaskIDIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/verdict", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
