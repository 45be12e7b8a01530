package gate_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
	"github.com/Mindburn-Labs/verigate/pkg/task"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, rel string, v any) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(full, data, 0644))
}

func fixedClock() time.Time { return time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC) }

// Scenario 1: content happy path.
func TestEvaluate_ContentHappyPath(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "content/scan.json", gate.ContentScanArtifact{
		Files: []gate.ContentFileResult{
			{Path: "a.md", WordCount: 410},
			{Path: "b.md", WordCount: 420},
			{Path: "c.md", WordCount: 430},
		},
	})

	in := gate.Input{
		TaskDir: dir,
		Commitment: task.Commitment{
			TaskID: "t-1", Type: task.TypeContent, Profile: "content_default",
			ExpectedTotal: 3, Quality: task.Quality{WordMin: 300},
		},
		Claim: &task.Claim{
			Claim: task.ClaimBody{Type: "content", UnitsTotal: 3, UnitsList: []string{"a.md", "b.md", "c.md"}},
		},
		Profile: &gate.Profile{Name: "content_default", WordMin: 300},
		Clock:   fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusPass, v.Status)
	require.Equal(t, 3, v.UnitsExpected)
	require.Equal(t, 3, v.UnitsVerified)
	require.Empty(t, v.Reasons)
}

// Scenario 2: content shortfall.
func TestEvaluate_ContentShortfall(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "content/scan.json", gate.ContentScanArtifact{
		Files: []gate.ContentFileResult{
			{Path: "a.md", WordCount: 410},
			{Path: "b.md", WordCount: 420},
			{Path: "c.md", WordCount: 210},
		},
	})

	in := gate.Input{
		TaskDir: dir,
		Commitment: task.Commitment{
			TaskID: "t-2", Type: task.TypeContent, Profile: "content_default",
			ExpectedTotal: 3, Quality: task.Quality{WordMin: 300},
		},
		Claim: &task.Claim{
			Claim: task.ClaimBody{Type: "content", UnitsTotal: 3, UnitsList: []string{"a.md", "b.md", "c.md"}},
		},
		Profile: &gate.Profile{Name: "content_default", WordMin: 300},
		Clock:   fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusFail, v.Status)
	require.Equal(t, []string{gate.ReasonWordMin}, v.Reasons)

	var shortfall *task.Unit
	for i := range v.PerUnit {
		if v.PerUnit[i].UnitID == "c.md" {
			shortfall = &v.PerUnit[i]
		}
	}
	require.NotNil(t, shortfall)
	require.False(t, shortfall.Verified)
	require.Equal(t, "word_count<300", shortfall.Reason)
}

// Scenario 3: code diff mismatch.
func TestEvaluate_CodeDiffMismatch(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "diff.json", gate.DiffArtifact{
		FunctionsModified: []string{"authenticate", "validateToken"},
	})
	writeJSON(t, dir, "function_map.json", gate.FunctionMapArtifact{
		Matches: []gate.FunctionMatch{
			{ClaimUnit: "func:authenticate", DiffFunction: "authenticate", Certainty: "certain"},
			{ClaimUnit: "func:validateToken", DiffFunction: "validateToken", Certainty: "certain"},
		},
		UnmatchedClaims: []string{"func:refreshToken"},
	})

	in := gate.Input{
		TaskDir: dir,
		Commitment: task.Commitment{
			TaskID: "t-3", Type: task.TypeCode, Profile: "code_update", ExpectedTotal: 3,
		},
		Claim: &task.Claim{
			Claim: task.ClaimBody{
				Type: "code", UnitsTotal: 3,
				UnitsList: []string{"func:authenticate", "func:validateToken", "func:refreshToken"},
			},
		},
		Profile: &gate.Profile{Name: "code_update", FunctionCertaintyRequired: "certain"},
		Clock:   fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusFail, v.Status)
	require.Contains(t, v.Reasons, gate.ReasonDiffMismatch)

	var refresh *task.Unit
	for i := range v.PerUnit {
		if v.PerUnit[i].UnitID == "func:refreshToken" {
			refresh = &v.PerUnit[i]
		}
	}
	require.NotNil(t, refresh)
	require.False(t, refresh.Verified)
	require.Equal(t, "no match in diff", refresh.Reason)
}

// Scenario 4: link coverage, partial recovery.
func TestEvaluate_LinkPartialRecovery(t *testing.T) {
	dir := t.TempDir()
	urls := []string{
		"http://a.test/1", "http://a.test/2", "http://a.test/3", "http://a.test/4",
		"http://a.test/5", "http://a.test/6", "http://a.test/7", "http://a.test/8",
	}
	writeJSON(t, dir, "links/urlset.json", gate.LinksURLSet{URLs: urls})
	statuses := map[string]string{
		"http://a.test/1": "200", "http://a.test/2": "200", "http://a.test/3": "200",
		"http://a.test/4": "200", "http://a.test/5": "200", "http://a.test/6": "301",
		"http://a.test/7": "200", "http://a.test/8": "500",
	}
	writeJSON(t, dir, "links/statuses.json", statuses)
	writeJSON(t, dir, "links/check.json", gate.LinksCheckArtifact{TotalChecked: 8, Passed: 6, Failed: 2})
	writeJSON(t, dir, "links/resample.json", gate.LinksResampleArtifact{TotalResampled: 2, Recovered: 1, StillFailed: 1})

	in := gate.Input{
		TaskDir: dir,
		Commitment: task.Commitment{
			TaskID: "t-4", Type: task.TypeLinkCheck, Profile: "link_check", ExpectedTotal: 8,
		},
		Claim: &task.Claim{
			Claim: task.ClaimBody{Type: "link_check", UnitsTotal: 8, UnitsList: urls},
		},
		Profile: &gate.Profile{Name: "link_check", Treat3xxAsPass: true, RequireFullCoverage: false},
		Clock:   fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusPartial, v.Status)
	require.Empty(t, v.Reasons)
	require.Equal(t, 7, v.UnitsVerified)

	var failing *task.Unit
	for i := range v.PerUnit {
		if v.PerUnit[i].UnitID == "http://a.test/8" {
			failing = &v.PerUnit[i]
		}
	}
	require.NotNil(t, failing)
	require.False(t, failing.Verified)
}

// Scenario 5: missing claim.
func TestEvaluate_MissingClaim(t *testing.T) {
	dir := t.TempDir()
	in := gate.Input{
		TaskDir:    dir,
		Commitment: task.Commitment{TaskID: "t-5", Type: task.TypeContent, Profile: "content_default", ExpectedTotal: 1},
		Claim:      nil,
		Profile:    &gate.Profile{Name: "content_default"},
		Clock:      fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusFail, v.Status)
	require.Equal(t, []string{gate.ReasonMissingClaim}, v.Reasons)
	require.Equal(t, 0, v.UnitsVerified)
}

// Scenario 6: integrity tamper.
func TestEvaluate_ChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	in := gate.Input{
		TaskDir:          dir,
		Commitment:       task.Commitment{TaskID: "t-6", Type: task.TypeLinkCheck, Profile: "link_check"},
		Claim:            &task.Claim{Claim: task.ClaimBody{Type: "link_check"}},
		ChecksumMismatch: "links/statuses.json",
		Profile:          &gate.Profile{Name: "link_check"},
		Clock:            fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusFail, v.Status)
	require.Equal(t, []string{gate.ReasonChecksumMismatch}, v.Reasons)
}

func TestEvaluate_EmptyURLSetExpectedZeroPasses(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "links/urlset.json", gate.LinksURLSet{URLs: []string{}})
	writeJSON(t, dir, "links/statuses.json", map[string]string{})
	writeJSON(t, dir, "links/check.json", gate.LinksCheckArtifact{})

	in := gate.Input{
		TaskDir:    dir,
		Commitment: task.Commitment{TaskID: "t-7", Type: task.TypeLinkCheck, Profile: "link_check", ExpectedTotal: 0},
		Claim:      &task.Claim{Claim: task.ClaimBody{Type: "link_check", UnitsList: []string{}}},
		Profile:    &gate.Profile{Name: "link_check"},
		Clock:      fixedClock,
	}

	v, err := gate.Evaluate(in)
	require.NoError(t, err)
	require.Equal(t, task.StatusPass, v.Status)
	require.Equal(t, 0, v.UnitsVerified)
}
