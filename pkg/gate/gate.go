// Package gate implements the deterministic verdict engine: it consumes a
// sealed artifact bundle, a Claim, a Commitment, and a Profile, and emits a
// Verdict. It is pure and CPU-bound — no network, no subprocess, no clock
// reads other than the single timestamp it stamps on the result.
package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// Input bundles everything the Gate needs to decide a task. The caller
// (the Orchestrator) owns sealing the bundle and parsing the Claim; the
// Gate never touches the filesystem outside TaskDir, and never re-parses
// the claim envelope itself.
type Input struct {
	TaskDir          string
	Commitment       task.Commitment
	Claim            *task.Claim
	ClaimErr         error // non-nil if the claim was absent or schema-invalid
	ChecksumMismatch string // non-empty path if Store.Verify found tampering
	Profile          *Profile
	Clock            func() time.Time
}

// Evaluate runs the five-step evaluation order against in and returns the
// resulting Verdict. Missing evidence, a bad claim or a checksum mismatch
// produce a fail Verdict, not an error. An error is returned for a nil
// Profile, and for an artifact that exists but cannot be read or parsed.
func Evaluate(in Input) (*task.Verdict, error) {
	if in.Profile == nil {
		return nil, errors.New("gate: nil profile")
	}
	clock := in.Clock
	if clock == nil {
		clock = time.Now
	}

	// Step 1: schema/integrity. Any fatal here short-circuits — there is no
	// usable bundle to measure further.
	if in.ChecksumMismatch != "" {
		return shortCircuit(in.Commitment.TaskID, in.Profile, clock(), ReasonChecksumMismatch), nil
	}
	if errors.Is(in.ClaimErr, task.ErrClaimInconsistent) {
		return shortCircuit(in.Commitment.TaskID, in.Profile, clock(), ReasonClaimInconsistent), nil
	}
	if in.Claim == nil || in.ClaimErr != nil {
		return shortCircuit(in.Commitment.TaskID, in.Profile, clock(), ReasonMissingClaim), nil
	}

	if in.Commitment.Type == task.TypeDBUpdate {
		return shortCircuit(in.Commitment.TaskID, in.Profile, clock(), ReasonNoPlanForType), nil
	}

	units, reasons, metrics, err := evaluateUnits(in)
	if err != nil {
		return nil, err
	}

	unitsExpected := in.Commitment.ExpectedTotal
	// UNIT_MISSING is raised once, for units with no evidence at all. A unit
	// whose evidence fails a type-specific check keeps that check's reason
	// on the unit and does not count as missing.
	noEvidence := map[string]bool{
		"no content scan evidence": true, "no match in diff": true,
		"file not present in diff": true, "endpoint not present in diff": true,
		"no status recorded": true, "no measurement for endpoint": true,
	}
	unitsVerified, unitsWithEvidence := 0, 0
	for _, u := range units {
		if u.Verified {
			unitsVerified++
		}
		if u.Verified || !noEvidence[u.Reason] {
			unitsWithEvidence++
		}
	}
	if unitsWithEvidence < unitsExpected {
		reasons = append(reasons, ReasonUnitMissing)
	}

	reasons = orderReasons(dedupe(reasons))

	status := task.StatusPartial
	if len(reasons) > 0 {
		status = task.StatusFail
	} else if unitsVerified >= unitsExpected {
		status = task.StatusPass
	}

	return &task.Verdict{
		TaskID:        in.Commitment.TaskID,
		Status:        status,
		UnitsExpected: unitsExpected,
		UnitsVerified: unitsVerified,
		PerUnit:       units,
		Reasons:       reasons,
		Metrics:       metrics,
		Policy: task.Policy{
			Profile:    in.Profile.Name,
			Thresholds: thresholdsOf(in.Profile),
		},
		Timestamp: clock(),
	}, nil
}

func shortCircuit(taskID string, profile *Profile, at time.Time, reason string) *task.Verdict {
	return &task.Verdict{
		TaskID:        taskID,
		Status:        task.StatusFail,
		UnitsExpected: 0,
		UnitsVerified: 0,
		PerUnit:       nil,
		Reasons:       []string{reason},
		Metrics:       map[string]any{},
		Policy: task.Policy{
			Profile:    profile.Name,
			Thresholds: thresholdsOf(profile),
		},
		Timestamp: at,
	}
}

func thresholdsOf(p *Profile) map[string]any {
	data, _ := json.Marshal(p)
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	return m
}

// evaluateUnits dispatches per-Commitment-type unit evaluation (coverage +
// type-specific fatal checks, steps 2-4) and returns the per-unit results,
// any fatal reasons raised, and the soft metrics map.
func evaluateUnits(in Input) ([]task.Unit, []string, map[string]any, error) {
	switch in.Commitment.Type {
	case task.TypeContent:
		return evaluateContent(in)
	case task.TypeCode:
		return evaluateCode(in)
	case task.TypeLinkCheck:
		return evaluateLinks(in)
	case task.TypeAPICheck:
		return evaluateAPI(in)
	default:
		return nil, []string{ReasonNoPlanForType}, map[string]any{}, nil
	}
}

func readArtifact(taskDir, relPath string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(taskDir, relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("gate: read %s: %w", relPath, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("gate: parse %s: %w", relPath, err)
	}
	return true, nil
}

func evaluateContent(in Input) ([]task.Unit, []string, map[string]any, error) {
	var scan ContentScanArtifact
	_, err := readArtifact(in.TaskDir, "content/scan.json", &scan)
	if err != nil {
		return nil, nil, nil, err
	}
	byPath := make(map[string]ContentFileResult, len(scan.Files))
	for _, f := range scan.Files {
		byPath[f.Path] = f
	}

	wordMin := in.Profile.WordMin
	if in.Commitment.Quality.WordMin > 0 {
		wordMin = in.Commitment.Quality.WordMin
	}

	var units []task.Unit
	var reasons []string
	wordMinHit := false
	for _, unitID := range in.Claim.Claim.UnitsList {
		u := task.Unit{TaskID: in.Commitment.TaskID, UnitID: unitID, UnitType: task.UnitFile}
		f, ok := byPath[unitID]
		switch {
		case !ok:
			u.Reason = "no content scan evidence"
		case f.WordCount < wordMin:
			u.Reason = fmt.Sprintf("word_count<%d", wordMin)
			wordMinHit = true
		default:
			u.Verified = true
		}
		units = append(units, u)
	}
	if wordMinHit {
		reasons = append(reasons, ReasonWordMin)
	}
	return units, reasons, map[string]any{}, nil
}

func evaluateCode(in Input) ([]task.Unit, []string, map[string]any, error) {
	var diff DiffArtifact
	var lint LintArtifact
	var tests TestsArtifact
	var coverage CoverageArtifact
	var build BuildArtifact
	var fnMap FunctionMapArtifact

	hadDiff, err := readArtifact(in.TaskDir, "diff.json", &diff)
	if err != nil {
		return nil, nil, nil, err
	}
	hadLint, err := readArtifact(in.TaskDir, "lint.json", &lint)
	if err != nil {
		return nil, nil, nil, err
	}
	hadTests, err := readArtifact(in.TaskDir, "tests.json", &tests)
	if err != nil {
		return nil, nil, nil, err
	}
	hadCoverage, err := readArtifact(in.TaskDir, "coverage.json", &coverage)
	if err != nil {
		return nil, nil, nil, err
	}
	hadBuild, err := readArtifact(in.TaskDir, "build.json", &build)
	if err != nil {
		return nil, nil, nil, err
	}
	if _, err := readArtifact(in.TaskDir, "function_map.json", &fnMap); err != nil {
		return nil, nil, nil, err
	}

	matchedCertain := make(map[string]bool, len(fnMap.Matches))
	matchedAny := make(map[string]bool, len(fnMap.Matches))
	for _, m := range fnMap.Matches {
		matchedAny[m.ClaimUnit] = true
		if m.Certainty == "certain" {
			matchedCertain[m.ClaimUnit] = true
		}
	}
	unmatched := make(map[string]bool, len(fnMap.UnmatchedClaims))
	for _, c := range fnMap.UnmatchedClaims {
		unmatched[c] = true
	}

	fileSet := make(map[string]bool, len(diff.FilesModified)+len(diff.FilesCreated)+len(diff.FilesDeleted))
	for _, p := range diff.FilesModified {
		fileSet[p] = true
	}
	for _, p := range diff.FilesCreated {
		fileSet[p] = true
	}
	for _, p := range diff.FilesDeleted {
		fileSet[p] = true
	}
	endpointSet := make(map[string]bool, len(diff.EndpointsModified))
	for _, e := range diff.EndpointsModified {
		endpointSet["ep:"+e] = true
	}

	var units []task.Unit
	for _, unitID := range in.Claim.Claim.UnitsList {
		u := task.Unit{TaskID: in.Commitment.TaskID, UnitID: unitID}
		switch {
		case strings.HasPrefix(unitID, "func:"):
			u.UnitType = task.UnitFunction
			if matchedAny[unitID] {
				u.Verified = true
			} else {
				u.Reason = "no match in diff"
			}
		case strings.HasPrefix(unitID, "ep:"):
			u.UnitType = task.UnitEndpoint
			if endpointSet[unitID] {
				u.Verified = true
			} else {
				u.Reason = "endpoint not present in diff"
			}
		default:
			u.UnitType = task.UnitFile
			if fileSet[unitID] {
				u.Verified = true
			} else {
				u.Reason = "file not present in diff"
			}
		}
		units = append(units, u)
	}

	var reasons []string
	if in.Profile.LintRequired {
		if !hadLint || lint.ExitCode != 0 || lint.Errors > 0 {
			reasons = append(reasons, ReasonLintFail)
		}
	}
	if in.Profile.TestsRequired {
		if !hadTests || tests.Total == 0 || tests.Failed > 0 {
			reasons = append(reasons, ReasonTestFail)
		}
	}
	if in.Profile.CoverageMin > 0 {
		if !hadCoverage || coverage.Pct < in.Profile.CoverageMin {
			reasons = append(reasons, ReasonCoverageFail)
		}
	}
	if in.Profile.BuildRequired {
		if !hadBuild || !build.Succeeded || build.ExitCode != 0 {
			reasons = append(reasons, ReasonBuildFail)
		}
	}
	if len(unmatched) > 0 && in.Profile.FunctionCertaintyRequired == "certain" {
		reasons = append(reasons, ReasonDiffMismatch)
	}

	metrics := map[string]any{}
	if hadDiff {
		claimed := make(map[string]bool, len(in.Claim.Claim.UnitsList))
		for _, u := range in.Claim.Claim.UnitsList {
			claimed[u] = true
		}
		unclaimed := 0
		for _, fn := range diff.FunctionsModified {
			if !claimed["func:"+fn] {
				unclaimed++
			}
		}
		for _, f := range append(append([]string{}, diff.FilesModified...), diff.FilesCreated...) {
			if !claimed[f] {
				unclaimed++
			}
		}
		if unclaimed > 0 {
			metrics[ReasonUnclaimedChange] = unclaimed
		}
	}
	if hadCoverage {
		metrics["coverage_pct"] = coverage.Pct
	}

	return units, reasons, metrics, nil
}

func statusCategory(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "timeout" || status == "error" {
		return status
	}
	if n, err := strconv.Atoi(status); err == nil {
		return fmt.Sprintf("%dxx", n/100)
	}
	return status
}

func evaluateLinks(in Input) ([]task.Unit, []string, map[string]any, error) {
	var urlset LinksURLSet
	var statuses map[string]string
	var check LinksCheckArtifact
	var resample LinksResampleArtifact

	if _, err := readArtifact(in.TaskDir, "links/urlset.json", &urlset); err != nil {
		return nil, nil, nil, err
	}
	if _, err := readArtifact(in.TaskDir, "links/statuses.json", &statuses); err != nil {
		return nil, nil, nil, err
	}
	if _, err := readArtifact(in.TaskDir, "links/check.json", &check); err != nil {
		return nil, nil, nil, err
	}
	hadResample, err := readArtifact(in.TaskDir, "links/resample.json", &resample)
	if err != nil {
		return nil, nil, nil, err
	}

	var reasons []string
	if len(statuses) != len(urlset.URLs) {
		reasons = append(reasons, ReasonLinkCoverage)
	}

	passClass := func(status string) bool {
		cat := statusCategory(status)
		if cat == "2xx" {
			return true
		}
		if cat == "3xx" && in.Profile.Treat3xxAsPass {
			return true
		}
		return false
	}

	var units []task.Unit
	stillFailing := false
	for _, unitID := range in.Claim.Claim.UnitsList {
		u := task.Unit{TaskID: in.Commitment.TaskID, UnitID: unitID, UnitType: task.UnitURL}
		status, ok := statuses[unitID]
		switch {
		case !ok:
			u.Reason = "no status recorded"
			stillFailing = true
		case passClass(status):
			u.Verified = true
		default:
			u.Reason = status
			stillFailing = true
		}
		units = append(units, u)
	}

	if in.Profile.RequireFullCoverage && stillFailing {
		reasons = append(reasons, ReasonLinkFail)
	}

	metrics := map[string]any{
		"checked": check.TotalChecked,
		"passed":  check.Passed,
		"failed":  check.Failed,
	}
	if hadResample {
		metrics["resampled"] = resample.TotalResampled
		metrics["recovered"] = resample.Recovered
	}

	return units, reasons, metrics, nil
}

func evaluateAPI(in Input) ([]task.Unit, []string, map[string]any, error) {
	var check APICheckArtifact
	if _, err := readArtifact(in.TaskDir, "api/check.json", &check); err != nil {
		return nil, nil, nil, err
	}

	byID := make(map[string]APIEndpointResult, len(check.Endpoints))
	for _, ep := range check.Endpoints {
		byID["ep:"+ep.Method+" "+ep.URL] = ep
		byID[ep.URL] = ep
	}

	var units []task.Unit
	var failed, schemaBad, latencyBad bool
	for _, unitID := range in.Claim.Claim.UnitsList {
		u := task.Unit{TaskID: in.Commitment.TaskID, UnitID: unitID, UnitType: task.UnitEndpoint}
		ep, ok := byID[unitID]
		if !ok {
			u.Reason = "no measurement for endpoint"
			units = append(units, u)
			continue
		}
		switch {
		case ep.Status >= 400:
			u.Reason = fmt.Sprintf("status=%d", ep.Status)
			failed = true
		case in.Profile.ValidateSchema && !ep.SchemaOK:
			u.Reason = "schema mismatch"
			schemaBad = true
		case in.Profile.MaxResponseTimeMs > 0 && ep.LatencyMs > int64(in.Profile.MaxResponseTimeMs):
			u.Reason = fmt.Sprintf("latency_ms=%d", ep.LatencyMs)
			latencyBad = true
		default:
			u.Verified = true
		}
		units = append(units, u)
	}

	var reasons []string
	if failed {
		reasons = append(reasons, ReasonAPIFailed)
	}
	if schemaBad {
		reasons = append(reasons, ReasonSchemaMismatch)
	}
	if latencyBad {
		reasons = append(reasons, ReasonLatencyFail)
	}

	return units, reasons, map[string]any{"total_checked": check.TotalChecked}, nil
}

// evaluationOrder maps each reason to the evaluation step that raises it;
// orderReasons sorts by step, then alphabetically within a step.
var evaluationOrder = func() map[string]int {
	order := map[string]int{}
	for step, rs := range [][]string{
		{ReasonMissingClaim, ReasonClaimInconsistent, ReasonChecksumMismatch},
		{ReasonUnitMissing},
		{ReasonWordMin, ReasonDiffMismatch, ReasonLintFail, ReasonTestFail,
			ReasonCoverageFail, ReasonBuildFail,
			ReasonLinkCoverage, ReasonLinkFail,
			ReasonAPIFailed, ReasonSchemaMismatch, ReasonLatencyFail},
		{ReasonNoPlanForType, ReasonMissingAdapter},
	} {
		for _, r := range rs {
			order[r] = step
		}
	}
	return order
}()

func orderReasons(reasons []string) []string {
	sort.SliceStable(reasons, func(i, j int) bool {
		oi, oj := evaluationOrder[reasons[i]], evaluationOrder[reasons[j]]
		if oi != oj {
			return oi < oj
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}

func dedupe(reasons []string) []string {
	seen := make(map[string]bool, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
