// Package verifier provides offline bundle verification.
//
// This package is intentionally minimal with ZERO server or network
// dependencies. It is designed to be buildable and auditable as a
// standalone verification tool that an operator can run against a sealed
// task directory without the Orchestrator, the Monitor Service, or a live
// Evidence DB anywhere nearby.
//
// Trust model: the verifier trusts only the cryptographic primitive
// (SHA-256) and the bundle format the Artifact Store writes. It does not
// trust that verdict.json on disk is still correct — it recomputes.
package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// VerifyReport is the structured output of offline verification.
type VerifyReport struct {
	TaskDir    string        `json:"task_dir"`
	Verified   bool          `json:"verified"`
	Timestamp  time.Time     `json:"timestamp"`
	Checks     []CheckResult `json:"checks"`
	Summary    string        `json:"summary"`
	IssueCount int           `json:"issue_count"`
}

// CheckResult represents a single verification check.
type CheckResult struct {
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Detail string `json:"detail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// bundleIndex mirrors artifacts.Bundle without importing the artifacts
// package, keeping this verifier's dependency surface to the standard
// library plus the Gate it needs for replay.
type bundleIndex struct {
	TaskID           string        `json:"task_id"`
	Entries          []bundleEntry `json:"entries"`
	BundleMerkleRoot string        `json:"bundle_merkle_root"`
}

type bundleEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// VerifyBundle performs offline verification of a sealed task directory:
// structure, index parseability, per-file hash integrity, and — if a
// Profile registry is supplied — replay determinism of the Gate decision.
func VerifyBundle(taskDir string, registry *gate.Registry) (*VerifyReport, error) {
	report := &VerifyReport{
		TaskDir:   taskDir,
		Verified:  true,
		Timestamp: time.Now().UTC(),
		Checks:    make([]CheckResult, 0),
	}

	report.addCheck(checkStructure(taskDir))

	bundle, indexCheck := checkIndex(taskDir)
	report.addCheck(indexCheck)

	if bundle != nil {
		report.addChecks(checkFileHashes(taskDir, bundle))
	}

	if registry != nil {
		report.addCheck(checkReplayDeterminism(taskDir, registry))
	}

	failed := 0
	for _, c := range report.Checks {
		if !c.Pass {
			failed++
		}
	}
	report.IssueCount = failed
	if failed > 0 {
		report.Verified = false
		report.Summary = fmt.Sprintf("FAIL: %d/%d checks failed", failed, len(report.Checks))
	} else {
		report.Summary = fmt.Sprintf("PASS: %d/%d checks passed", len(report.Checks), len(report.Checks))
	}

	return report, nil
}

func (r *VerifyReport) addCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
}

func (r *VerifyReport) addChecks(cs []CheckResult) {
	r.Checks = append(r.Checks, cs...)
}

func checkStructure(taskDir string) CheckResult {
	info, err := os.Stat(taskDir)
	if err != nil {
		return CheckResult{Name: "structure", Pass: false, Reason: fmt.Sprintf("path not found: %v", err)}
	}
	if !info.IsDir() {
		return CheckResult{Name: "structure", Pass: false, Reason: "bundle must be a directory"}
	}
	if !fileExists(filepath.Join(taskDir, "artifacts.json")) {
		return CheckResult{Name: "structure", Pass: false, Reason: "missing artifacts.json — bundle was never sealed"}
	}
	if !fileExists(filepath.Join(taskDir, "checksums.sha256")) {
		return CheckResult{Name: "structure", Pass: false, Reason: "missing checksums.sha256"}
	}
	return CheckResult{Name: "structure", Pass: true, Detail: "sealed bundle layout present"}
}

func checkIndex(taskDir string) (*bundleIndex, CheckResult) {
	path := filepath.Join(taskDir, "artifacts.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, CheckResult{Name: "index_integrity", Pass: false, Reason: fmt.Sprintf("cannot read artifacts.json: %v", err)}
	}
	var bundle bundleIndex
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, CheckResult{Name: "index_integrity", Pass: false, Reason: fmt.Sprintf("invalid artifacts.json: %v", err)}
	}
	if len(bundle.Entries) > 0 && bundle.BundleMerkleRoot == "" {
		return &bundle, CheckResult{Name: "index_integrity", Pass: false, Reason: "bundle has entries but no merkle root"}
	}
	return &bundle, CheckResult{Name: "index_integrity", Pass: true, Detail: fmt.Sprintf("%d entries indexed", len(bundle.Entries))}
}

// checkFileHashes recomputes sha256 for every entry artifacts.json records
// and compares it against the recorded hash — the literal form of the
// "for every artifact file, sha256(bytes) == recorded hash" invariant.
func checkFileHashes(taskDir string, bundle *bundleIndex) []CheckResult {
	if len(bundle.Entries) == 0 {
		return []CheckResult{{Name: "file_hashes", Pass: true, Detail: "no entries to verify"}}
	}

	results := make([]CheckResult, 0, len(bundle.Entries))
	for _, e := range bundle.Entries {
		content, err := os.ReadFile(filepath.Join(taskDir, e.Path))
		if err != nil {
			results = append(results, CheckResult{
				Name: "hash:" + e.Path, Pass: false,
				Reason: fmt.Sprintf("file missing or unreadable: %v", err),
			})
			continue
		}
		actual := sha256Hex(content)
		if actual != e.SHA256 {
			results = append(results, CheckResult{
				Name: "hash:" + e.Path, Pass: false,
				Reason: fmt.Sprintf("hash mismatch: recorded %s, computed %s", e.SHA256, actual),
			})
			continue
		}
		results = append(results, CheckResult{Name: "hash:" + e.Path, Pass: true})
	}
	return results
}

// checkReplayDeterminism re-runs the Gate against the sealed bundle and
// compares the result to the persisted verdict.json, field by field except
// Timestamp — the literal form of the re-run idempotence invariant.
func checkReplayDeterminism(taskDir string, registry *gate.Registry) CheckResult {
	verdictPath := filepath.Join(taskDir, "verdict.json")
	if !fileExists(verdictPath) {
		return CheckResult{Name: "replay_determinism", Pass: true, Detail: "no verdict.json — task not yet decided"}
	}
	recorded, err := readVerdict(verdictPath)
	if err != nil {
		return CheckResult{Name: "replay_determinism", Pass: false, Reason: err.Error()}
	}

	commitment, err := readCommitment(filepath.Join(taskDir, "commitment.json"))
	if err != nil {
		return CheckResult{Name: "replay_determinism", Pass: false, Reason: err.Error()}
	}

	claimData, _ := os.ReadFile(filepath.Join(taskDir, "claim.json"))
	claim, claimErr := task.ParseClaim(claimData, commitment.TaskID)

	replayed, err := gate.Evaluate(gate.Input{
		TaskDir:    taskDir,
		Commitment: commitment,
		Claim:      claim,
		ClaimErr:   claimErr,
		Profile:    registry.Get(commitment.Profile),
		Clock:      func() time.Time { return recorded.Timestamp },
	})
	if err != nil {
		return CheckResult{Name: "replay_determinism", Pass: false, Reason: err.Error()}
	}

	recorded.Timestamp = replayed.Timestamp // the only field allowed to differ
	recordedJSON, _ := json.Marshal(recorded)
	replayedJSON, _ := json.Marshal(replayed)
	if string(recordedJSON) != string(replayedJSON) {
		return CheckResult{Name: "replay_determinism", Pass: false, Reason: "replayed verdict diverges from verdict.json"}
	}
	return CheckResult{Name: "replay_determinism", Pass: true, Detail: "replay matches recorded verdict"}
}

func readVerdict(path string) (*task.Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read verdict.json: %w", err)
	}
	var v task.Verdict
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid verdict.json: %w", err)
	}
	return &v, nil
}

func readCommitment(path string) (task.Commitment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Commitment{}, fmt.Errorf("cannot read commitment.json: %w", err)
	}
	var c task.Commitment
	if err := json.Unmarshal(data, &c); err != nil {
		return task.Commitment{}, fmt.Errorf("invalid commitment.json: %w", err)
	}
	return c, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
