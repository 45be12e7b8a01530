// Command verigate-adapter implements every built-in capability behind one
// binary, satisfying the adapter CLI contract the Adapter Runtime invokes:
//
//	verigate-adapter <capability> --task-dir <dir> --commitment <file> --claim <file> --profile <file>
//
// Capabilities: content:scan, code:diff, code:lint, code:tests,
// code:coverage, code:build, code:map-functions, link:discover, link:check,
// link:resample, api:check, api:latency.
//
// Exit 0 on successful measurement, regardless of what the measurement
// found — a failing lint run or a 500 from a probed endpoint is data for
// the Gate, not an adapter failure. Non-zero exit means the adapter process
// itself could not complete its measurement.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/adapter/api"
	"github.com/Mindburn-Labs/verigate/pkg/adapter/code"
	"github.com/Mindburn-Labs/verigate/pkg/adapter/content"
	"github.com/Mindburn-Labs/verigate/pkg/adapter/link"
	"github.com/Mindburn-Labs/verigate/pkg/gate"
	"github.com/Mindburn-Labs/verigate/pkg/task"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: verigate-adapter <capability> --task-dir <dir> --commitment <file> --claim <file> --profile <file>")
		os.Exit(1)
	}
	capability := os.Args[1]

	fs := flag.NewFlagSet(capability, flag.ExitOnError)
	taskDir := fs.String("task-dir", "", "task directory (required)")
	commitmentPath := fs.String("commitment", "", "path to commitment.json (required)")
	claimPath := fs.String("claim", "", "path to claim.json")
	_ = fs.String("profile", "", "path to profiles.json")
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	if *taskDir == "" || *commitmentPath == "" {
		fmt.Fprintln(os.Stderr, "verigate-adapter: --task-dir and --commitment are required")
		os.Exit(1)
	}

	commitment, err := readCommitment(*commitmentPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "verigate-adapter:", err)
		os.Exit(1)
	}

	var claim task.ClaimBody
	if *claimPath != "" {
		if data, err := os.ReadFile(*claimPath); err == nil {
			var envelope struct {
				Claim task.ClaimBody `json:"claim"`
			}
			if err := json.Unmarshal(data, &envelope); err == nil {
				claim = envelope.Claim
			}
		}
	}

	ctx := context.Background()
	if err := dispatch(ctx, capability, *taskDir, commitment, claim); err != nil {
		fmt.Fprintln(os.Stderr, "verigate-adapter:", capability, err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, capability, taskDir string, commitment task.Commitment, claim task.ClaimBody) error {
	repoRoot := commitment.Scope.TargetDirectory
	if repoRoot == "" {
		repoRoot = claim.Scope.RepoRoot
	}
	if repoRoot == "" {
		repoRoot = "."
	}

	switch capability {
	case "content:scan":
		return runContentScan(taskDir, repoRoot)
	case "code:diff":
		return runCodeDiff(ctx, taskDir, repoRoot)
	case "code:lint":
		return runCodeLint(ctx, taskDir, repoRoot)
	case "code:tests":
		return runCodeTests(ctx, taskDir, repoRoot)
	case "code:coverage":
		return runCodeCoverage(ctx, taskDir, repoRoot)
	case "code:build":
		return runCodeBuild(ctx, taskDir, repoRoot)
	case "code:map-functions":
		return runMapFunctions(taskDir, claim)
	case "link:discover":
		return runLinkDiscover(taskDir, repoRoot, commitment)
	case "link:check":
		return runLinkCheck(ctx, taskDir, commitment)
	case "link:resample":
		return runLinkResample(ctx, taskDir)
	case "api:check":
		return runAPICheck(ctx, taskDir, commitment)
	case "api:latency":
		return runAPILatency(ctx, taskDir, commitment)
	default:
		return fmt.Errorf("unknown capability %q", capability)
	}
}

func runContentScan(taskDir, repoRoot string) error {
	scan, err := content.Scan(repoRoot)
	if err != nil {
		return err
	}
	return writeArtifact(taskDir, "content/scan.json", scan)
}

func runCodeDiff(ctx context.Context, taskDir, repoRoot string) error {
	result, err := code.Diff(ctx, repoRoot)
	if err != nil {
		return err
	}
	if err := writeArtifact(taskDir, "diff.json", result.Artifact); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(taskDir, "diffs.patch"), []byte(result.Patch), 0o644); err != nil {
		return fmt.Errorf("write diffs.patch: %w", err)
	}
	names := append(append(append([]string{}, result.Artifact.FilesModified...), result.Artifact.FilesCreated...), result.Artifact.FilesDeleted...)
	return writeArtifact(taskDir, "diff_names.json", names)
}

func runCodeLint(ctx context.Context, taskDir, repoRoot string) error {
	artifact, err := code.Lint(ctx, repoRoot)
	if err != nil {
		return err
	}
	return writeArtifact(taskDir, "lint.json", artifact)
}

func runCodeTests(ctx context.Context, taskDir, repoRoot string) error {
	artifact, err := code.RunTests(ctx, repoRoot)
	if err != nil {
		return err
	}
	return writeArtifact(taskDir, "tests.json", artifact)
}

func runCodeCoverage(ctx context.Context, taskDir, repoRoot string) error {
	artifact, err := code.Coverage(ctx, repoRoot)
	if err != nil {
		return err
	}
	return writeArtifact(taskDir, "coverage.json", artifact)
}

func runCodeBuild(ctx context.Context, taskDir, repoRoot string) error {
	artifact, err := code.Build(ctx, repoRoot)
	if err != nil {
		return err
	}
	return writeArtifact(taskDir, "build.json", artifact)
}

// runMapFunctions reads the diff.json this plan already produced — it runs
// after code:diff in every code plan — and matches it against the claim's
// declared units.
func runMapFunctions(taskDir string, claim task.ClaimBody) error {
	var diff gate.DiffArtifact
	if err := readArtifact(taskDir, "diff.json", &diff); err != nil {
		return err
	}
	fnMap := code.MapFunctions(claim.UnitsList, diff)
	return writeArtifact(taskDir, "function_map.json", fnMap)
}

func runLinkDiscover(taskDir, repoRoot string, commitment task.Commitment) error {
	var urlset gate.LinksURLSet
	var err error

	if len(commitment.Scope.Endpoints) > 0 {
		// The commitment already names the URL set directly — no crawl needed.
		urlset = gate.LinksURLSet{URLs: commitment.Scope.Endpoints}
	} else {
		var htmlDocs []string
		for _, f := range commitment.Scope.Files {
			data, readErr := os.ReadFile(filepath.Join(repoRoot, f))
			if readErr == nil {
				htmlDocs = append(htmlDocs, string(data))
			}
		}
		urlset, err = link.DiscoverFromHTML(htmlDocs, "file://"+repoRoot+"/")
		if err != nil {
			return err
		}
	}
	return writeArtifact(taskDir, "links/urlset.json", urlset)
}

func runLinkCheck(ctx context.Context, taskDir string, commitment task.Commitment) error {
	var urlset gate.LinksURLSet
	if err := readArtifact(taskDir, "links/urlset.json", &urlset); err != nil {
		return err
	}

	statuses, artifact := link.Check(ctx, urlset.URLs, link.CheckOptions{})
	if err := writeArtifact(taskDir, "links/statuses.json", statuses); err != nil {
		return err
	}
	return writeArtifact(taskDir, "links/check.json", artifact)
}

func runLinkResample(ctx context.Context, taskDir string) error {
	var statuses map[string]string
	if err := readArtifact(taskDir, "links/statuses.json", &statuses); err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	artifact := link.Resample(ctx, statuses, client, 3)
	if err := writeArtifact(taskDir, "links/statuses.json", statuses); err != nil {
		return err
	}
	return writeArtifact(taskDir, "links/resample.json", artifact)
}

func endpointsFor(commitment task.Commitment) []api.Endpoint {
	endpoints := make([]api.Endpoint, 0, len(commitment.Scope.Endpoints))
	for _, url := range commitment.Scope.Endpoints {
		endpoints = append(endpoints, api.Endpoint{URL: url, Method: http.MethodGet})
	}
	return endpoints
}

func runAPICheck(ctx context.Context, taskDir string, commitment task.Commitment) error {
	client := &http.Client{Timeout: 10 * time.Second}
	result, err := api.Check(ctx, client, endpointsFor(commitment), 10000)
	if err != nil {
		return err
	}
	if err := writeArtifact(taskDir, "api/check.json", result.Artifact); err != nil {
		return err
	}
	if result.SchemaHash != "" {
		if err := os.WriteFile(filepath.Join(taskDir, "api", "schema_hash.txt"), []byte(result.SchemaHash), 0o644); err != nil {
			return fmt.Errorf("write api/schema_hash.txt: %w", err)
		}
	}
	return nil
}

func runAPILatency(ctx context.Context, taskDir string, commitment task.Commitment) error {
	client := &http.Client{Timeout: 10 * time.Second}
	artifact := api.Latency(ctx, client, endpointsFor(commitment), 5)
	return writeArtifact(taskDir, "api/latency.json", artifact)
}

func readCommitment(path string) (task.Commitment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Commitment{}, fmt.Errorf("read commitment: %w", err)
	}
	var c task.Commitment
	if err := json.Unmarshal(data, &c); err != nil {
		return task.Commitment{}, fmt.Errorf("parse commitment: %w", err)
	}
	return c, nil
}

func readArtifact(taskDir, relPath string, v any) error {
	data, err := os.ReadFile(filepath.Join(taskDir, relPath))
	if err != nil {
		return fmt.Errorf("read %s: %w", relPath, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", relPath, err)
	}
	return nil
}

func writeArtifact(taskDir, relPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", relPath, err)
	}
	fullPath := filepath.Join(taskDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", relPath, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", relPath, err)
	}
	return nil
}
