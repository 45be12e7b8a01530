// Package code implements the code:diff, code:lint, code:tests,
// code:coverage, code:map-functions, and code:build capabilities.
package code

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// functionPatterns cover the lexical forms §4.4 names: named function, arrow
// with identifier, class method, export function, Python def, and route
// decorators.
var functionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfunc\s+(\w+)\s*\(`),                          // Go
	regexp.MustCompile(`\bfunction\s+(\w+)\s*\(`),                      // JS named function
	regexp.MustCompile(`\bexport\s+function\s+(\w+)\s*\(`),             // JS export function
	regexp.MustCompile(`\b(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\([^)]*\)\s*=>`), // arrow w/ identifier
	regexp.MustCompile(`\bdef\s+(\w+)\s*\(`),                           // Python
	regexp.MustCompile(`^\s*(?:public|private|protected)?\s*(?:static\s+)?\w[\w<>\[\]]*\s+(\w+)\s*\([^;{]*\{`), // class method
}

var endpointPattern = regexp.MustCompile(`\bapp\.(get|post|put|patch|delete|head|options)\s*\(\s*["'\x60]([^"'\x60]+)["'\x60]`)

// DiffResult holds both the structured diff and the unified patch text.
type DiffResult struct {
	Artifact gate.DiffArtifact
	Patch    string
}

// Diff inspects the git working tree at repoRoot and produces a diff.json
// plus diffs.patch. It shells to git rather than reimplementing a diff
// algorithm — the VCS state is the ground truth.
func Diff(ctx context.Context, repoRoot string) (*DiffResult, error) {
	nameStatus, err := runGit(ctx, repoRoot, "diff", "--name-status", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("code: git diff --name-status: %w", err)
	}
	patch, err := runGit(ctx, repoRoot, "diff", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("code: git diff: %w", err)
	}

	var modified, created, deleted []string
	for _, line := range strings.Split(strings.TrimSpace(nameStatus), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		status, path := fields[0], fields[len(fields)-1]
		switch status[0] {
		case 'A':
			created = append(created, path)
		case 'D':
			deleted = append(deleted, path)
		default:
			modified = append(modified, path)
		}
	}
	sort.Strings(modified)
	sort.Strings(created)
	sort.Strings(deleted)

	functions := extractFunctions(patch)
	endpoints := extractEndpoints(patch)

	art := gate.DiffArtifact{
		FilesModified:     modified,
		FilesCreated:      created,
		FilesDeleted:      deleted,
		FunctionsModified: functions,
		EndpointsModified: endpoints,
		TotalChanges:      len(modified) + len(created) + len(deleted),
	}
	return &DiffResult{Artifact: art, Patch: patch}, nil
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, stderr.String())
	}
	return out.String(), nil
}

// extractFunctions applies functionPatterns over the patch's added lines
// (prefixed "+", excluding the "+++" file header) and returns a
// deduplicated, sorted list of identifiers.
func extractFunctions(patch string) []string {
	seen := map[string]bool{}
	for _, line := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(line, "+") || strings.HasPrefix(line, "+++") {
			continue
		}
		content := line[1:]
		for _, re := range functionPatterns {
			if m := re.FindStringSubmatch(content); m != nil {
				seen[m[1]] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func extractEndpoints(patch string) []string {
	seen := map[string]bool{}
	for _, line := range strings.Split(patch, "\n") {
		if !strings.HasPrefix(line, "+") || strings.HasPrefix(line, "+++") {
			continue
		}
		content := line[1:]
		if m := endpointPattern.FindStringSubmatch(content); m != nil {
			seen[strings.ToUpper(m[1])+" "+m[2]] = true
		}
	}
	out := make([]string, 0, len(seen))
	for ep := range seen {
		out = append(out, ep)
	}
	sort.Strings(out)
	return out
}
