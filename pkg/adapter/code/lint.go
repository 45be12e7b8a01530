package code

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// linterFor detects the project's linter from manifest files present at
// repoRoot, mirroring the framework-probe style of a build-tool detector:
// check for the tool's own config first, fall back to the language manifest.
func linterFor(repoRoot string) (name string, args []string, ok bool) {
	checks := []struct {
		marker string
		name   string
		args   []string
	}{
		{".eslintrc.json", "npx", []string{"eslint", ".", "--format", "json"}},
		{".eslintrc.js", "npx", []string{"eslint", ".", "--format", "json"}},
		{"go.mod", "go", []string{"vet", "-json", "./..."}},
		{"pyproject.toml", "ruff", []string{"check", ".", "--output-format", "json"}},
		{".ruff.toml", "ruff", []string{"check", ".", "--output-format", "json"}},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(repoRoot, c.marker)); err == nil {
			return c.name, c.args, true
		}
	}
	return "", nil, false
}

// Lint runs the detected linter and returns its summary. No linter detected
// is not an error — it produces a zero-issue result the Gate can still
// reconcile against lint_required.
func Lint(ctx context.Context, repoRoot string) (*gate.LintArtifact, error) {
	name, args, ok := linterFor(repoRoot)
	if !ok {
		return &gate.LintArtifact{}, nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = repoRoot
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	errCount, warnCount, issues := parseLintOutput(name, out.Bytes())
	_ = err // non-zero exit is expected behavior for a linter, not a crash

	return &gate.LintArtifact{
		ExitCode:     exitCode,
		Errors:       errCount,
		Warnings:     warnCount,
		FilesChecked: len(issues),
		Issues:       issues,
	}, nil
}

func parseLintOutput(tool string, out []byte) (errors, warnings int, issues []any) {
	switch tool {
	case "go":
		// go vet -json emits one object per package/finding; each is treated
		// as an error since go vet has no warning tier.
		dec := json.NewDecoder(bytes.NewReader(out))
		for dec.More() {
			var v map[string]any
			if err := dec.Decode(&v); err != nil {
				break
			}
			issues = append(issues, v)
			errors++
		}
	default:
		var parsed []map[string]any
		if json.Unmarshal(out, &parsed) == nil {
			for _, entry := range parsed {
				issues = append(issues, entry)
				if sev, _ := entry["severity"].(float64); sev >= 2 {
					errors++
				} else {
					warnings++
				}
			}
		}
	}
	return errors, warnings, issues
}
