package code

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

func testRunnerFor(repoRoot string) (name string, args []string, ok bool) {
	checks := []struct {
		marker string
		name   string
		args   []string
	}{
		{"go.mod", "go", []string{"test", "-json", "./..."}},
		{"package.json", "npx", []string{"jest", "--json"}},
		{"pyproject.toml", "pytest", []string{"--tb=no", "-q"}},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(repoRoot, c.marker)); err == nil {
			return c.name, c.args, true
		}
	}
	return "", nil, false
}

// RunTests executes the detected test command. An undetected framework is
// not an error — it emits total=0 with a human-readable summary, per §4.4's
// edge case, leaving the pass/fail decision to the Gate's tests_required
// check.
func RunTests(ctx context.Context, repoRoot string) (*gate.TestsArtifact, error) {
	name, args, ok := testRunnerFor(repoRoot)
	if !ok {
		return &gate.TestsArtifact{Summary: "no test framework detected"}, nil
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = repoRoot
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	_ = cmd.Run() // non-zero exit means tests failed, not a crash

	duration := time.Since(start).Milliseconds()

	var passed, failed, skipped int
	switch name {
	case "go":
		passed, failed, skipped = parseGoTestJSON(out.Bytes())
	default:
		passed, failed, skipped = 0, 0, 0
	}

	total := passed + failed + skipped
	return &gate.TestsArtifact{
		Passed:     passed,
		Failed:     failed,
		Skipped:    skipped,
		Total:      total,
		DurationMs: duration,
		Summary:    fmt.Sprintf("%d passed, %d failed, %d skipped", passed, failed, skipped),
	}, nil
}

func parseGoTestJSON(out []byte) (passed, failed, skipped int) {
	dec := json.NewDecoder(bytes.NewReader(out))
	for dec.More() {
		var ev struct {
			Action string `json:"Action"`
			Test   string `json:"Test"`
		}
		if err := dec.Decode(&ev); err != nil {
			break
		}
		if ev.Test == "" {
			continue
		}
		switch ev.Action {
		case "pass":
			passed++
		case "fail":
			failed++
		case "skip":
			skipped++
		}
	}
	return
}
