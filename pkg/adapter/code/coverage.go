package code

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// Coverage runs `go test -coverprofile` and parses the resulting summary
// into a normalized [0,100] percentage. Other languages are expected to
// write their own coverage.out-equivalent; this adapter covers the Go path
// the teacher's own CI exercises.
func Coverage(ctx context.Context, repoRoot string) (*gate.CoverageArtifact, error) {
	if _, err := os.Stat(filepath.Join(repoRoot, "go.mod")); err != nil {
		return &gate.CoverageArtifact{}, nil
	}

	profile := filepath.Join(repoRoot, "coverage.out")
	cmd := exec.CommandContext(ctx, "go", "test", "-coverprofile="+profile, "./...")
	cmd.Dir = repoRoot
	_ = cmd.Run() // a failing suite still produces a coverage profile for what ran

	pct, err := parseGoCoverProfile(profile)
	if err != nil {
		return &gate.CoverageArtifact{}, nil
	}

	return &gate.CoverageArtifact{Pct: pct, ReportPath: "coverage.out"}, nil
}

func parseGoCoverProfile(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var covered, total int64
	scanner := bufio.NewScanner(f)
	scanner.Scan() // mode line
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 3 {
			continue
		}
		numStmt, err1 := strconv.ParseInt(fields[1], 10, 64)
		count, err2 := strconv.ParseInt(fields[2], 10, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		total += numStmt
		if count > 0 {
			covered += numStmt
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("coverage: no statements in profile")
	}
	return float64(covered) / float64(total) * 100, nil
}
