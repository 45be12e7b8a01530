package code

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

func buildCommandFor(repoRoot string) (name string, args []string, ok bool) {
	checks := []struct {
		marker string
		name   string
		args   []string
	}{
		{"go.mod", "go", []string{"build", "./..."}},
		{"package.json", "npm", []string{"run", "build"}},
	}
	for _, c := range checks {
		if _, err := os.Stat(filepath.Join(repoRoot, c.marker)); err == nil {
			return c.name, c.args, true
		}
	}
	return "", nil, false
}

// Build runs the project's build command and reports success/exit code.
func Build(ctx context.Context, repoRoot string) (*gate.BuildArtifact, error) {
	name, args, ok := buildCommandFor(repoRoot)
	if !ok {
		return &gate.BuildArtifact{Succeeded: false, Log: "no build command detected"}, nil
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

	return &gate.BuildArtifact{
		ExitCode:  exitCode,
		Succeeded: err == nil,
		Log:       out.String(),
	}, nil
}
