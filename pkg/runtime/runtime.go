package runtime

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Index maps a capability name (e.g. "code:diff") to the manifest that
// provides it. Built once at startup by scanning an adapter directory.
type Index struct {
	byCapability map[string]Manifest
}

// BuildIndex scans adapterDir for adapter manifests and indexes every
// capability they declare. Two adapters declaring the same capability is
// an error: the Runtime never guesses which one to prefer.
func BuildIndex(adapterDir string) (*Index, error) {
	manifests, err := discoverManifests(adapterDir)
	if err != nil {
		return nil, err
	}

	idx := &Index{byCapability: make(map[string]Manifest)}
	for _, m := range manifests {
		for _, capability := range m.Capabilities {
			if existing, ok := idx.byCapability[capability]; ok {
				return nil, fmt.Errorf("runtime: capability %q declared by both %q and %q", capability, existing.Name, m.Name)
			}
			idx.byCapability[capability] = m
		}
	}
	return idx, nil
}

// Resolve returns the manifest providing a capability, or false if no
// adapter declares it.
func (idx *Index) Resolve(capability string) (Manifest, bool) {
	m, ok := idx.byCapability[capability]
	return m, ok
}

// InvokeOptions carries the four CLI-contract arguments every adapter
// binary accepts: --task-dir, --commitment, --claim, --profile.
type InvokeOptions struct {
	TaskDir        string
	CommitmentPath string
	ClaimPath      string
	ProfilePath    string
}

// Result is the outcome of one adapter invocation.
type Result struct {
	Capability string
	ExitCode   int
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

// Invoke runs the adapter binary providing capability under its declared
// sandbox timeout. A nonzero exit code is a crash, not a verdict — adapters
// report facts on disk and in stdout/stderr, never pass/fail.
func (idx *Index) Invoke(ctx context.Context, capability string, opts InvokeOptions) (Result, error) {
	m, ok := idx.Resolve(capability)
	if !ok {
		return Result{}, fmt.Errorf("runtime: no adapter declares capability %q", capability)
	}

	timeout := time.Duration(m.Sandbox.TimeoutS) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(runCtx, m.EntryPath(),
		capability,
		"--task-dir", opts.TaskDir,
		"--commitment", opts.CommitmentPath,
		"--claim", opts.ClaimPath,
		"--profile", opts.ProfilePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Capability: capability,
		ExitCode:   cmd.ProcessState.ExitCode(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		Duration:   time.Since(start),
	}
	if err != nil {
		return result, fmt.Errorf("runtime: adapter %s (%s) failed: %w: %s", m.Name, capability, err, stderr.String())
	}
	return result, nil
}

// InvokeWithRetry retries a failed invocation with the given backoff
// schedule. Every error from Invoke is retried alike (launch failure,
// timeout, nonzero exit); it does not single out transient ones.
// The caller supplies one delay per retry attempt; an empty schedule means
// no retries.
func (idx *Index) InvokeWithRetry(ctx context.Context, capability string, opts InvokeOptions, backoff []time.Duration) (Result, error) {
	result, err := idx.Invoke(ctx, capability, opts)
	for _, delay := range backoff {
		if err == nil {
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delay):
		}
		result, err = idx.Invoke(ctx, capability, opts)
	}
	return result, err
}
