// Package orchestrator drives one task through its lifecycle state
// machine: pending, claimed, measured, decided, persisted, or cancelled.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
	"github.com/Mindburn-Labs/verigate/pkg/runtime"
	"github.com/Mindburn-Labs/verigate/pkg/store/artifacts"
	"github.com/Mindburn-Labs/verigate/pkg/store/evidence"
	"github.com/Mindburn-Labs/verigate/pkg/task"
)

// ErrCancelledBeforeMeasured signals that the task was cancelled before its
// adapter plan finished. Per the lifecycle contract, no Verdict is written
// for a task that never reached measured.
var ErrCancelledBeforeMeasured = errors.New("orchestrator: cancelled before measurement completed")

// Pusher delivers a decided Verdict to the Monitor Service. Push failure is
// best-effort and never un-decides a task.
type Pusher interface {
	Push(ctx context.Context, v *task.Verdict) error
}

// Orchestrator holds the dependencies needed to run one task end to end.
type Orchestrator struct {
	Artifacts *artifacts.Store
	Runtime   *runtime.Index
	Evidence  evidence.Store
	Profiles  *gate.Registry
	Pusher    Pusher
	Clock     func() time.Time
	Backoff   []time.Duration

	Logger *slog.Logger
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) clock() func() time.Time {
	if o.Clock != nil {
		return o.Clock
	}
	return time.Now
}

// Run drives Commitment through the full lifecycle and returns the
// resulting Verdict. claimData is the raw Claim envelope bytes, or nil if
// the executor never submitted one.
func (o *Orchestrator) Run(ctx context.Context, commitment task.Commitment, claimData []byte) (*task.Verdict, error) {
	log := o.logger().With("task_id", commitment.TaskID, "type", commitment.Type)

	taskDir := o.Artifacts.TaskDir(commitment.TaskID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return nil, fmt.Errorf("orchestrator: prepare task dir: %w", err)
	}

	claim, claimErr := task.ParseClaim(claimData, commitment.TaskID)

	profile := o.Profiles.Get(commitment.Profile)

	if err := o.writeEnvelopes(commitment, claimData, profile); err != nil {
		return nil, err
	}

	var checksumMismatch string

	// pending -> claimed only on a schema-valid Claim. Otherwise the Gate
	// emits MISSING_CLAIM/CLAIM_INCONSISTENT directly, skipping measurement
	// entirely — no adapter plan runs against an unclaimed task.
	if claimErr == nil {
		log.Info("task claimed")

		plan, ok := planFor(commitment.Type)
		if !ok {
			// No adapter plan for this type (e.g. db_update): the Gate itself
			// raises NO_PLAN_FOR_TYPE from Step 1, so skip straight to decide.
			plan = nil
		}

		cancelledMidPlan := false
		for _, st := range plan {
			if ctx.Err() != nil {
				cancelledMidPlan = true
				break
			}
			if err := o.runStep(ctx, commitment, taskDir, st); err != nil {
				if st.Required {
					log.Error("required adapter step failed", "capability", st.Capability, "error", err)
					return nil, fmt.Errorf("orchestrator: required step %s: %w", st.Capability, err)
				}
				log.Warn("optional adapter step failed, continuing", "capability", st.Capability, "error", err)
			}
		}

		if cancelledMidPlan {
			log.Warn("task cancelled before measurement completed")
			return nil, ErrCancelledBeforeMeasured
		}

		// claimed -> measured: seal the bundle so the Gate reads a fixed,
		// hash-addressed view of what the adapters produced.
		if _, err := o.Artifacts.Seal(commitment.TaskID); err != nil {
			return nil, fmt.Errorf("orchestrator: seal: %w", err)
		}
		if path, err := o.Artifacts.Verify(commitment.TaskID); err != nil {
			checksumMismatch = path
		}
		log.Info("task measured")
	}

	cancelledAfterMeasured := claimErr == nil && ctx.Err() != nil

	// measured -> decided.
	verdict, err := gate.Evaluate(gate.Input{
		TaskDir:          taskDir,
		Commitment:       commitment,
		Claim:            claim,
		ClaimErr:         claimErr,
		ChecksumMismatch: checksumMismatch,
		Profile:          profile,
		Clock:            o.clock(),
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: gate: %w", err)
	}

	// A cancelled task must never surface as pass, even if the bundle that
	// existed at cancellation time happened to satisfy every check.
	if cancelledAfterMeasured && verdict.Status == task.StatusPass {
		verdict.Status = task.StatusPartial
	}
	log.Info("task decided", "status", verdict.Status)

	// decided -> persisted. Evidence DB write is required; Monitor push is
	// best-effort and never un-decides the task.
	if err := o.Evidence.UpsertVerdict(ctx, verdict); err != nil {
		return verdict, fmt.Errorf("orchestrator: persist verdict: %w", err)
	}
	if o.Pusher != nil {
		if err := o.Pusher.Push(ctx, verdict); err != nil {
			log.Warn("monitor push failed", "error", err)
		}
	}
	log.Info("task persisted")

	return verdict, nil
}

// writeEnvelopes persists the commitment, claim, and resolved profile to
// the task directory so adapter subprocesses can read them per the CLI
// contract, even when the claim itself is invalid or absent.
func (o *Orchestrator) writeEnvelopes(commitment task.Commitment, claimData []byte, profile *gate.Profile) error {
	commitmentJSON, err := json.Marshal(commitment)
	if err != nil {
		return fmt.Errorf("orchestrator: marshal commitment: %w", err)
	}
	if err := o.Artifacts.Put(commitment.TaskID, "commitment.json", commitmentJSON, true); err != nil {
		return fmt.Errorf("orchestrator: write commitment.json: %w", err)
	}

	if len(claimData) > 0 {
		if err := o.Artifacts.Put(commitment.TaskID, "claim.json", claimData, true); err != nil {
			return fmt.Errorf("orchestrator: write claim.json: %w", err)
		}
	}

	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("orchestrator: marshal profile: %w", err)
	}
	if err := o.Artifacts.Put(commitment.TaskID, "profile.json", profileJSON, true); err != nil {
		return fmt.Errorf("orchestrator: write profile.json: %w", err)
	}
	return nil
}

// runStep invokes one adapter capability, retrying a failed invocation on
// the Orchestrator's Backoff schedule; the profile does not set the
// backoff. The Orchestrator itself never retries a whole task — only the
// individual adapter invocation.
func (o *Orchestrator) runStep(ctx context.Context, commitment task.Commitment, taskDir string, st step) error {
	opts := runtime.InvokeOptions{
		TaskDir:        taskDir,
		CommitmentPath: filepath.Join(taskDir, "commitment.json"),
		ClaimPath:      filepath.Join(taskDir, "claim.json"),
		ProfilePath:    filepath.Join(taskDir, "profile.json"),
	}
	_, err := o.Runtime.InvokeWithRetry(ctx, st.Capability, opts, o.Backoff)
	if err != nil && st.Required {
		if _, ok := o.Runtime.Resolve(st.Capability); !ok {
			return fmt.Errorf("%s: %w", gate.ReasonMissingAdapter, err)
		}
	}
	return err
}
