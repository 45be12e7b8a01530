package task

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingClaim signals the absence of a claim.json file or body.
	ErrMissingClaim = errors.New("task: missing claim")
	// ErrClaimInconsistent signals units_total != len(units_list) or a
	// task_id mismatch against the Commitment.
	ErrClaimInconsistent = errors.New("task: claim inconsistent")
)

// claimEnvelope decodes the outer claim document loosely; only the nested
// "claim" object enforces strict field rejection, per spec: "additional
// properties rejected at the claim level."
type claimEnvelope struct {
	Schema    string          `json:"schema"`
	Actor     string          `json:"actor"`
	TaskID    string          `json:"task_id"`
	Timestamp string          `json:"timestamp"`
	Claim     json.RawMessage `json:"claim"`
}

// ParseClaim strictly decodes a claim document and validates it against the
// given Commitment's task_id. A schema mismatch, decode failure, or
// inconsistency returns ErrClaimInconsistent (or ErrMissingClaim for a nil
// body) rather than a generic error, so the Gate can map it directly onto a
// fatal reason code.
func ParseClaim(data []byte, commitmentTaskID string) (*Claim, error) {
	if len(data) == 0 {
		return nil, ErrMissingClaim
	}

	var env claimEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClaimInconsistent, err)
	}

	if env.Schema != ClaimSchemaVersion {
		return nil, fmt.Errorf("%w: schema %q, want %q", ErrClaimInconsistent, env.Schema, ClaimSchemaVersion)
	}

	var body ClaimBody
	dec := json.NewDecoder(bytes.NewReader(env.Claim))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: claim body: %v", ErrClaimInconsistent, err)
	}

	if body.UnitsTotal != len(body.UnitsList) {
		return nil, fmt.Errorf("%w: units_total=%d len(units_list)=%d", ErrClaimInconsistent, body.UnitsTotal, len(body.UnitsList))
	}

	if env.TaskID != commitmentTaskID {
		return nil, fmt.Errorf("%w: claim task_id %q != commitment task_id %q", ErrClaimInconsistent, env.TaskID, commitmentTaskID)
	}

	ts, err := parseTimestamp(env.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrClaimInconsistent, err)
	}

	return &Claim{
		Schema:    env.Schema,
		Actor:     env.Actor,
		TaskID:    env.TaskID,
		Timestamp: ts,
		Claim:     body,
	}, nil
}
