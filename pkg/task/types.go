// Package task defines the core data model shared by every verigate
// component: Commitment, Claim, Artifact, Unit, Verdict, and Profile, plus
// the task lifecycle state machine that sequences them.
package task

import "time"

// Type selects which adapter plan the Orchestrator runs for a Commitment.
type Type string

const (
	TypeContent  Type = "content"
	TypeCode     Type = "code"
	TypeLinkCheck Type = "link_check"
	TypeAPICheck Type = "api_check"
	TypeDBUpdate Type = "db_update" // accepted but rejected by the Gate with NO_PLAN_FOR_TYPE until an adapter ships
)

// State is a task's position in the lifecycle state machine.
type State string

const (
	StatePending   State = "pending"
	StateClaimed   State = "claimed"
	StateMeasured  State = "measured"
	StateDecided   State = "decided"
	StatePersisted State = "persisted"
	StateCancelled State = "cancelled"
)

// Scope narrows a Commitment's adapter plan to specific targets.
type Scope struct {
	TargetDirectory string   `json:"target_directory,omitempty"`
	Files           []string `json:"files,omitempty"`
	Functions       []string `json:"functions,omitempty"`
	Endpoints       []string `json:"endpoints,omitempty"`
}

// Quality carries profile-adjacent thresholds embedded directly in a
// Commitment (e.g. word_min for content tasks).
type Quality struct {
	WordMin      int `json:"word_min,omitempty"`
	CoverageMin  int `json:"coverage_min,omitempty"`
}

// Commitment is the immutable contract created before execution.
type Commitment struct {
	TaskID        string  `json:"task_id"`
	Type          Type    `json:"type"`
	Profile       string  `json:"profile"`
	ExpectedTotal int     `json:"expected_total"`
	Quality       Quality `json:"quality"`
	Scope         Scope   `json:"scope"`
}

// ClaimSchemaVersion is the one claim schema this system accepts.
const ClaimSchemaVersion = "verify.claim/v1.1"

// ClaimBody is the executor's structured self-report.
type ClaimBody struct {
	Type       string       `json:"type"`
	UnitsTotal int          `json:"units_total"`
	UnitsList  []string     `json:"units_list"`
	Scope      ClaimScope   `json:"scope"`
	Declared   Declared     `json:"declared"`
}

// ClaimScope describes the repo-relative area the executor worked in.
type ClaimScope struct {
	RepoRoot string   `json:"repo_root,omitempty"`
	Targets  []string `json:"targets,omitempty"`
	Files    []string `json:"files,omitempty"`
}

// Declared is the executor's free-text account of what it did, never
// trusted on its own — it exists for operator review, not verification.
type Declared struct {
	Intent           string `json:"intent,omitempty"`
	Approach         string `json:"approach,omitempty"`
	CompletionStatus string `json:"completion_status,omitempty"`
}

// Claim is the executor-supplied, schema-versioned self-report.
type Claim struct {
	Schema    string    `json:"schema"`
	Actor     string    `json:"actor"`
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
	Claim     ClaimBody `json:"claim"`
}

// UnitType enumerates the kinds of decidable items a Unit can represent.
type UnitType string

const (
	UnitFile     UnitType = "file"
	UnitFunction UnitType = "function"
	UnitEndpoint UnitType = "endpoint"
	UnitURL      UnitType = "url"
	UnitRow      UnitType = "row"
	UnitItem     UnitType = "item"
)

// Unit is the smallest decidable item inside a task.
type Unit struct {
	TaskID   string   `json:"task_id"`
	UnitID   string   `json:"unit_id"`
	UnitType UnitType `json:"unit_type"`
	Claimed  bool     `json:"claimed"`
	Verified bool     `json:"verified"`
	Reason   string   `json:"reason,omitempty"`
}

// OK reports whether the unit has no outstanding reason — the invariant
// "verified ⇒ ok" is enforced by callers checking this before setting
// Verified.
func (u Unit) OK() bool {
	return u.Reason == ""
}

// Status is the Gate's overall disposition for a task.
type Status string

const (
	StatusPass    Status = "pass"
	StatusPartial Status = "partial"
	StatusFail    Status = "fail"
)

// Policy records which profile (and its resolved thresholds) decided a
// Verdict, so the Verdict remains self-describing without a second lookup.
type Policy struct {
	Profile    string         `json:"profile"`
	Thresholds map[string]any `json:"thresholds"`
}

// Verdict is the Gate's output: the binding decision for a task.
type Verdict struct {
	TaskID         string         `json:"task_id"`
	Status         Status         `json:"status"`
	UnitsExpected  int            `json:"units_expected"`
	UnitsVerified  int            `json:"units_verified"`
	PerUnit        []Unit         `json:"per_unit"`
	Reasons        []string       `json:"reasons"`
	Metrics        map[string]any `json:"metrics"`
	Policy         Policy         `json:"policy"`
	Timestamp      time.Time      `json:"timestamp"`
}
