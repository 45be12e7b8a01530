package gate

import (
	"encoding/json"
	"fmt"
	"os"
)

// Profile is a named threshold set controlling Gate behavior (§4.8/§6).
// Zero values are meaningful defaults (e.g. an absent lint_required means
// lint is not required), so fields are plain Go types, not pointers.
type Profile struct {
	Name                      string  `json:"-"`
	LintRequired              bool    `json:"lint_required,omitempty"`
	TestsRequired             bool    `json:"tests_required,omitempty"`
	CoverageMin               float64 `json:"coverage_min,omitempty"`
	FunctionCertaintyRequired string  `json:"function_certainty_required,omitempty"` // "certain" | "fuzzy"
	BuildRequired             bool    `json:"build_required,omitempty"`
	WordMin                   int     `json:"word_min,omitempty"`
	WordTolerance             int     `json:"word_tolerance,omitempty"`
	ResampleFailures          int     `json:"resample_failures,omitempty"`
	TimeoutMs                 int     `json:"timeout_ms,omitempty"`
	Treat3xxAsPass            bool    `json:"treat_3xx_as_pass,omitempty"`
	ConcurrentChecks          int     `json:"concurrent_checks,omitempty"`
	RateLimitMs               int     `json:"rate_limit_ms,omitempty"`
	RequireFullCoverage       bool    `json:"require_full_coverage,omitempty"`
	ValidateSchema            bool    `json:"validate_schema,omitempty"`
	MaxResponseTimeMs         int     `json:"max_response_time_ms,omitempty"`
	RequireAllEndpoints       bool    `json:"require_all_endpoints,omitempty"`
}

// builtinProfiles are shipped so a fresh install works before an operator
// supplies profiles.json; LoadRegistry overlays file-provided profiles on
// top of these rather than replacing them wholesale.
func builtinProfiles() map[string]*Profile {
	return map[string]*Profile{
		"code_update": {
			Name:                      "code_update",
			LintRequired:              true,
			TestsRequired:             true,
			CoverageMin:               70,
			FunctionCertaintyRequired: "fuzzy",
			BuildRequired:             true,
		},
		"content_default": {
			Name:          "content_default",
			WordMin:       300,
			WordTolerance: 0,
		},
		"link_check": {
			Name:                "link_check",
			Treat3xxAsPass:      true,
			ConcurrentChecks:    5,
			RateLimitMs:         100,
			ResampleFailures:    3,
			RequireFullCoverage: false,
		},
		"api_basic": {
			Name:              "api_basic",
			ValidateSchema:    true,
			MaxResponseTimeMs: 2000,
			TimeoutMs:         10000,
		},
	}
}

// Registry resolves a profile by name.
type Registry struct {
	profiles map[string]*Profile
}

// LoadRegistry reads profiles.json at path (a JSON object keyed by profile
// name) and overlays it on the built-in defaults. A missing file is not an
// error — the registry falls back to builtins only.
func LoadRegistry(path string) (*Registry, error) {
	reg := &Registry{profiles: builtinProfiles()}
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("gate: read profiles.json: %w", err)
	}

	var overlay map[string]*Profile
	if err := json.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("gate: parse profiles.json: %w", err)
	}
	for name, p := range overlay {
		p.Name = name
		reg.profiles[name] = p
	}
	return reg, nil
}

// Get returns the named profile, or an empty all-defaults Profile if unknown
// — an unrecognized profile name degrades the Gate's strictness rather than
// crashing it. Orchestrator.Run passes Commitment.Profile to Get without
// checking it against the registry first.
func (r *Registry) Get(name string) *Profile {
	if p, ok := r.profiles[name]; ok {
		return p
	}
	return &Profile{Name: name}
}
