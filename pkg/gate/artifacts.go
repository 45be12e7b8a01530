package gate

// These mirror the exact JSON artifact shapes adapters emit (§4.4-§4.7).
// The Gate reads them directly off disk; it never invokes an adapter.

// DiffArtifact is diff.json.
type DiffArtifact struct {
	FilesModified      []string `json:"files_modified"`
	FilesCreated       []string `json:"files_created"`
	FilesDeleted       []string `json:"files_deleted"`
	FunctionsModified  []string `json:"functions_modified"`
	EndpointsModified  []string `json:"endpoints_modified"`
	TotalChanges       int      `json:"total_changes"`
}

// LintArtifact is lint.json.
type LintArtifact struct {
	ExitCode     int   `json:"exitCode"`
	Errors       int   `json:"errors"`
	Warnings     int   `json:"warnings"`
	FilesChecked int   `json:"files_checked"`
	Issues       []any `json:"issues"`
}

// TestsArtifact is tests.json.
type TestsArtifact struct {
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Total      int    `json:"total"`
	DurationMs int64  `json:"duration_ms"`
	Summary    string `json:"summary,omitempty"`
	Details    []any  `json:"details"`
}

// CoverageArtifact is coverage.json. Pct is normalized to [0, 100].
type CoverageArtifact struct {
	Pct        float64 `json:"pct"`
	Lines      int     `json:"lines"`
	Branches   int     `json:"branches"`
	Functions  int     `json:"functions"`
	Statements int     `json:"statements"`
	ReportPath string  `json:"report_path,omitempty"`
}

// BuildArtifact is build.json, emitted by the code:build capability.
type BuildArtifact struct {
	ExitCode int    `json:"exitCode"`
	Succeeded bool  `json:"succeeded"`
	Log      string `json:"log,omitempty"`
}

// FunctionMatch is one entry in function_map.json's matches array.
type FunctionMatch struct {
	ClaimUnit    string `json:"claim_unit"`
	DiffFunction string `json:"diff_function"`
	Certainty    string `json:"certainty"` // "certain" | "fuzzy"
}

// FunctionMapArtifact is function_map.json.
type FunctionMapArtifact struct {
	Matches         []FunctionMatch `json:"matches"`
	UnmatchedClaims []string        `json:"unmatched_claims"`
	UnmatchedDiffs  []string        `json:"unmatched_diffs"`
}

// LinksURLSet is links/urlset.json.
type LinksURLSet struct {
	URLs []string `json:"urls"`
}

// LinksCheckArtifact is links/check.json.
type LinksCheckArtifact struct {
	TotalChecked int            `json:"total_checked"`
	Passed       int            `json:"passed"`
	Failed       int            `json:"failed"`
	Summary      map[string]int `json:"summary"`
}

// LinksResampleArtifact is links/resample.json.
type LinksResampleArtifact struct {
	TotalResampled int   `json:"total_resampled"`
	Recovered      int   `json:"recovered"`
	StillFailed    int   `json:"still_failed"`
	ResampleAttempts []any `json:"resample_attempts"`
}

// APIEndpointResult is one entry in api/check.json's endpoints array.
type APIEndpointResult struct {
	URL          string   `json:"url"`
	Method       string   `json:"method"`
	Status       int      `json:"status"`
	LatencyMs    int64    `json:"latency_ms"`
	SchemaOK     bool     `json:"schema_ok"`
	SchemaErrors []string `json:"schema_errors,omitempty"`
}

// APICheckArtifact is api/check.json.
type APICheckArtifact struct {
	TotalChecked int                 `json:"total_checked"`
	Passed       int                 `json:"passed"`
	Failed       int                 `json:"failed"`
	Endpoints    []APIEndpointResult `json:"endpoints"`
}

// ContentFileResult is one entry in content/scan.json's files array.
type ContentFileResult struct {
	Path          string         `json:"path"`
	WordCount     int            `json:"word_count"`
	HeadingCounts map[string]int `json:"heading_counts,omitempty"`
	ImageCount    int            `json:"image_count"`
}

// ContentScanArtifact is content/scan.json.
type ContentScanArtifact struct {
	Files []ContentFileResult `json:"files"`
}
