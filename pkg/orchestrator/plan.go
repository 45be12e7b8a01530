package orchestrator

import "github.com/Mindburn-Labs/verigate/pkg/task"

// step is one adapter invocation in a type's plan: a capability plus
// whether its absence from the Adapter Runtime index is fatal.
type step struct {
	Capability string
	Required   bool
}

// plans maps a task Type to the ordered list of capabilities the
// Orchestrator runs against it. Order matters: adapters run serially in
// plan order (§4.3), and later steps may read artifacts earlier steps
// wrote (e.g. code:map-functions reads diff.json).
var plans = map[task.Type][]step{
	task.TypeContent: {
		{Capability: "content:scan", Required: true},
	},
	task.TypeCode: {
		{Capability: "code:diff", Required: true},
		{Capability: "code:map-functions", Required: true},
		{Capability: "code:lint", Required: false},
		{Capability: "code:tests", Required: false},
		{Capability: "code:coverage", Required: false},
		{Capability: "code:build", Required: false},
	},
	task.TypeLinkCheck: {
		{Capability: "link:discover", Required: true},
		{Capability: "link:check", Required: true},
		{Capability: "link:resample", Required: false},
	},
	task.TypeAPICheck: {
		{Capability: "api:check", Required: true},
		{Capability: "api:latency", Required: false},
	},
}

// planFor returns the adapter plan for a task type, and false if the type
// has none (db_update, or any future type that ships no adapter yet).
func planFor(t task.Type) ([]step, bool) {
	p, ok := plans[t]
	return p, ok
}
