package api

import (
	"context"
	"net/http"
	"sort"
)

// LatencyArtifact is api/latency.json: p50/p95 per endpoint over N repeats.
type LatencyArtifact struct {
	Endpoints []EndpointLatency `json:"endpoints"`
}

// EndpointLatency is one endpoint's repeated-sample latency summary.
type EndpointLatency struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	P50Ms  int64  `json:"p50_ms"`
	P95Ms  int64  `json:"p95_ms"`
	Samples int   `json:"samples"`
}

// Latency repeats each endpoint N times and computes p50/p95. Sample
// requests that error are excluded from the percentile, not treated as 0ms.
func Latency(ctx context.Context, client *http.Client, endpoints []Endpoint, repeats int) LatencyArtifact {
	if repeats <= 0 {
		repeats = 5
	}

	var out []EndpointLatency
	for _, ep := range endpoints {
		var samples []int64
		for i := 0; i < repeats; i++ {
			result, _ := probe(ctx, client, ep)
			if result.Status > 0 {
				samples = append(samples, result.LatencyMs)
			}
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

		method := ep.Method
		if method == "" {
			method = http.MethodGet
		}
		out = append(out, EndpointLatency{
			URL: ep.URL, Method: method,
			P50Ms:   percentile(samples, 0.50),
			P95Ms:   percentile(samples, 0.95),
			Samples: len(samples),
		})
	}
	return LatencyArtifact{Endpoints: out}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
