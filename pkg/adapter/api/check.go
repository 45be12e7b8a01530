// Package api implements the api:check and api:latency capabilities.
package api

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// Endpoint is one probe target drawn from the Commitment scope or Claim.
type Endpoint struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
	Schema  []byte // raw JSON Schema, or nil if unvalidated
}

// CheckResult bundles the api/check.json artifact and the schema hash
// recorded alongside it when any endpoint carried a schema.
type CheckResult struct {
	Artifact   gate.APICheckArtifact
	SchemaHash string
}

// Check probes every endpoint sequentially (adapters do not reorder within
// a plan) and validates each response against its schema, if any, using
// Draft 2020 with format assertions.
func Check(ctx context.Context, client *http.Client, endpoints []Endpoint, timeoutMs int) (CheckResult, error) {
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}
	reqTimeout := time.Duration(timeoutMs) * time.Millisecond

	var results []gate.APIEndpointResult
	var schemaHash string

	for _, ep := range endpoints {
		reqCtx, cancel := context.WithTimeout(ctx, reqTimeout)
		result, hash := probe(reqCtx, client, ep)
		cancel()
		if hash != "" {
			schemaHash = hash
		}
		results = append(results, result)
	}

	passed, failed := 0, 0
	for _, r := range results {
		if r.Status < 400 && r.SchemaOK {
			passed++
		} else {
			failed++
		}
	}

	return CheckResult{
		Artifact: gate.APICheckArtifact{
			TotalChecked: len(results),
			Passed:       passed,
			Failed:       failed,
			Endpoints:    results,
		},
		SchemaHash: schemaHash,
	}, nil
}

func probe(ctx context.Context, client *http.Client, ep Endpoint) (gate.APIEndpointResult, string) {
	method := ep.Method
	if method == "" {
		method = http.MethodGet
	}

	start := time.Now()
	var bodyReader io.Reader
	if len(ep.Body) > 0 {
		bodyReader = bytes.NewReader(ep.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, ep.URL, bodyReader)
	if err != nil {
		return gate.APIEndpointResult{URL: ep.URL, Method: method, Status: 0}, ""
	}
	for k, v := range ep.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return gate.APIEndpointResult{URL: ep.URL, Method: method, Status: 0, LatencyMs: latency, SchemaOK: false}, ""
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	result := gate.APIEndpointResult{
		URL: ep.URL, Method: method, Status: resp.StatusCode, LatencyMs: latency, SchemaOK: true,
	}

	var schemaHash string
	if len(ep.Schema) > 0 {
		sum := sha256.Sum256(ep.Schema)
		schemaHash = hex.EncodeToString(sum[:])
		ok, errs := validateSchema(ep.Schema, body)
		result.SchemaOK = ok
		result.SchemaErrors = errs
	}

	return result, schemaHash
}

func validateSchema(schemaBytes, body []byte) (bool, []string) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaBytes)); err != nil {
		return false, []string{err.Error()}
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return false, []string{err.Error()}
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return false, []string{"response body is not valid JSON: " + err.Error()}
	}

	if err := schema.Validate(doc); err != nil {
		return false, []string{err.Error()}
	}
	return true, nil
}
