package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mindburn-Labs/verigate/pkg/adapter/api"
	"github.com/stretchr/testify/require"
)

func TestCheck_SchemaValidationPassesAndFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good":
			w.Write([]byte(`{"id": 1, "name": "ok"}`))
		case "/bad":
			w.Write([]byte(`{"id": "not-a-number"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	schema := []byte(`{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"required": ["id", "name"],
		"properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
	}`)

	endpoints := []api.Endpoint{
		{URL: srv.URL + "/good", Method: "GET", Schema: schema},
		{URL: srv.URL + "/bad", Method: "GET", Schema: schema},
		{URL: srv.URL + "/missing", Method: "GET"},
	}

	result, err := api.Check(context.Background(), srv.Client(), endpoints, 5000)
	require.NoError(t, err)
	require.Equal(t, 3, result.Artifact.TotalChecked)
	require.NotEmpty(t, result.SchemaHash)

	byURL := map[string]bool{}
	for _, ep := range result.Artifact.Endpoints {
		byURL[ep.URL] = ep.SchemaOK
	}
	require.True(t, byURL[srv.URL+"/good"])
	require.False(t, byURL[srv.URL+"/bad"])
}

func TestCheck_MissingEndpointRecordsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result, err := api.Check(context.Background(), srv.Client(), []api.Endpoint{{URL: srv.URL + "/x"}}, 0)
	require.NoError(t, err)
	require.Equal(t, 1, result.Artifact.Failed)
	require.Equal(t, 404, result.Artifact.Endpoints[0].Status)
}
