package code

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractFunctions_MultipleForms(t *testing.T) {
	patch := `+func authenticate(u string) bool {
+export function validateToken(t string) {
+const refreshToken = (t) => {
+def rotateKey(k):
`
	names := extractFunctions(patch)
	require.Equal(t, []string{"authenticate", "refreshToken", "rotateKey", "validateToken"}, names)
}

func TestExtractFunctions_IgnoresRemovedLines(t *testing.T) {
	patch := "-func deprecated() {\n+++ b/main.go\n"
	require.Empty(t, extractFunctions(patch))
}

func TestExtractEndpoints_DeduplicatesAndSorts(t *testing.T) {
	patch := `+app.post("/login", handler)
+app.get("/users", handler)
+app.post("/login", handler)
`
	eps := extractEndpoints(patch)
	require.Equal(t, []string{"GET /users", "POST /login"}, eps)
}
