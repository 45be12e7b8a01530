package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCategoryOf(t *testing.T) {
	require.Equal(t, "2xx", categoryOf("200"))
	require.Equal(t, "4xx", categoryOf("404"))
	require.Equal(t, "5xx", categoryOf("503"))
	require.Equal(t, "timeout", categoryOf("timeout"))
	require.Equal(t, "error", categoryOf("error"))
}

func TestIsFailureClass(t *testing.T) {
	require.False(t, isFailureClass("200"))
	require.False(t, isFailureClass("301"))
	require.True(t, isFailureClass("404"))
	require.True(t, isFailureClass("500"))
	require.True(t, isFailureClass("timeout"))
}
