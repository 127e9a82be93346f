package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireLogged checks that the captured log output contains want. It keeps
// tests independent of the exact record layout of the handler.
func RequireLogged(t *testing.T, logs *SafeBuffer, want string) {
	t.Helper()

	require.True(t,
		strings.Contains(logs.String(), want),
		"expected log output to contain %q, got:\n%s", want, logs.String(),
	)
}
