package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/formrun/internal/hcl"
	"github.com/vk/formrun/internal/registry"
	"github.com/vk/formrun/internal/testutil"
)

const orderForm = `
form "order" {
  subform "items" {
    occur {
      min = 1
      max = 5
    }
    field "price" { ui = "numeric" }
    field "total" {
      calculate { expr = coalesce(price, 0) * 2 }
    }
  }
  field "grand" {
    calculate { expr = sum("items[*].total") }
  }
  field "name" {
    validate { null_test = "error" }
  }
  event "docClose" { expr = print("bye") }
}
`

const orderData = `
items:
  - price: "10"
  - price: "5"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// SetupAppTest creates a new app instance for system testing. Logs and
// printed output both go to the returned buffer.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"
	testApp := NewApp(logBuffer, cfg, hcl.NewLoader(), modules...)

	t.Cleanup(func() {
		if os.Getenv("FORMRUN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return testApp, logBuffer
}
