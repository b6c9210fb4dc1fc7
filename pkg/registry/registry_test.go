package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "version": "1.0.0",
  "activities": [
    {
      "id": "check-loan-eligibility",
      "taskType": "check-loan-eligibility",
      "timeout": "15s",
      "maxJobsActive": 8,
      "inputSchema": {
        "type": "object",
        "required": ["applicationId", "loanAmount"],
        "properties": {
          "applicationId": {"type": "string"},
          "loanAmount": {"type": "number"}
        }
      }
    },
    {"id": "noop", "taskType": "noop", "timeout": "soon"}
  ]
}`

func writeRegistry(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t))
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", reg.Version)
	assert.Len(t, reg.Activities, 2)

	act, ok := reg.Find("check-loan-eligibility")
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, act.TimeoutDuration())
	assert.Equal(t, 8, act.MaxJobsActive)

	_, ok = reg.Find("missing")
	assert.False(t, ok)
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadRegistry(path)
	assert.Error(t, err)
}

func TestActivity_TimeoutFallback(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t))
	require.NoError(t, err)

	act, _ := reg.Find("noop")
	assert.Equal(t, 30*time.Second, act.TimeoutDuration())
}

func TestActivity_ValidateInput(t *testing.T) {
	reg, err := LoadRegistry(writeRegistry(t))
	require.NoError(t, err)
	act, _ := reg.Find("check-loan-eligibility")

	assert.NoError(t, act.ValidateInput(map[string]interface{}{
		"applicationId": "app-1",
		"loanAmount":    12000.0,
	}))

	err = act.ValidateInput(map[string]interface{}{"loanAmount": "lots"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applicationId")

	noop, _ := reg.Find("noop")
	assert.NoError(t, noop.ValidateInput(nil))
}
