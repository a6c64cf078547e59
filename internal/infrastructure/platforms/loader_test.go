package platforms

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup-agent/internal/domain/entity"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "platforms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	specs, err := Load("")
	require.NoError(t, err)
	require.NotEmpty(t, specs)

	names := make(map[string]entity.PlatformSpec)
	for _, s := range specs {
		names[s.Name] = s
	}
	assert.Contains(t, names, "vercel")
	assert.True(t, names["sentry"].CaptchaLikely)
	assert.NotNil(t, names["railway"].GoalDirected)
}

func TestLoad_ParsesDeterministicSpec(t *testing.T) {
	path := writeCatalog(t, `
platforms:
  - name: example
    signup_url: https://example.com/signup
    captcha_likely: true
    deterministic:
      steps:
        - action: fill
          selector: "input[name='email']"
          value: "{{email}}"
        - action: submit
          selector: "button[type='submit']"
`)

	specs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)

	spec := specs[0]
	assert.Equal(t, "example", spec.Name)
	assert.True(t, spec.CaptchaLikely)
	require.NotNil(t, spec.Deterministic)
	require.Len(t, spec.Deterministic.Steps, 2)
	assert.Equal(t, entity.StepFill, spec.Deterministic.Steps[0].Action)
	assert.Equal(t, "{{email}}", spec.Deterministic.Steps[0].Value)
}

func TestLoad_ParsesGoalDirectedSpec(t *testing.T) {
	path := writeCatalog(t, `
platforms:
  - name: example
    signup_url: https://example.com/signup
    goal_directed:
      goal: Sign up with email.
      success_indicator: check your inbox
`)

	specs, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, specs[0].GoalDirected)
	assert.Equal(t, "check your inbox", specs[0].GoalDirected.SuccessIndicator)
}

func TestLoad_RejectsMissingStrategy(t *testing.T) {
	path := writeCatalog(t, `
platforms:
  - name: example
    signup_url: https://example.com/signup
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no signup strategy")
}

func TestLoad_RejectsConflictingStrategies(t *testing.T) {
	path := writeCatalog(t, `
platforms:
  - name: example
    signup_url: https://example.com/signup
    deterministic:
      steps:
        - action: fill
          selector: "#email"
          value: "{{email}}"
    goal_directed:
      goal: Sign up.
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both strategies")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
}

func TestDefaults_AllValid(t *testing.T) {
	for _, spec := range Defaults() {
		assert.NoError(t, validate(spec), "default spec %s must validate", spec.Name)
	}
}
