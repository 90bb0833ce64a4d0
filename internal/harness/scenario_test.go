package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
name: minimal
description: "starts the feed"
setup:
  listings: 1
steps:
  - op: start
assertions:
  - type: items_count
    count: 1
`

func TestParseScenario(t *testing.T) {
	s, err := ParseScenario([]byte(minimal))
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, 1, s.Setup.Listings)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, OpStart, s.Steps[0].Op)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 1, *s.Assertions[0].Count)
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", s.Name)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenarioRejectsUnknownFields(t *testing.T) {
	_, err := ParseScenario([]byte(minimal + "assertion: []\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestParseScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nsteps: [{op: start}]\nassertions: [{type: items}]\n",
			want: "name is required",
		},
		{
			name: "unknown op",
			yaml: "name: n\ndescription: d\nsteps: [{op: jump}]\nassertions: [{type: items}]\n",
			want: `unknown op "jump"`,
		},
		{
			name: "advance without duration",
			yaml: "name: n\ndescription: d\nsteps: [{op: advance}]\nassertions: [{type: items}]\n",
			want: "advance needs a duration",
		},
		{
			name: "sentinel without visible",
			yaml: "name: n\ndescription: d\nsteps: [{op: sentinel}]\nassertions: [{type: items}]\n",
			want: "sentinel needs visible",
		},
		{
			name: "unknown remote",
			yaml: "name: n\ndescription: d\nsteps: [{op: hold, remote: teleport}]\nassertions: [{type: items}]\n",
			want: `unknown remote op "teleport"`,
		},
		{
			name: "unknown injected error",
			yaml: "name: n\ndescription: d\nsteps: [{op: fail_next, remote: create_like, error: gremlins}]\nassertions: [{type: items}]\n",
			want: `unknown error "gremlins"`,
		},
		{
			name: "bad policy",
			yaml: "name: n\ndescription: d\nconfig: {like_policy: hope}\nsteps: [{op: start}]\nassertions: [{type: items}]\n",
			want: "config.like_policy",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nsteps: [{op: start}]\n",
			want: "assertions list is required",
		},
		{
			name: "bad indicator",
			yaml: "name: n\ndescription: d\nsteps: [{op: start}]\nassertions: [{type: indicator, indicator: spinning}]\n",
			want: "indicator must be idle, loading or end",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nsteps: [{op: start}]\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
