package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/conductor-ai/conductor/pkg/config"
	"github.com/conductor-ai/conductor/pkg/models"
)

func boolPtr(b bool) *bool { return &b }

func TestRegistryInitialState(t *testing.T) {
	reg := NewServerRegistry(map[string]config.MCPServerConfig{
		"beta":  {BaseURL: "http://beta"},
		"alpha": {BaseURL: "http://alpha"},
	})

	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())
	// Servers start healthy but never checked, so first discovery probes them.
	assert.True(t, reg.IsHealthy("alpha"))
	assert.True(t, reg.LastChecked("alpha").IsZero())
	_, known := reg.Capabilities("alpha")
	assert.False(t, known)
}

func TestRegistryEnabledHealthy(t *testing.T) {
	reg := NewServerRegistry(map[string]config.MCPServerConfig{
		"up":       {BaseURL: "http://up"},
		"down":     {BaseURL: "http://down"},
		"disabled": {BaseURL: "http://disabled", Enabled: boolPtr(false)},
	})
	reg.MarkUnhealthy("down", time.Now())

	assert.Equal(t, []string{"up"}, reg.EnabledHealthy())
}

func TestRegistryHealthTransitions(t *testing.T) {
	reg := NewServerRegistry(map[string]config.MCPServerConfig{
		"s": {BaseURL: "http://s"},
	})

	when := time.Now()
	reg.MarkUnhealthy("s", when)
	assert.False(t, reg.IsHealthy("s"))
	assert.Equal(t, when, reg.LastChecked("s"))

	later := when.Add(time.Minute)
	reg.MarkHealthy("s", later)
	assert.True(t, reg.IsHealthy("s"))
	assert.Equal(t, later, reg.LastChecked("s"))

	// Unknown servers never report healthy.
	assert.False(t, reg.IsHealthy("ghost"))
}

func TestRegistryCapabilities(t *testing.T) {
	reg := NewServerRegistry(map[string]config.MCPServerConfig{
		"s": {BaseURL: "http://s"},
	})

	caps := &models.ServerCapabilities{
		ProtocolVersion:   "2024-11-05",
		SupportedFeatures: []string{"tools"},
	}
	reg.SetCapabilities("s", caps)

	got, known := reg.Capabilities("s")
	assert.True(t, known)
	assert.Equal(t, caps, got)

	health := reg.Health()
	assert.Len(t, health, 1)
	assert.True(t, health["s"].Healthy)
	assert.Equal(t, caps, health["s"].Capabilities)
}
