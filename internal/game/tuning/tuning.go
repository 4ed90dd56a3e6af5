package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds gameplay and transport constants. Values are loaded
// from tuning.yaml; zero fields fall back to Defaults at load time.
type Tuning struct {
	InitialResources      int `yaml:"initial_resources"`
	ClaimCost             int `yaml:"claim_cost"`
	AttackBaseCost        int `yaml:"attack_base_cost"`
	ResourceTickMs        int `yaml:"resource_tick_ms"`
	ResourceGainPerRegion int `yaml:"resource_gain_per_region"`
	// One extra strength point per this many extra resources spent.
	StrengthPerExtra int `yaml:"strength_per_extra"`

	// When set, claims by a player who already owns territory and all
	// attacks require an owned region adjacent to the target.
	EnforceAdjacency bool `yaml:"enforce_adjacency"`

	Reconnect  Reconnect  `yaml:"reconnect"`
	RateLimits RateLimits `yaml:"rate_limits"`
}

type Reconnect struct {
	BaseDelayMs      int `yaml:"base_delay_ms"`
	MaxDelayMs       int `yaml:"max_delay_ms"`
	MaxAttempts      int `yaml:"max_attempts"`
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
}

type RateLimits struct {
	// Inbound messages per second per connection, token-bucket.
	MsgsPerSec float64 `yaml:"msgs_per_sec"`
	Burst      int     `yaml:"burst"`
}

func Defaults() Tuning {
	return Tuning{
		InitialResources:      10,
		ClaimCost:             5,
		AttackBaseCost:        10,
		ResourceTickMs:        5000,
		ResourceGainPerRegion: 1,
		StrengthPerExtra:      5,
		EnforceAdjacency:      false,
		Reconnect: Reconnect{
			BaseDelayMs:      1000,
			MaxDelayMs:       30000,
			MaxAttempts:      10,
			ConnectTimeoutMs: 5000,
		},
		RateLimits: RateLimits{
			MsgsPerSec: 10,
			Burst:      20,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.normalized(), nil
}

func (t Tuning) normalized() Tuning {
	d := Defaults()
	if t.InitialResources <= 0 {
		t.InitialResources = d.InitialResources
	}
	if t.ClaimCost <= 0 {
		t.ClaimCost = d.ClaimCost
	}
	if t.AttackBaseCost <= 0 {
		t.AttackBaseCost = d.AttackBaseCost
	}
	if t.ResourceTickMs <= 0 {
		t.ResourceTickMs = d.ResourceTickMs
	}
	if t.ResourceGainPerRegion <= 0 {
		t.ResourceGainPerRegion = d.ResourceGainPerRegion
	}
	if t.StrengthPerExtra <= 0 {
		t.StrengthPerExtra = d.StrengthPerExtra
	}
	if t.Reconnect.BaseDelayMs <= 0 {
		t.Reconnect.BaseDelayMs = d.Reconnect.BaseDelayMs
	}
	if t.Reconnect.MaxDelayMs <= 0 {
		t.Reconnect.MaxDelayMs = d.Reconnect.MaxDelayMs
	}
	if t.Reconnect.MaxAttempts <= 0 {
		t.Reconnect.MaxAttempts = d.Reconnect.MaxAttempts
	}
	if t.Reconnect.ConnectTimeoutMs <= 0 {
		t.Reconnect.ConnectTimeoutMs = d.Reconnect.ConnectTimeoutMs
	}
	if t.RateLimits.MsgsPerSec <= 0 {
		t.RateLimits.MsgsPerSec = d.RateLimits.MsgsPerSec
	}
	if t.RateLimits.Burst <= 0 {
		t.RateLimits.Burst = d.RateLimits.Burst
	}
	return t
}
