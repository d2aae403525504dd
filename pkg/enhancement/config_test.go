package enhancement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.Equal(t, 256, DefaultConfig().Pad())

	for name, mutate := range map[string]func(*Config){
		"hop_equals_frame": func(cfg *Config) { cfg.HopLength = cfg.FrameLength },
		"hop_above_frame":  func(cfg *Config) { cfg.HopLength = cfg.FrameLength + 1 },
		"zero_hop":         func(cfg *Config) { cfg.HopLength = 0 },
		"zero_scale":       func(cfg *Config) { cfg.OutputScale = 0 },
		"negative_scale":   func(cfg *Config) { cfg.OutputScale = -1 },
		"no_policy":        func(cfg *Config) { cfg.FailurePolicy = UndefinedFailurePolicy },
		"unknown_policy":   func(cfg *Config) { cfg.FailurePolicy = EndOfFailurePolicy },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestParseFailurePolicy(t *testing.T) {
	p, err := ParseFailurePolicy("Silence")
	require.NoError(t, err)
	require.Equal(t, FailurePolicySilence, p)

	require.NoError(t, p.Set("abort"))
	require.Equal(t, FailurePolicyAbort, p)

	p, err = ParseFailurePolicy("conceal")
	require.NoError(t, err)
	require.Equal(t, FailurePolicyConceal, p)

	_, err = ParseFailurePolicy("retry")
	require.Error(t, err)
}
