package enhancement

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultFrameLength = 64000
	DefaultHopLength   = 63744
	DefaultOutputScale = 10
)

type FailurePolicy int

const (
	UndefinedFailurePolicy = FailurePolicy(iota)

	// FailurePolicyAbort stops processing at the first failed chunk.
	FailurePolicyAbort

	// FailurePolicySilence leaves the hop range of a failed chunk silent
	// and continues with the next chunk.
	FailurePolicySilence

	// FailurePolicyConceal fills the hop range of a failed chunk with a
	// signal interpolated from the enhanced output around it.
	FailurePolicyConceal

	EndOfFailurePolicy
)

func (p FailurePolicy) String() string {
	switch p {
	case UndefinedFailurePolicy:
		return "<undefined>"
	case FailurePolicyAbort:
		return "abort"
	case FailurePolicySilence:
		return "silence"
	case FailurePolicyConceal:
		return "conceal"
	default:
		return fmt.Sprintf("<unknown_%d>", int(p))
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	for p := UndefinedFailurePolicy + 1; p < EndOfFailurePolicy; p++ {
		if strings.EqualFold(p.String(), s) {
			return p, nil
		}
	}
	return UndefinedFailurePolicy, fmt.Errorf("unknown failure policy '%s'", s)
}

func (p FailurePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *FailurePolicy) UnmarshalText(b []byte) error {
	v, err := ParseFailurePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Set and Type make FailurePolicy usable as a pflag.Value.
func (p *FailurePolicy) Set(s string) error {
	return p.UnmarshalText([]byte(s))
}

func (*FailurePolicy) Type() string {
	return "failure-policy"
}

type Config struct {
	// FrameLength is the amount of samples passed to the enhancer per call.
	FrameLength int `validate:"gt=1"`

	// HopLength is the amount of new samples each chunk contributes to the
	// output; FrameLength-HopLength samples of left context are prepended.
	HopLength int `validate:"gt=0,ltfield=FrameLength"`

	// OutputScale divides the enhancer output before quantization.
	OutputScale float64 `validate:"gt=0"`

	FailurePolicy FailurePolicy `validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		FrameLength:   DefaultFrameLength,
		HopLength:     DefaultHopLength,
		OutputScale:   DefaultOutputScale,
		FailurePolicy: FailurePolicyAbort,
	}
}

func (cfg Config) Pad() int {
	return cfg.FrameLength - cfg.HopLength
}

func (cfg Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid enhancement config: %w", err)
	}
	if cfg.FailurePolicy >= EndOfFailurePolicy {
		return fmt.Errorf("unknown failure policy: %d", int(cfg.FailurePolicy))
	}
	return nil
}
