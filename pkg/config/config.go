// Package config loads the host configuration from ENHANCE_* environment
// variables.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	"github.com/xaionaro-go/speechenhance/pkg/enhancement"
	"github.com/xaionaro-go/speechenhance/pkg/storage"
)

const (
	ModelSpectralGate = "spectralgate"
	ModelRNNoise      = "rnnoise"
	ModelBypass       = "bypass"
)

type S3 struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION"`
	Prefix          string `env:"PREFIX"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

type Config struct {
	SampleRate audio.SampleRate `env:"ENHANCE_SAMPLE_RATE, default=16000" validate:"gt=0"`
	Duration   time.Duration    `env:"ENHANCE_DURATION, default=20s" validate:"gt=0"`

	FrameLength int `env:"ENHANCE_FRAME_LENGTH, default=64000"`
	HopLength   int `env:"ENHANCE_HOP_LENGTH, default=63744"`

	// OutputScale of zero means the nominal scale of the chosen model.
	OutputScale   float64                   `env:"ENHANCE_OUTPUT_SCALE, default=0" validate:"gte=0"`
	FailurePolicy enhancement.FailurePolicy `env:"ENHANCE_FAILURE_POLICY, default=abort"`
	Model         string                    `env:"ENHANCE_MODEL, default=spectralgate" validate:"oneof=spectralgate rnnoise bypass"`

	OutputDir string `env:"ENHANCE_OUTPUT_DIR, default=." validate:"required"`
	S3        S3     `env:", prefix=ENHANCE_S3_"`
}

func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse the environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Enhancement(1).Validate(); err != nil {
		return err
	}
	if c.TargetLength() == 0 {
		return fmt.Errorf("the duration %v is shorter than a sample at %d Hz", c.Duration, c.SampleRate)
	}
	return nil
}

// TargetLength is the amount of samples to capture.
func (c *Config) TargetLength() int {
	return c.SampleRate.SamplesForDuration(c.Duration)
}

// Enhancement returns the engine config; defaultOutputScale is used if
// OutputScale is not set.
func (c *Config) Enhancement(defaultOutputScale float64) enhancement.Config {
	outputScale := c.OutputScale
	if outputScale <= 0 {
		outputScale = defaultOutputScale
	}
	return enhancement.Config{
		FrameLength:   c.FrameLength,
		HopLength:     c.HopLength,
		OutputScale:   outputScale,
		FailurePolicy: c.FailurePolicy,
	}
}

func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}

func (c *Config) S3Config() storage.S3Config {
	return storage.S3Config{
		Bucket:          c.S3.Bucket,
		Region:          c.S3.Region,
		Prefix:          c.S3.Prefix,
		Endpoint:        c.S3.Endpoint,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{SampleRate: %d, Duration: %v, FrameLength: %d, HopLength: %d, OutputScale: %v, FailurePolicy: %s, Model: %s, OutputDir: %s, S3Bucket: %s}",
		c.SampleRate,
		c.Duration,
		c.FrameLength,
		c.HopLength,
		c.OutputScale,
		c.FailurePolicy,
		c.Model,
		c.OutputDir,
		c.S3.Bucket,
	)
}
