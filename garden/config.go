package garden

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the simulation tunables
type Config struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Nodes  int     `yaml:"nodes"` // Locally generated nodes besides self

	FrameInterval time.Duration `yaml:"frame_interval"`
	SweepInterval time.Duration `yaml:"sweep_interval"`

	Step      int `yaml:"step"`
	WrapLimit int `yaml:"wrap_limit"`

	Motion Motion `yaml:"motion"`

	Threshold          float64 `yaml:"threshold"`
	SizeMin            float64 `yaml:"size_min"`
	SizeMax            float64 `yaml:"size_max"`
	SelfSizeMax        float64 `yaml:"self_size_max"`
	GlowSize           float64 `yaml:"glow_size"`
	ConnectednessFloor float64 `yaml:"connectedness_floor"`
	Decay              float64 `yaml:"decay"`

	Seed int64 `yaml:"seed"` // Zero seeds from the clock
}

// Motion tunes the per-tick movement of unsuppressed nodes
type Motion struct {
	RelocateChance float64 `yaml:"relocate_chance"`
	Easing         float64 `yaml:"easing"`
	Epsilon        float64 `yaml:"epsilon"`
}

// DefaultConfig matches a 480x800 portrait screen
func DefaultConfig() Config {
	return Config{
		Width:         480,
		Height:        800,
		Nodes:         10,
		FrameInterval: 10 * time.Millisecond,
		SweepInterval: 100 * time.Millisecond,
		Step:          10,
		WrapLimit:     480,
		Motion: Motion{
			RelocateChance: 1.0 / 500,
			Easing:         0.06,
			Epsilon:        0.5,
		},
		Threshold:          300,
		SizeMin:            20,
		SizeMax:            30,
		SelfSizeMax:        50,
		GlowSize:           50,
		ConnectednessFloor: 0.1,
		Decay:              0.00001,
	}
}

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid garden config")

// Validate rejects values the scheduler or proximity pass cannot run with
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: bounds %vx%v", ErrInvalidConfig, c.Width, c.Height)
	case c.Nodes < 0:
		return fmt.Errorf("%w: negative node count %d", ErrInvalidConfig, c.Nodes)
	case c.FrameInterval <= 0 || c.SweepInterval <= 0:
		return fmt.Errorf("%w: intervals must be positive", ErrInvalidConfig)
	case c.Step <= 0:
		return fmt.Errorf("%w: step %d", ErrInvalidConfig, c.Step)
	case c.WrapLimit < c.Step:
		return fmt.Errorf("%w: wrap limit %d below step %d", ErrInvalidConfig, c.WrapLimit, c.Step)
	case c.Threshold <= 0:
		return fmt.Errorf("%w: threshold %v", ErrInvalidConfig, c.Threshold)
	case c.SizeMin < 0 || c.SizeMax < c.SizeMin || c.SelfSizeMax < c.SizeMin:
		return fmt.Errorf("%w: size bounds", ErrInvalidConfig)
	case c.ConnectednessFloor <= 0:
		return fmt.Errorf("%w: connectedness floor must be positive", ErrInvalidConfig)
	case c.Decay < 0:
		return fmt.Errorf("%w: negative decay", ErrInvalidConfig)
	case c.Motion.RelocateChance < 0 || c.Motion.RelocateChance > 1:
		return fmt.Errorf("%w: relocate chance %v", ErrInvalidConfig, c.Motion.RelocateChance)
	case c.Motion.Easing <= 0 || c.Motion.Easing > 1:
		return fmt.Errorf("%w: easing %v", ErrInvalidConfig, c.Motion.Easing)
	case c.Motion.Epsilon < 0:
		return fmt.Errorf("%w: negative epsilon", ErrInvalidConfig)
	}
	return nil
}
