package shifter

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/calvinmclean/gearshift/gear"
)

const (
	DefaultPositionThreshold = 8
	DefaultAlignThreshold    = 6
	DefaultStepDelay         = 50 * time.Millisecond
	DefaultSettleTime        = 500 * time.Millisecond
)

// Config has the values that depend on the mechanism: where each gear sits and how fast the servo may move.
// It is fixed once the Controller is created
type Config struct {
	// Gears are the expected feedback angles, one per gear, lowest gear first
	Gears []int `yaml:"gears"`

	// PositionThreshold is the +/- tolerance in degrees used when reading the gear while idle
	PositionThreshold int `yaml:"position_threshold"`
	// MoveThreshold is the +/- tolerance used to validate a move
	MoveThreshold int `yaml:"move_threshold"`
	// AlignThreshold is the largest allowed difference between two feedback channels. Negative disables the check
	AlignThreshold int `yaml:"align_threshold"`

	// StepSize is the number of degrees commanded at a time while moving
	StepSize int `yaml:"step_size"`
	// StepDelay is the delay for each degree moved
	StepDelay time.Duration `yaml:"step_delay"`
	// SettleTime is the wait after the last step before feedback is trusted
	SettleTime time.Duration `yaml:"settle_time"`
}

// DefaultConfig is the five-speed setup the shifter was built with
func DefaultConfig() Config {
	return Config{
		Gears:             []int{166, 132, 98, 64, 41},
		PositionThreshold: DefaultPositionThreshold,
		MoveThreshold:     DefaultPositionThreshold,
		AlignThreshold:    DefaultAlignThreshold,
		StepSize:          1,
		StepDelay:         DefaultStepDelay,
		SettleTime:        DefaultSettleTime,
	}
}

// LoadConfig reads a YAML config. Fields that are left out keep their DefaultConfig values,
// except move_threshold which follows position_threshold
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error reading config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig is LoadConfig for YAML that is already in memory
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	cfg.MoveThreshold = -1

	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.MoveThreshold < 0 {
		cfg.MoveThreshold = cfg.PositionThreshold
	}

	_, err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the config and builds the gear table from it
func (c Config) Validate() (gear.Table, error) {
	table, err := gear.NewTable(c.Gears...)
	if err != nil {
		return gear.Table{}, fmt.Errorf("invalid gears: %w", err)
	}

	var errs []error
	if c.PositionThreshold < 0 {
		errs = append(errs, errors.New("position_threshold must not be negative"))
	}
	if c.MoveThreshold < 0 {
		errs = append(errs, errors.New("move_threshold must not be negative"))
	}
	if c.StepSize < 1 {
		errs = append(errs, errors.New("step_size must be at least 1"))
	}
	if c.StepDelay < 0 || c.SettleTime < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return gear.Table{}, fmt.Errorf("invalid config: %w", err)
	}

	return table, nil
}
