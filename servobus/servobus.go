// Package servobus drives the shifter with Feetech STS serial bus servos. Bus servos report their own
// position, so each servo is also a feedback channel
package servobus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

const (
	DefaultBaudRate = 1_000_000
	DefaultCenter   = 2048
	DefaultTimeout  = 100 * time.Millisecond

	// STS servos have 4096 counts per revolution
	countsPerRev = 4096
)

// ServoConfig describes one bus servo. Center is the raw position at 90 degrees. Reversed is set for a
// servo mounted as a mirror of the first, so both move the cable the same way
type ServoConfig struct {
	ID       int  `yaml:"id"`
	Center   int  `yaml:"center"`
	Reversed bool `yaml:"reversed"`
}

type Config struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	Timeout  time.Duration `yaml:"timeout"`
	Servos   []ServoConfig `yaml:"servos"`
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("missing port")
	}
	if len(c.Servos) == 0 || len(c.Servos) > 2 {
		return fmt.Errorf("expected one or two servos, got %d", len(c.Servos))
	}
	if len(c.Servos) == 2 && c.Servos[0].ID == c.Servos[1].ID {
		return fmt.Errorf("duplicate servo ID %d", c.Servos[0].ID)
	}
	return nil
}

// Bus implements shifter.Actuator, shifter.Stopper and shifter.Feedback
type Bus struct {
	bus    *feetech.Bus
	group  *feetech.ServoGroup
	servos []ServoConfig
}

// Open connects to the bus and enables torque on the servos
func Open(ctx context.Context, cfg Config) (*Bus, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: cfg.BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := make([]int, len(cfg.Servos))
	for i, s := range cfg.Servos {
		ids[i] = s.ID
	}
	group := feetech.NewServoGroupByIDs(bus, ids...)

	err = group.EnableAll(ctx)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}

	return &Bus{
		bus:    bus,
		group:  group,
		servos: cfg.Servos,
	}, nil
}

func (b *Bus) Close() error {
	return b.bus.Close()
}

// SetAngle writes the same angle to every servo in one sync write
func (b *Bus) SetAngle(ctx context.Context, angle int) error {
	positions := make(feetech.PositionMap, len(b.servos))
	for _, s := range b.servos {
		positions[s.ID] = ToRaw(s, angle)
	}

	err := b.group.SetPositions(ctx, positions)
	if err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// Sample reads the position of each servo, in the configured order
func (b *Bus) Sample(ctx context.Context) ([]int, error) {
	raw, err := b.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make([]int, len(b.servos))
	for i, s := range b.servos {
		pos, ok := raw[s.ID]
		if !ok {
			return nil, fmt.Errorf("no position from servo %d", s.ID)
		}
		angles[i] = ToDegrees(s, pos)
	}
	return angles, nil
}

// Stop disables torque so the servos can be moved by hand
func (b *Bus) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return b.group.DisableAll(ctx)
}

// ToRaw converts an angle in degrees to the servo's raw position
func ToRaw(s ServoConfig, angle int) int {
	delta := angle - 90
	if s.Reversed {
		delta = -delta
	}
	raw := center(s) + int(math.Round(float64(delta)*countsPerRev/360))
	return min(max(raw, 0), countsPerRev-1)
}

// ToDegrees converts a raw position to degrees, rounded to the nearest degree
func ToDegrees(s ServoConfig, raw int) int {
	delta := float64(raw-center(s)) * 360 / countsPerRev
	if s.Reversed {
		delta = -delta
	}
	return 90 + int(math.Round(delta))
}

func center(s ServoConfig) int {
	if s.Center == 0 {
		return DefaultCenter
	}
	return s.Center
}
