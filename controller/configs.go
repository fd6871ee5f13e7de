package controller

import (
	"fmt"
	"strconv"

	"github.com/caarlos0/env/v11"
)

// SerialPortNone is used to run without a shifter attached
const SerialPortNone = "None"

// Config has the host-side settings. All values can be set from the environment
type Config struct {
	SerialPort  string `env:"GEARSHIFT_SERIAL_PORT"`
	BaudRate    string `env:"GEARSHIFT_BAUD_RATE" envDefault:"115200"`
	RideLogAddr string `env:"GEARSHIFT_RIDELOG_ADDR"`
	// GearConfig is the path of a YAML shifter config, used when running the simulator
	GearConfig string `env:"GEARSHIFT_CONFIG"`
}

// ConfigFromEnv reads the Config from environment variables
func ConfigFromEnv() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}

	_, err = cfg.baudRate()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return cfg, nil
}

func (c Config) baudRate() (int, error) {
	rate, err := strconv.Atoi(c.BaudRate)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("invalid baud rate: %q", c.BaudRate)
	}
	return rate, nil
}
