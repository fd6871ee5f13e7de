package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/gearshift/sim"
)

func newSimCommand() *cobra.Command {
	var (
		configPath string
		startAngle int
		offset     int
		noise      int
		fast       bool
		showUI     bool
	)

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Run the shifter against a simulated servo",
		Long: "Run the shifter against a simulated servo pair. Commands are read from stdin like the firmware's serial " +
			"port. Use --offset larger than the alignment threshold to see misalignment errors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadShifterConfig(configPath)
			if err != nil {
				return err
			}
			if fast {
				cfg.StepDelay = time.Millisecond
				cfg.SettleTime = 0
			}

			opts := []sim.Option{sim.Dual(offset)}
			if noise > 0 {
				opts = append(opts, sim.Noise(noise, uint64(time.Now().UnixNano())))
			}
			servo := sim.New(startAngle, opts...)

			return runLocal(cmd.Context(), cfg, servo, servo, showUI)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML shifter config (default: GEARSHIFT_CONFIG or built-in gears)")
	cmd.Flags().IntVar(&startAngle, "start", 90, "initial servo angle")
	cmd.Flags().IntVar(&offset, "offset", 0, "angle difference between the two simulated feedback channels")
	cmd.Flags().IntVar(&noise, "noise", 0, "random feedback noise in degrees")
	cmd.Flags().BoolVar(&fast, "fast", false, "skip step and settle delays")
	cmd.Flags().BoolVar(&showUI, "ui", false, "show the desktop dashboard")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		if !cmd.Flags().Changed("config") {
			configPath = envGearConfig(newLogger())
		}
	}

	return cmd
}
