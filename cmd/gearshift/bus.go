package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/gearshift/servobus"
)

func newBusCommand() *cobra.Command {
	var (
		configPath string
		busCfg     servobus.Config
		ids        []int
		center     int
		reversed   bool
		showUI     bool
	)

	cmd := &cobra.Command{
		Use:   "bus",
		Short: "Drive the shifter with Feetech bus servos",
		Long: "Drive the shifter with one or two Feetech STS bus servos on a serial adapter. " +
			"Both servos move together and their reported positions are the feedback",
		PreRun: func(cmd *cobra.Command, _ []string) {
			if !cmd.Flags().Changed("config") {
				configPath = envGearConfig(newLogger())
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadShifterConfig(configPath)
			if err != nil {
				return err
			}

			busCfg.Servos = busServos(ids, center, reversed)
			bus, err := servobus.Open(cmd.Context(), busCfg)
			if err != nil {
				return err
			}
			defer bus.Close()

			printInfo(fmt.Sprintf("Connected to %d servo(s) on %s", len(busCfg.Servos), busCfg.Port))

			return runLocal(cmd.Context(), cfg, bus, bus, showUI)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML shifter config (default: GEARSHIFT_CONFIG or built-in gears)")
	cmd.Flags().StringVarP(&busCfg.Port, "port", "p", "", "serial port of the bus adapter")
	cmd.Flags().IntVar(&busCfg.BaudRate, "baud", servobus.DefaultBaudRate, "bus baud rate")
	cmd.Flags().IntSliceVar(&ids, "ids", []int{1, 2}, "servo IDs")
	cmd.Flags().IntVar(&center, "center", servobus.DefaultCenter, "raw position at 90 degrees")
	cmd.Flags().BoolVar(&reversed, "reversed", true, "the second servo is mounted mirrored")
	cmd.Flags().BoolVar(&showUI, "ui", false, "show the desktop dashboard")
	_ = cmd.MarkFlagRequired("port")

	return cmd
}

// busServos builds the servo configs. Only the second servo can be reversed
func busServos(ids []int, center int, reversed bool) []servobus.ServoConfig {
	servos := make([]servobus.ServoConfig, len(ids))
	for i, id := range ids {
		servos[i] = servobus.ServoConfig{
			ID:       id,
			Center:   center,
			Reversed: reversed && i == 1,
		}
	}
	return servos
}
