package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/gearshift/controller"
	"github.com/calvinmclean/gearshift/shifter"
	"github.com/calvinmclean/gearshift/ui"
)

func newRunCommand() *cobra.Command {
	var (
		cfg    controller.Config
		showUI bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the shifter firmware over serial",
		Long: "Connect to the shifter firmware over serial. Commands (up, down, g3, debug, ...) are read from stdin " +
			"and status messages are printed. Settings default to the GEARSHIFT_* environment variables",
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			envCfg, err := controller.ConfigFromEnv()
			if err != nil {
				return err
			}
			mergeConfig(cmd, &cfg, envCfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showUI {
				return runUI(cmd.Context(), cfg)
			}
			return runCLI(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.SerialPort, "port", "p", "", "serial port of the shifter, or None")
	cmd.Flags().StringVar(&cfg.BaudRate, "baud", "115200", "serial baud rate")
	cmd.Flags().StringVar(&cfg.RideLogAddr, "ridelog", "", "address of the ride log API")
	cmd.Flags().StringVar(&cfg.GearConfig, "config", "", "YAML shifter config, used for the gear count in the UI")
	cmd.Flags().BoolVar(&showUI, "ui", false, "show the desktop dashboard")

	return cmd
}

// mergeConfig fills in values from the environment for flags that were not set
func mergeConfig(cmd *cobra.Command, cfg *controller.Config, envCfg controller.Config) {
	if !cmd.Flags().Changed("port") {
		cfg.SerialPort = envCfg.SerialPort
	}
	if !cmd.Flags().Changed("baud") {
		cfg.BaudRate = envCfg.BaudRate
	}
	if !cmd.Flags().Changed("ridelog") {
		cfg.RideLogAddr = envCfg.RideLogAddr
	}
	if !cmd.Flags().Changed("config") {
		cfg.GearConfig = envCfg.GearConfig
	}
}

func loadShifterConfig(path string) (shifter.Config, error) {
	if path == "" {
		return shifter.DefaultConfig(), nil
	}
	return shifter.LoadConfig(path)
}

func runCLI(ctx context.Context, cfg controller.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	c, err := controller.New(cfg, controller.WithLogger(newLogger()))
	if err != nil {
		return err
	}
	defer c.Close()

	return c.Run(ctx, os.Stdin, newStatusPrinter(os.Stdout))
}

func runUI(ctx context.Context, cfg controller.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shifterCfg, err := loadShifterConfig(cfg.GearConfig)
	if err != nil {
		return err
	}

	gearUI := ui.NewGearUI()
	errs := make(chan error, 1)

	start := func() {
		c, err := controller.New(cfg, controller.WithLogger(newLogger()))
		if err != nil {
			sendErr(errs, err)
			cancel()
			return
		}

		r, w := io.Pipe()

		// read from Stdin also. The pipe stays open when Stdin ends so the buttons keep working
		go func() {
			_, _ = io.Copy(w, os.Stdin)
		}()

		go func() {
			defer c.Close()
			err := c.Run(ctx, r, io.MultiWriter(newStatusPrinter(os.Stdout), gearUI))
			if err != nil {
				sendErr(errs, err)
			}
			cancel()
		}()

		gearUI.Show(ctx, w, len(shifterCfg.Gears))
	}

	if cfg.SerialPort == "" {
		cw := ui.NewConfigWindow(gearUI.App())
		cw.OnSubmit = start
		cw.Show(&cfg)
	} else {
		start()
	}

	gearUI.App().Run()
	cancel()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// sendErr keeps the first error
func sendErr(errs chan<- error, err error) {
	select {
	case errs <- err:
	default:
	}
}

// envGearConfig returns GEARSHIFT_CONFIG. If the environment can't be parsed, the error is logged and the
// built-in gears are used
func envGearConfig(logger *slog.Logger) string {
	cfg, err := controller.ConfigFromEnv()
	if err != nil {
		logger.Warn("ignoring environment", "error", err)
		return ""
	}
	return cfg.GearConfig
}
