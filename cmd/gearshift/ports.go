package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calvinmclean/gearshift/controller"
)

func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List USB serial ports",
		RunE: func(*cobra.Command, []string) error {
			ports, err := controller.GetSerialPorts()
			if errors.Is(err, controller.ErrNoUSBSerial) {
				fmt.Println(dimStyle.Render("No USB serial ports found"))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Println(headerStyle.Render("USB serial ports"))
			for _, p := range ports {
				fmt.Println("  " + successStyle.Render(p))
			}
			return nil
		},
	}
}
