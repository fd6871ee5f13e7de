package main

import (
	"github.com/spf13/cobra"

	"github.com/calvinmclean/gearshift/ridelog"
)

func newRideLogCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "ridelog",
		Short: "Serve the ride log API",
		RunE: func(*cobra.Command, []string) error {
			printInfo("Serving ride log on " + addr + ridelog.BasePath)
			return ridelog.NewAPI().SetAddress(addr).Serve()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")

	return cmd
}
