package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func devicesCommand(f *flags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*f)
			if err != nil {
				return err
			}
			defer e.close()

			devices, err := e.app.ListDevices()
			if err != nil {
				return err
			}
			current := e.app.CurrentDevice()

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(struct {
					Host    string   `json:"host"`
					Current string   `json:"current"`
					Devices []string `json:"devices"`
				}{e.host.Name(), current, devices})
			}

			for _, name := range devices {
				marker := " "
				if name == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
