package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petems/tunetray/internal/app"
	"github.com/petems/tunetray/internal/recognize"
)

type identifyResult struct {
	Track *recognize.TrackMetadata `json:"track,omitempty"`
	Error *app.Error               `json:"error,omitempty"`
}

func identifyCommand(f *flags) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Record a short clip and print the recognized track as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(*f)
			if err != nil {
				return err
			}
			defer e.close()

			md, err := e.app.Recognize(cmd.Context())
			res := identifyResult{Error: app.ToError(err)}
			if err == nil {
				res.Track = &md
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			if encErr := enc.Encode(res); encErr != nil {
				return encErr
			}
			if err != nil {
				return fmt.Errorf("recognition failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&f.seconds, "seconds", 0, "Seconds of audio to capture (default from config)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return cmd
}
