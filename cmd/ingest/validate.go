package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/coffee-ingest/internal/validator"
)

var errInvalidArtifacts = errors.New("some artifacts are invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate artifact files without processing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := validator.New()
			stats := validator.NewStats()
			out := cmd.OutOrStdout()

			for _, path := range args {
				raw, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				o := v.Validate(raw)
				stats.Record(o)
				if o.IsValid {
					fmt.Fprintf(out, "%s: valid (%s)\n", path, o.ArtifactID)
				} else {
					fmt.Fprintf(out, "%s: invalid\n", path)
					for _, e := range o.Errors {
						fmt.Fprintf(out, "  %s\n", e.Error())
					}
				}
				for _, w := range o.Warnings {
					fmt.Fprintf(out, "  warning: %s\n", w)
				}
			}

			snap := stats.Snapshot()
			fmt.Fprintf(out, "\n%d checked, %d valid, %d invalid\n", snap.Total, snap.Valid, snap.Invalid)
			if snap.Invalid > 0 {
				return errInvalidArtifacts
			}
			return nil
		},
	}
}
