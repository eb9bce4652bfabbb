package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/forecast-parser/internal/adapter/filesystem"
	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/spf13/cobra"
)

func newRebaseCmd() *cobra.Command {
	var (
		t0       string
		maxHours int
	)

	cmd := &cobra.Command{
		Use:   "rebase TEMPLATE",
		Short: "Shift the timestamps of a forecast template",
		Long: `Rewrite every timestamp in TEMPLATE so the template's base time becomes
--t0 (default: the current UTC hour), keeping all offsets. The result is
printed to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			newT0 := time.Now().UTC().Truncate(time.Hour)
			if t0 != "" {
				parsed, err := time.Parse(domain.TimestampLayout, t0)
				if err != nil {
					return fmt.Errorf("invalid --t0 %q: want YYYYMMDDHH", t0)
				}
				newT0 = parsed
			}

			lines, err := filesystem.ReadLines(args[0])
			if err != nil {
				return err
			}
			out, err := domain.Rebase(lines, newT0, maxHours)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(out, "\n"))
			return err
		},
	}

	cmd.Flags().StringVar(&t0, "t0", "", "new base time as YYYYMMDDHH")
	cmd.Flags().IntVar(&maxHours, "max-hours", domain.DefaultMaxForecastHours, "largest offset in hours treated as a timestamp")
	return cmd
}
