// Command forecastctl runs the forecast decoder and the template rebaser
// against local files, without Kafka.
//
// Usage:
//
//	forecastctl decode --stations gridpoints.csv --lookup ksql-config.json ENetNEA_2024010100.txt
//	forecastctl rebase --t0 2024010106 templates/ENetNEA_2020010100.txt
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "forecastctl",
		Short: "Inspect and generate weather forecast files",
		Long: `forecastctl decodes provider forecast files into the records the parser
service publishes, and rebases forecast templates onto a new base time.`,
		SilenceUsage: true,
	}
	root.AddCommand(newDecodeCmd(), newRebaseCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
