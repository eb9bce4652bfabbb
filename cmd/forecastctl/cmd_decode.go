package main

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/forecast-parser/internal/adapter/filesystem"
	"github.com/couchcryptid/forecast-parser/internal/adapter/reference"
	"github.com/couchcryptid/forecast-parser/internal/domain"
	"github.com/spf13/cobra"
)

func newDecodeCmd() *cobra.Command {
	var stationsPath, lookupPath string

	cmd := &cobra.Command{
		Use:   "decode FILE...",
		Short: "Decode forecast files and print records as JSON lines",
		Long: `Decode each forecast file, resolve every grid point to its nearest
station and print one JSON record per line, exactly as published to Kafka.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stations, err := reference.LoadStations(stationsPath)
			if err != nil {
				return err
			}
			lookup, err := reference.LoadParameterLookup(lookupPath)
			if err != nil {
				return err
			}
			table := domain.NewStationTable(stations)

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, path := range args {
				lines, err := filesystem.ReadLines(path)
				if err != nil {
					return err
				}
				file, series, err := domain.Decode(lines, path, lookup)
				if err != nil {
					return err
				}
				records, err := domain.Emit(file, series, table)
				if err != nil {
					return fmt.Errorf("%s: %w", file.Filename, err)
				}
				for _, rec := range records {
					if err := enc.Encode(rec); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stationsPath, "stations", "app/gridpoints.csv", "grid point CSV with lon and lat columns")
	cmd.Flags().StringVar(&lookupPath, "lookup", "app/ksql-config.json", "parameter lookup file")
	return cmd
}
