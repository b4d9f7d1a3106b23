package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/breathe-india/aqcover/internal/model"
	"github.com/breathe-india/aqcover/internal/popsource"
	"github.com/breathe-india/aqcover/internal/report"
	"github.com/breathe-india/aqcover/internal/stations"
)

var stationsPath string

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "Inspect and export the monitoring station table",
}

// -- stations stats --

var stationsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Per-state station density against census population",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sts, err := loadStations(ctx, stationsPath)
		if err != nil {
			return err
		}

		populations, _, err := popsource.CensusAggregate()
		if err != nil {
			return err
		}
		rows := report.BuildDensity(populations, stations.CountByState(sts))

		topN, _ := cmd.Flags().GetInt("top")
		markdownPath, _ := cmd.Flags().GetString("markdown")
		csvPath, _ := cmd.Flags().GetString("csv")

		if markdownPath != "" {
			if err := writeFileWith(markdownPath, func(f *os.File) error {
				return report.WriteDensityMarkdown(f, rows, topN)
			}); err != nil {
				return err
			}
		}
		if csvPath != "" {
			if err := writeFileWith(csvPath, func(f *os.File) error {
				return report.WriteDensityCSV(f, rows)
			}); err != nil {
				return err
			}
		}
		if markdownPath == "" && csvPath == "" {
			formatDensitySummary(os.Stdout, sts, rows, topN)
		}
		return nil
	},
}

// -- stations export --

var stationsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stations as a GeoJSON FeatureCollection",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sts, err := loadStations(ctx, stationsPath)
		if err != nil {
			return err
		}

		outPath, _ := cmd.Flags().GetString("out")
		if outPath == "" || outPath == "-" {
			return report.WriteStationsGeoJSON(os.Stdout, sts)
		}
		return writeFileWith(outPath, func(f *os.File) error {
			return report.WriteStationsGeoJSON(f, sts)
		})
	},
}

// formatDensitySummary prints a compact table of the most underserved
// states when no output files are requested.
func formatDensitySummary(out io.Writer, sts []model.Station, rows []report.DensityRow, topN int) {
	cities := stations.TopCities(sts, 5)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Stations:\t%d\n", len(sts))
	_, _ = fmt.Fprintf(w, "States with stations:\t%d\n", countMonitored(rows))
	_ = w.Flush()

	_, _ = fmt.Fprintln(out, "\nTop cities by station count:")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range cities {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", c.City, c.Count)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out, "\nMost underserved states (people per station):")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range report.MostUnderserved(rows, topN) {
		_, _ = fmt.Fprintf(w, "  %s\t%.2fM\n", r.State, r.PeoplePerStation/1e6)
	}
	_ = w.Flush()
}

func countMonitored(rows []report.DensityRow) int {
	n := 0
	for _, r := range rows {
		if r.Stations > 0 {
			n++
		}
	}
	return n
}

func init() {
	stationsCmd.PersistentFlags().StringVar(&stationsPath, "stations", "", "station table CSV (required)")

	stationsStatsCmd.Flags().Int("top", 10, "rows in ranking tables")
	stationsStatsCmd.Flags().String("markdown", "", "write the density inequity report to this file")
	stationsStatsCmd.Flags().String("csv", "", "write the full density table to this file")

	stationsExportCmd.Flags().String("out", "", "output path (stdout when unset)")

	stationsCmd.AddCommand(stationsStatsCmd)
	stationsCmd.AddCommand(stationsExportCmd)
	rootCmd.AddCommand(stationsCmd)
}
