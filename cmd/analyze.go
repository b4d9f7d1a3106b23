package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/breathe-india/aqcover/internal/boundary"
	"github.com/breathe-india/aqcover/internal/coverage"
	"github.com/breathe-india/aqcover/internal/fetcher"
	"github.com/breathe-india/aqcover/internal/model"
	"github.com/breathe-india/aqcover/internal/popsource"
	"github.com/breathe-india/aqcover/internal/report"
	"github.com/breathe-india/aqcover/internal/stations"
)

var (
	analyzeStationsPath string
	analyzeBoundaryPath string
	analyzeOutDir       string
	analyzeTopN         int
	analyzeNoStore      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the coverage analysis against a population source",
	Long:  "Computes nearest-station distance for every population point, aggregates coverage bands by state, writes CSV and markdown reports, and records the run.",
}

// -- analyze census --

var analyzeCensusCmd = &cobra.Command{
	Use:   "census",
	Short: "Analyze against 2011 census state populations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sts, err := loadStations(ctx, analyzeStationsPath)
		if err != nil {
			return err
		}

		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		sheet, _ := cmd.Flags().GetInt("sheet")
		skipRows, _ := cmd.Flags().GetInt("skip-rows")

		var points []model.PopulationPoint
		var diags model.Diagnostics
		if xlsxPath != "" {
			points, diags, err = popsource.CensusFromXLSX(xlsxPath, fetcher.XLSXOptions{
				SheetIndex: sheet,
				SkipRows:   skipRows,
			})
		} else {
			points, diags, err = popsource.CensusAggregate()
		}
		if err != nil {
			return err
		}

		return runAnalysis(ctx, model.SourceCensusAggregate, sts, points, diags)
	},
}

// -- analyze grid --

var analyzeGridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Analyze against a synthetic station-anchored population grid",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sts, err := loadStations(ctx, analyzeStationsPath)
		if err != nil {
			return err
		}
		idx, err := loadBoundary()
		if err != nil {
			return err
		}

		params := popsource.GridParams{
			CellDeg:   cfg.Grid.CellDeg,
			BasePop:   cfg.Grid.BasePop,
			PeakPop:   cfg.Grid.PeakPop,
			DecayRate: cfg.Grid.DecayRate,
			TopCities: cfg.Grid.TopCities,
		}
		points, diags, err := popsource.SyntheticGrid(params, sts, idx)
		if err != nil {
			return err
		}

		return runAnalysis(ctx, model.SourceSyntheticGrid, sts, points, diags)
	},
}

// -- analyze raster --

var analyzeRasterCmd = &cobra.Command{
	Use:   "raster",
	Short: "Analyze against a gridded population raster (.asc or xyz CSV)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sts, err := loadStations(ctx, analyzeStationsPath)
		if err != nil {
			return err
		}
		idx, err := loadBoundary()
		if err != nil {
			return err
		}

		popPath, _ := cmd.Flags().GetString("pop")
		povertyPath, _ := cmd.Flags().GetString("poverty")
		if popPath == "" {
			return eris.Wrap(model.ErrConfiguration, "analyze raster: --pop is required")
		}

		var points []model.PopulationPoint
		var diags model.Diagnostics
		switch filepath.Ext(popPath) {
		case ".asc":
			points, diags, err = popsource.RasterASC(popPath, povertyPath, idx)
		default:
			if povertyPath != "" {
				return eris.Wrap(model.ErrConfiguration, "analyze raster: separate poverty grid requires .asc input")
			}
			points, diags, err = popsource.RasterXYZFile(ctx, popPath, idx)
		}
		if err != nil {
			return err
		}

		return runAnalysis(ctx, model.SourceGriddedRaster, sts, points, diags)
	},
}

func loadStations(ctx context.Context, path string) ([]model.Station, error) {
	if path == "" {
		return nil, eris.Wrap(model.ErrConfiguration, "--stations is required")
	}
	sts, diags, err := stations.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("stations loaded",
		zap.Int("loaded", diags.Loaded),
		zap.Int("skipped", diags.Skipped),
	)
	return sts, nil
}

func loadBoundary() (*boundary.Index, error) {
	if analyzeBoundaryPath == "" {
		return nil, eris.Wrap(model.ErrConfiguration, "analyze: --boundary is required for this source")
	}
	return boundary.Load(analyzeBoundaryPath)
}

// runAnalysis is the shared back half of every analyze subcommand:
// distance pass, aggregation, report files, run persistence.
func runAnalysis(ctx context.Context, source model.SourceKind, sts []model.Station, points []model.PopulationPoint, diags model.Diagnostics) error {
	results, err := coverage.NearestParallel(ctx, points, sts, cfg.Analysis.Workers)
	if err != nil {
		return err
	}

	regions := coverage.AggregateByRegion(results)
	summary, err := coverage.NationalSummary(results, cfg.Analysis.HighPovertyCutoff)
	if err != nil {
		// Zero usable population is recovered as a NaN summary, same
		// policy as per-region aggregates; the run still produces
		// reports.
		if !eris.Is(err, model.ErrInsufficientData) {
			return err
		}
		zap.L().Warn("national summary has no usable population", zap.Error(err))
	}

	if err := writeReports(regions, summary); err != nil {
		return err
	}

	if !analyzeNoStore {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.CreateRun(ctx, source, len(sts), diags)
		if err != nil {
			return err
		}
		if err := st.SaveResults(ctx, run.ID, regions, summary); err != nil {
			return err
		}
		zap.L().Info("run recorded", zap.String("run_id", run.ID), zap.String("source", string(source)))
		fmt.Println(run.ID)
	}

	zap.L().Info("analysis complete",
		zap.String("source", string(source)),
		zap.Int("points", summary.Points),
		zap.Float64("total_population", summary.TotalPopulation),
	)
	return nil
}

func writeReports(regions map[string]coverage.RegionAggregate, summary coverage.Summary) error {
	if err := os.MkdirAll(analyzeOutDir, 0o755); err != nil {
		return eris.Wrapf(err, "analyze: create output dir %s", analyzeOutDir)
	}

	if err := writeFileWith(filepath.Join(analyzeOutDir, "regions.csv"), func(f *os.File) error {
		return report.WriteRegionsCSV(f, regions)
	}); err != nil {
		return err
	}
	return writeFileWith(filepath.Join(analyzeOutDir, "summary.md"), func(f *os.File) error {
		return report.WriteSummaryMarkdown(f, summary, regions, analyzeTopN)
	})
}

func writeFileWith(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "analyze: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := write(f); err != nil {
		return err
	}
	zap.L().Info("report written", zap.String("path", path))
	return f.Close()
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeStationsPath, "stations", "", "station table CSV (required)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeBoundaryPath, "boundary", "", "state boundary shapefile (.shp or .zip)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeOutDir, "out", "reports", "report output directory")
	analyzeCmd.PersistentFlags().IntVar(&analyzeTopN, "top", 10, "rows in most-underserved tables")
	analyzeCmd.PersistentFlags().BoolVar(&analyzeNoStore, "no-store", false, "skip persisting the run")

	analyzeCensusCmd.Flags().String("xlsx", "", "census workbook (state, population); bundled 2011 table when unset")
	analyzeCensusCmd.Flags().Int("sheet", 0, "workbook sheet index")
	analyzeCensusCmd.Flags().Int("skip-rows", 0, "header rows to skip in the workbook")

	analyzeRasterCmd.Flags().String("pop", "", "population raster: ESRI ASCII .asc or lon,lat,pop CSV")
	analyzeRasterCmd.Flags().String("poverty", "", "optional poverty-index .asc aligned with --pop")

	analyzeCmd.AddCommand(analyzeCensusCmd)
	analyzeCmd.AddCommand(analyzeGridCmd)
	analyzeCmd.AddCommand(analyzeRasterCmd)
	rootCmd.AddCommand(analyzeCmd)
}
