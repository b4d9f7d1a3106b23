package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/breathe-india/aqcover/internal/model"
	"github.com/breathe-india/aqcover/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs over a read-only HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// The station layer is optional; without it the GeoJSON
		// endpoint serves an empty collection.
		var sts []model.Station
		if stationsFile, _ := cmd.Flags().GetString("stations"); stationsFile != "" {
			sts, err = loadStations(ctx, stationsFile)
			if err != nil {
				return err
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		return server.New(st, sts, port).Run(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().String("stations", "", "station table CSV for the GeoJSON endpoint")

	rootCmd.AddCommand(serveCmd)
}
