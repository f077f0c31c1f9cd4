package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cropcube/internal/logging"
	"cropcube/internal/silo"
)

var siloCfg = silo.DefaultConfig()

var siloCmd = &cobra.Command{
	Use:   "silo",
	Short: "Download SILO daily climate records for points",
	Long: `Fetch daily climate records from the SILO API, one request per
point. Data-drill mode snaps coordinates to the 0.05 degree grid; station
mode fetches patched-point records by station number. The API requires
your email address as the username (CROPCUBE_SILO_USERNAME or --username).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if siloCfg.Username == "" {
			siloCfg.Username = viper.GetString("silo_username")
		}
		if err := siloCfg.Validate(); err != nil {
			return err
		}

		logger, closeLog, err := logging.New(filepath.Join(siloCfg.ExportRoot, siloCfg.AreaName, "SILO", "logs"), "silo_points", viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		defer closeLog()

		client := silo.NewClient(siloCfg.Retry)
		res, err := silo.Run(context.Background(), client, siloCfg, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows (%d fetched, %d skipped): %s%s\n", res.Rows, res.Fetched, res.Skipped, res.ParquetPath, suffixIf(res.CSVPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(siloCmd)

	f := siloCmd.Flags()
	f.StringVar(&siloCfg.AreaName, "area-name", "", "name of the study area, used in output paths")
	f.StringVar(&siloCfg.Mode, "mode", siloCfg.Mode, "datadrill (gridded) or station (patched point)")
	f.StringVar(&siloCfg.PointsPath, "points", "", "point locations GeoJSON file")
	f.StringVar(&siloCfg.StationField, "station-field", "", "property holding the station number (station mode)")
	f.StringSliceVar(&siloCfg.Variables, "variables", siloCfg.Variables, "single-letter climate variable codes")
	f.StringVar(&siloCfg.DateStart, "date-start", "", "first day (YYYY-MM-DD)")
	f.StringVar(&siloCfg.DateEnd, "date-end", "", "last day (YYYY-MM-DD)")
	f.StringVar(&siloCfg.Username, "username", "", "your email address, required by the API")
	f.StringVar(&siloCfg.Password, "password", siloCfg.Password, "API password (data-drill mode)")
	f.StringVar(&siloCfg.Format, "format", siloCfg.Format, "response format: csv or json")
	f.StringVar(&siloCfg.ExportRoot, "export-root", siloCfg.ExportRoot, "root directory for outputs")
	f.BoolVar(&siloCfg.MakeParquet, "parquet", siloCfg.MakeParquet, "write a parquet table")
	f.BoolVar(&siloCfg.MakeCSV, "csv", siloCfg.MakeCSV, "write a CSV table")
}
