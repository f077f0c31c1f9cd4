package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cropcube/internal/engine"
	"cropcube/internal/logging"
	"cropcube/internal/slga"
	"cropcube/pkg/retry"
)

var slgaCfg = slga.DefaultConfig()
var slgaEndpoint string

var slgaCmd = &cobra.Command{
	Use:   "slga",
	Short: "Sample Soil and Landscape Grid attributes at points",
	Long: `Sample SLGA attribute rasters (soil organic carbon, texture, pH and
friends) at point locations through the compute service. Bands are named
{attribute}_{depth}_{statistic}.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if slgaEndpoint == "" {
			return fmt.Errorf("an --endpoint is required")
		}
		if err := slgaCfg.Validate(); err != nil {
			return err
		}

		logger, closeLog, err := logging.New(filepath.Join(slgaCfg.ExportRoot, slgaCfg.AreaName, "SLGA", "logs"), "slga_points", viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		defer closeLog()

		eval := engine.NewHTTPEvaluator(slgaEndpoint, retry.DefaultPolicy())
		res, err := slga.Run(context.Background(), eval, slgaCfg, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows: %s%s\n", res.Rows, res.ParquetPath, suffixIf(res.CSVPath))
		return nil
	},
}

func suffixIf(path string) string {
	if path == "" {
		return ""
	}
	return " " + path
}

func init() {
	rootCmd.AddCommand(slgaCmd)

	f := slgaCmd.Flags()
	f.StringVar(&slgaCfg.AreaName, "area-name", "", "name of the study area, used in output paths")
	f.StringVar(&slgaCfg.PointsPath, "points", "", "point locations GeoJSON file")
	f.StringSliceVar(&slgaCfg.Attributes, "attributes", slgaCfg.Attributes, "SLGA attribute codes, e.g. SOC,CLY")
	f.StringVar(&slgaCfg.Stat, "stat", slgaCfg.Stat, "statistic: EV, 05 or 95")
	f.StringSliceVar(&slgaCfg.Depths, "depths", slgaCfg.Depths, "depth windows, e.g. 000_005,005_015")
	f.IntVar(&slgaCfg.Scale, "scale", slgaCfg.Scale, "sampling scale in meters")
	f.StringVar(&slgaCfg.ExportRoot, "export-root", slgaCfg.ExportRoot, "root directory for outputs")
	f.BoolVar(&slgaCfg.MakeParquet, "parquet", slgaCfg.MakeParquet, "write a parquet table")
	f.BoolVar(&slgaCfg.MakeCSV, "csv", slgaCfg.MakeCSV, "write a CSV table")
	f.StringVar(&slgaEndpoint, "endpoint", "", "compute service base URL")
}
