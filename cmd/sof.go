package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cropcube/internal/logging"
	"cropcube/internal/sof"
)

var sofCfg = sof.DefaultConfig()

var sofCmd = &cobra.Command{
	Use:   "sof",
	Short: "Sample Soil Organic Fraction rasters at points",
	Long: `Read the TERN Soil Organic Fraction cloud-optimized GeoTIFFs over
HTTP and sample them at point locations. Unpublished combinations are
skipped with a warning; a raster that fails to read yields a null column.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sofCfg.Validate(); err != nil {
			return err
		}

		logger, closeLog, err := logging.New(filepath.Join(sofCfg.ExportRoot, sofCfg.AreaName, "SOF", "logs"), "sof_points", viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		defer closeLog()

		sampler := &sof.COGSampler{CookieFile: sofCfg.CookieFile}
		res, err := sof.Run(sofCfg, sampler, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows x %d raster columns: %s%s\n", res.Rows, res.Columns, res.ParquetPath, suffixIf(res.CSVPath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sofCmd)

	f := sofCmd.Flags()
	f.StringVar(&sofCfg.AreaName, "area-name", "", "name of the study area, used in output paths")
	f.StringVar(&sofCfg.PointsPath, "points", "", "point locations GeoJSON file")
	f.StringSliceVar(&sofCfg.Families, "families", sofCfg.Families, "raster families: Fractions_Density, Proportions, Stocks")
	f.StringSliceVar(&sofCfg.Fractions, "fractions", sofCfg.Fractions, "carbon fractions: MAOC, POC, PyOC")
	f.StringSliceVar(&sofCfg.Depths, "depths", sofCfg.Depths, "depth windows, e.g. 000_005,005_015")
	f.StringVar(&sofCfg.Stat, "stat", sofCfg.Stat, "statistic: EV, 05 or 95")
	f.StringVar(&sofCfg.ExportRoot, "export-root", sofCfg.ExportRoot, "root directory for outputs")
	f.StringVar(&sofCfg.CookieFile, "cookie-file", "", "cookie file for authenticated raster access")
	f.BoolVar(&sofCfg.MakeParquet, "parquet", sofCfg.MakeParquet, "write a parquet table")
	f.BoolVar(&sofCfg.MakeCSV, "csv", sofCfg.MakeCSV, "write a CSV table")
}
