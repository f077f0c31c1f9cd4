// Package cmd wires the command-line interface: one subcommand per
// pipeline, sharing configuration via flags, a config file and the
// CROPCUBE_* environment.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cropcube",
	Short: "Multi-source crop data cube and soil/climate point sampling",
	Long: `cropcube builds monthly Sentinel-2 index cubes over a region of
interest and samples soil and climate datasets at point locations.

Subcommands:
	run    build the monthly index cube and export its tables
	slga   sample Soil and Landscape Grid attributes at points
	sof    sample Soil Organic Fraction rasters at points
	silo   download SILO daily climate records for points`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./cropcube.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log progress to the console")
	if err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")); err != nil {
		logrus.Exit(1)
	}
}

func initConfig() {
	// .env carries credentials like the SILO username and telemetry key
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("cropcube")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("CROPCUBE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}
