// Package cmd contains the CLI commands for tsdq
package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Global vars needed for cobra CLI
var (
	logger *logrus.Logger
)

// rootCmd represents the base command
//
//nolint:gochecknoglobals // Cobra commands are typically global
var rootCmd = &cobra.Command{
	Use:   "tsdq",
	Short: "Timeseries Data Quality - completeness analysis for building timeseries",
	Long: `tsdq computes data completeness reports for building management
timeseries: how many samples each series stored per time bucket, how many
were expected from its sampling interval, and the ratio between the two.
Reports run one-shot from the CLI or continuously via scheduled checks.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Initialize logger
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
