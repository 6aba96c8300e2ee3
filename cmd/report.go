package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openbms/tsdq/pkg/checks"
	"github.com/openbms/tsdq/pkg/completeness"
	"github.com/openbms/tsdq/pkg/store"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	reportCfgFile    string
	reportStart      string
	reportEnd        string
	reportPeriod     string
	reportTimezone   string
	reportDataState  string
	reportTimeseries []string
	reportKey        string
	reportFormat     string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute a one-shot completeness report",
	Long: `Computes a completeness report for the given timeseries over
[start, end), bucketed by the period, and prints it to stdout.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportCfgFile, "config", "config.yaml", "config file")
	reportCmd.Flags().StringVar(&reportStart, "start", "", "range start (RFC 3339, inclusive)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "range end (RFC 3339, exclusive)")
	reportCmd.Flags().StringVar(&reportPeriod, "period", "1 day", "bucket period, e.g. \"1 hour\"")
	reportCmd.Flags().StringVar(&reportTimezone, "timezone", "UTC", "bucket alignment timezone")
	reportCmd.Flags().StringVar(&reportDataState, "data-state", "Raw", "data state to analyse")
	reportCmd.Flags().StringSliceVar(&reportTimeseries, "timeseries", nil, "timeseries identifiers")
	reportCmd.Flags().StringVar(&reportKey, "key", checks.KeyByID, "report keying: id or name")
	reportCmd.Flags().StringVar(&reportFormat, "format", "json", "output format: json or yaml")

	_ = reportCmd.MarkFlagRequired("start")
	_ = reportCmd.MarkFlagRequired("end")
	_ = reportCmd.MarkFlagRequired("timeseries")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(reportCfgFile)
	if err != nil {
		return err
	}

	if err := setupLogger(config); err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339, reportStart)
	if err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}

	end, err := time.Parse(time.RFC3339, reportEnd)
	if err != nil {
		return fmt.Errorf("invalid end: %w", err)
	}

	st, err := store.New(logger, &config.Store)
	if err != nil {
		return err
	}

	if err := st.Start(); err != nil {
		logger.WithError(err).Error("Failed to start store")

		return err
	}

	defer func() {
		if stopErr := st.Stop(); stopErr != nil {
			logger.WithError(stopErr).Warn("Failed to stop store")
		}
	}()

	ctx := cmd.Context()

	series, err := st.ResolveTimeseries(ctx, reportTimeseries)
	if err != nil {
		logger.WithError(err).Error("Failed to resolve timeseries")

		return err
	}

	calc := completeness.NewCalculator(logger, st)

	var rendered map[string]interface{}

	switch reportKey {
	case checks.KeyByName:
		rendered, err = calc.ComputePeriod(ctx, start, end, series, reportDataState, reportPeriod, reportTimezone)
	case checks.KeyByID:
		var (
			multiplier int
			unit       completeness.Unit
		)

		multiplier, unit, err = completeness.ParsePeriod(reportPeriod)
		if err == nil {
			var report *completeness.Report

			report, err = calc.Compute(ctx, start, end, series, reportDataState, multiplier, unit, reportTimezone)
			if report != nil {
				rendered = report.ByID()
			}
		}
	default:
		return fmt.Errorf("%w, got %q", checks.ErrInvalidKey, reportKey)
	}

	if err != nil {
		logger.WithError(err).Error("Failed to compute report")

		return err
	}

	return printReport(cmd, rendered)
}

func printReport(cmd *cobra.Command, rendered map[string]interface{}) error {
	switch reportFormat {
	case "yaml":
		out, err := yaml.Marshal(rendered)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		cmd.Print(string(out))
	case "json":
		out, err := json.MarshalIndent(rendered, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}

		cmd.Println(string(out))
	default:
		return fmt.Errorf("unknown output format %q", reportFormat)
	}

	return nil
}
