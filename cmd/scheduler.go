package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openbms/tsdq/pkg/checks"
	"github.com/openbms/tsdq/pkg/observability"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	schedulerCfgFile string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Start the check scheduler",
	Long:  `The scheduler enqueues completeness check runs on their cron schedules.`,
	RunE:  runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.Flags().StringVar(&schedulerCfgFile, "config", "config.yaml", "config file (default is config.yaml)")
}

func runScheduler(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(schedulerCfgFile)
	if err != nil {
		return err
	}

	if err := setupLogger(config); err != nil {
		return err
	}

	if err := config.validateServices(); err != nil {
		logger.WithError(err).Error("Invalid configuration")

		return err
	}

	logger.Info("Configuration loaded")

	observability.StartMetricsServer(config.MetricsAddr)

	scheduler := checks.NewScheduler(logger, config.Checks, config.Redis.Options(), config.Redis.PrefixQueue(checks.Queue))
	if err := scheduler.Start(cmd.Context()); err != nil {
		return err
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	return scheduler.Stop()
}
