package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/openbms/tsdq/pkg/cache"
	"github.com/openbms/tsdq/pkg/checks"
	"github.com/openbms/tsdq/pkg/observability"
	"github.com/openbms/tsdq/pkg/store"
)

//nolint:gochecknoglobals // Cobra flags are typically global
var (
	workerCfgFile string
)

//nolint:gochecknoglobals // Cobra commands are typically global
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the check worker",
	Long:  `The worker executes queued completeness check runs and caches the reports.`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().StringVar(&workerCfgFile, "config", "config.yaml", "config file (default is config.yaml)")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(workerCfgFile)
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

	st, err := store.New(logger, &config.Store)
	if err != nil {
		return err
	}

	if err := st.Start(); err != nil {
		logger.WithError(err).Error("Failed to start store")

		return err
	}

	redisClient := redis.NewClient(config.Redis.Options())
	reports := cache.NewManager(redisClient, config.Redis.Prefix)

	worker := checks.NewWorker(logger, config.Checks, st, reports,
		config.Redis.Options(), config.Redis.PrefixQueue(checks.Queue), config.Concurrency)

	if err := worker.Start(cmd.Context()); err != nil {
		return err
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	if err := worker.Stop(); err != nil {
		return err
	}

	if err := redisClient.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close redis client")
	}

	return st.Stop()
}
