package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harun/heycoach/internal/config"
	"github.com/harun/heycoach/internal/daemon"
	"github.com/harun/heycoach/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"start"},
	Short:   "Start the heycoach server",
	Long: `Start the heycoach server in the foreground.
Serves the speech API, the realtime relay and the static frontend until
SIGINT or SIGTERM is received. Log level changes in the config file are
applied without a restart.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = logLevel
	}

	pidFile := daemon.PIDFilePath(cfg.DataDir)
	if isRunning(pidFile) {
		return fmt.Errorf("heycoach is already running (PID file: %s)", pidFile)
	}

	log, err := logger.New(loggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}

	err = loader.Watch(func(next *config.Config) {
		if cmd.Flags().Changed("log-level") {
			next.Logging.Level = logLevel
		}
		if err := d.ApplyConfig(next); err != nil {
			log.Warn().Err(err).Msg("Failed to apply reloaded config")
		}
	}, func(err error) {
		log.Warn().Err(err).Msg("Ignoring invalid config change")
	})
	if err != nil {
		log.Debug().Err(err).Msg("Config hot reload disabled")
	}

	d.Wait(cmd.Context())
	return nil
}

func loggerConfig(cfg *config.Config) logger.Config {
	return logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	}
}

// getPIDFilePath resolves the PID file from the configured data directory
func getPIDFilePath() string {
	cfg, err := config.NewLoader(cfgFile).WithEnvFile("").Load()
	if err == nil && cfg.DataDir != "" {
		return daemon.PIDFilePath(cfg.DataDir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), daemon.PIDFileName)
	}
	return daemon.PIDFilePath(filepath.Join(home, ".heycoach"))
}

func isRunning(pidFile string) bool {
	pid, err := daemon.ReadPID(pidFile)
	if err != nil {
		return false
	}
	return daemon.ProcessRunning(pid)
}
