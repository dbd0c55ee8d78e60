package freeroute

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/logger"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/telemetry"
)

var (
	cfgFile string
	envFile string
	rootCmd = &cobra.Command{
		Use:   "freeroute",
		Short: "FreeRoute: graph extraction gateway",
		Long: `FreeRoute turns text into knowledge graphs through a chain of LLM providers
behind an OpenAI-compatible proxy, retrying, repairing and falling back until
a graph meets the configured thresholds. Extracted graphs can be stored in
Neo4j and queried read-only.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./freeroute.yaml or $HOME/.freeroute.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in the dotenv file, the config file and ENV variables.
func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "Ignoring env file:", err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName("freeroute")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. When a telemetry path is set, error
// records are also written to Parquet; the returned func flushes them.
func newLogger(cfg *config.Config) (*slog.Logger, func() error) {
	log := logger.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if cfg.Telemetry.ParquetPath == "" {
		return log, func() error { return nil }
	}

	handler, err := telemetry.NewParquetHandler(log.Handler(), cfg.Telemetry.ParquetPath)
	if err != nil {
		log.Warn("telemetry disabled", "path", cfg.Telemetry.ParquetPath, "error", err)
		return log, func() error { return nil }
	}
	return slog.New(handler), handler.Close
}
