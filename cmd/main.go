package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"rc-physics-lab/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "rclab",
		Short: "RC car physics lab - battery chemistry, magnetic fields and a track simulator",
		Long: `A lab service for an RC car front end. It runs a 1-D vehicle simulation
streamed over websocket and MQTT, and exposes the battery, magnetic field
and motor calculators over REST and on the command line.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default ./config.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(batteryCmd())
	rootCmd.AddCommand(fieldCmd())
	rootCmd.AddCommand(motorCmd())
	rootCmd.AddCommand(presetsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the logger at its level.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFrom(viper.New(), configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log.level: %w", err)
	}
	logger.SetLevel(level)
	return cfg, logger, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
