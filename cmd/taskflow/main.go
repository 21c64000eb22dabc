package main

import (
	"fmt"
	"io"
	"os"

	"taskflow/internal/config"
	"taskflow/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var Version = "dev"

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	cfg *config.Config
	log *logrus.Logger
	out io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out}

	var (
		configPath string
		backend    string
		logLevel   string
	)

	rootCmd := &cobra.Command{
		Use:           "taskflow",
		Short:         "Taskflow - a small personal task manager",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfigFile(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if backend != "" {
				cfg.Storage.Backend = backend
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			a.cfg = cfg
			a.log = logger.New(cfg.Log.Level, cfg.Log.Format, errOut)
			return nil
		},
	}

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "YAML config file")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend (memory, redis, badger, sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level")

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(doneCmd(a))
	rootCmd.AddCommand(editCmd(a))
	rootCmd.AddCommand(rmCmd(a))
	rootCmd.AddCommand(clearCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(watchCmd(a))

	return rootCmd
}
