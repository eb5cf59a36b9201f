package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "TIMESNET"

var ErrUnknownLogFormat = errors.New("unknown log format")

// cli carries the state shared by every sub command.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:           "timesnet",
		Short:         "TimesNet forecasting and data preparation",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(cmd); err != nil {
				return err
			}
			return setupLogger(cmd.ErrOrStderr(), c.v.GetString("log-format"), c.v.GetString("log-level"))
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml) with a forecaster section")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		c.newForecastCmd(),
		c.newPeriodsCmd(),
		c.newPrepCmd(),
	)
	return root
}

// loadConfig binds every flag of cmd to viper so values resolve as flag, then TIMESNET_* environment
// variable, then config file, then flag default.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("unable to bind flags, %w", err)
	}

	path := c.v.GetString("config")
	if path == "" {
		return nil
	}
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config %s, %w", path, err)
	}
	return nil
}

func setupLogger(w io.Writer, format, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("unable to parse log level %q, %w", level, err)
	}
	handlerOpt := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text", "":
		handler = slog.NewTextHandler(w, handlerOpt)
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpt)
	default:
		return fmt.Errorf("%q, %w", format, ErrUnknownLogFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
