// Command pulse-logger counts debounced pulses on a GPIO input, logs them per
// time bucket to a segmented binary log and publishes closed buckets to MQTT.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweeney/pulse-logger/internal/gpio"
	"github.com/sweeney/pulse-logger/internal/status"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries the resolved configuration from PersistentPreRunE to the commands.
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "pulse-logger",
		Short: "Count and log pulses from a GPIO input",
		Long: `pulse-logger debounces a pulse sensor on a GPIO line, counts falling edges
per time bucket and appends them to a segmented binary log.

Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (PULSE_LOGGER_*)
  - Configuration file (/etc/pulse-logger/pulse-logger.yaml or ./pulse-logger.yaml)
  - Default values (lowest priority)`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v, err := InitConfig(a.cfgFile)
			if err != nil {
				return err
			}
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			cfg, err := GetConfig(v)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a.v, a.cfg = v, cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), a.cfg)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default pulse-logger.yaml)")
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the logging daemon (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runDaemon(cmd.Context(), a.cfg)
			},
		},
		newDumpCmd(a),
		newResetCmd(a),
		newReadPinCmd(a),
	)
	return root
}

func newReadPinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read-pin",
		Short: "Print the current raw level of the input and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := gpio.NewRealInput(a.cfg.gpioConfig())
			if err != nil {
				return fmt.Errorf("init gpio: %w", err)
			}
			defer in.Close()
			return printLevel(cmd.OutOrStdout(), in, a.cfg)
		},
	}
}

func printLevel(w io.Writer, in gpio.Input, cfg Config) error {
	level, err := in.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Fprintf(w, "%s/%d: %s\n", cfg.Chip, cfg.Pin, status.LevelString(level))
	return nil
}

func (c Config) gpioConfig() gpio.Config {
	return gpio.Config{
		Chip:      c.Chip,
		Offset:    c.Pin,
		Bias:      c.Bias,
		ActiveLow: c.ActiveLow,
	}
}
