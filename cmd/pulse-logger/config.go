package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/pulse-logger/internal/debounce"
	"github.com/sweeney/pulse-logger/internal/gpio"
)

// Log file names inside the data directory.
const (
	sensorLogName = "sensor.log"
	eventLogName  = "events.log"
)

// Config holds the daemon settings after flags, environment and config file
// have been merged.
type Config struct {
	Chip      string
	Pin       int
	Bias      gpio.Bias
	ActiveLow bool

	Debouncer debounce.Kind
	Debounce  time.Duration
	Poll      time.Duration

	Bucket time.Duration
	Buffer int
	Record time.Duration

	DataDir   string
	Broker    string
	HTTPAddr  string
	Heartbeat time.Duration
}

// SensorLogPath is where the binary pulse log lives.
func (c Config) SensorLogPath() string {
	return filepath.Join(c.DataDir, sensorLogName)
}

// EventLogPath is where the text event log lives.
func (c Config) EventLogPath() string {
	return filepath.Join(c.DataDir, eventLogName)
}

// Defaults, shared by viper and the flag help text.
const (
	defaultDebounce  = 50 * time.Millisecond
	defaultPoll      = 5 * time.Millisecond
	defaultBucket    = time.Minute
	defaultBuffer    = 1024
	defaultRecord    = time.Second
	defaultDataDir   = "/var/lib/pulse-logger"
	defaultHTTPAddr  = ":8080"
	defaultHeartbeat = 15 * time.Minute
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("chip", gpio.DefaultChip)
	v.SetDefault("pin", gpio.DefaultOffset)
	v.SetDefault("bias", string(gpio.BiasPullUp))
	v.SetDefault("active-low", false)
	v.SetDefault("debouncer", string(debounce.KindStandard))
	v.SetDefault("debounce", defaultDebounce)
	v.SetDefault("poll", defaultPoll)
	v.SetDefault("bucket", defaultBucket)
	v.SetDefault("buffer", defaultBuffer)
	v.SetDefault("record", defaultRecord)
	v.SetDefault("data-dir", defaultDataDir)
	v.SetDefault("broker", "")
	v.SetDefault("http", defaultHTTPAddr)
	v.SetDefault("heartbeat", defaultHeartbeat)
}

// registerFlags declares every config key as a flag on fs.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("chip", gpio.DefaultChip, "GPIO chip name")
	fs.Int("pin", gpio.DefaultOffset, "GPIO line offset")
	fs.String("bias", string(gpio.BiasPullUp), "line bias: pull-up, pull-down or disabled")
	fs.Bool("active-low", false, "invert the line level")
	fs.String("debouncer", string(debounce.KindStandard), "debounce policy: standard, prompt or lockout")
	fs.Duration("debounce", defaultDebounce, "debounce interval")
	fs.Duration("poll", defaultPoll, "GPIO polling interval")
	fs.Duration("bucket", defaultBucket, "time covered by one log entry, whole seconds")
	fs.Int("buffer", defaultBuffer, "entries held in memory between log writes")
	fs.Duration("record", defaultRecord, "bucket bookkeeping interval")
	fs.String("data-dir", defaultDataDir, "directory for "+sensorLogName+" and "+eventLogName)
	fs.String("broker", "", "MQTT broker address, empty disables MQTT")
	fs.String("http", defaultHTTPAddr, `HTTP status address, "off" disables`)
	fs.Duration("heartbeat", defaultHeartbeat, "heartbeat interval, 0 disables")
}

// InitConfig initializes the configuration using Viper.
// Configuration priority: flags > env vars > config file > defaults.
func InitConfig(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath("/etc/pulse-logger")
		v.AddConfigPath(".")
		v.SetConfigName("pulse-logger")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PULSE_LOGGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// GetConfig extracts and validates the configuration.
func GetConfig(v *viper.Viper) (Config, error) {
	kind, err := debounce.ParseKind(v.GetString("debouncer"))
	if err != nil {
		return Config{}, err
	}

	bias := gpio.Bias(v.GetString("bias"))
	switch bias {
	case gpio.BiasPullUp, gpio.BiasPullDown, gpio.BiasDisabled:
	default:
		return Config{}, fmt.Errorf("unknown bias %q (want pull-up, pull-down or disabled)", bias)
	}

	cfg := Config{
		Chip:      v.GetString("chip"),
		Pin:       v.GetInt("pin"),
		Bias:      bias,
		ActiveLow: v.GetBool("active-low"),
		Debouncer: kind,
		Debounce:  v.GetDuration("debounce"),
		Poll:      v.GetDuration("poll"),
		Bucket:    v.GetDuration("bucket"),
		Buffer:    v.GetInt("buffer"),
		Record:    v.GetDuration("record"),
		DataDir:   v.GetString("data-dir"),
		Broker:    v.GetString("broker"),
		HTTPAddr:  v.GetString("http"),
		Heartbeat: v.GetDuration("heartbeat"),
	}
	if cfg.HTTPAddr == "off" {
		cfg.HTTPAddr = ""
	}

	switch {
	case cfg.Heartbeat < 0:
		return Config{}, fmt.Errorf("heartbeat %v: must not be negative", cfg.Heartbeat)
	case cfg.Pin < 0:
		return Config{}, fmt.Errorf("pin %d: must not be negative", cfg.Pin)
	case cfg.Debounce < 0:
		return Config{}, fmt.Errorf("debounce %v: must not be negative", cfg.Debounce)
	case cfg.Poll <= 0:
		return Config{}, fmt.Errorf("poll %v: must be positive", cfg.Poll)
	case cfg.Record <= 0:
		return Config{}, fmt.Errorf("record %v: must be positive", cfg.Record)
	case cfg.Bucket < time.Second || cfg.Bucket%time.Second != 0:
		return Config{}, fmt.Errorf("bucket %v: must be whole seconds, at least 1s", cfg.Bucket)
	case cfg.Buffer < 1:
		return Config{}, fmt.Errorf("buffer %d: must be at least 1", cfg.Buffer)
	case cfg.DataDir == "":
		return Config{}, errors.New("data-dir must be set")
	}
	return cfg, nil
}
