// Package config loads the command line configuration: defaults, an
// optional batchdigest.yaml, BATCHDIGEST_* environment variables and command
// line flags, in increasing order of precedence.
package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"batchdigest"
)

const (
	// FileName is the config file name looked up in the config directory,
	// without extension.
	FileName  = "batchdigest"
	envPrefix = "BATCHDIGEST"
)

// Config is the command line configuration.
type Config struct {
	Threads      int    `mapstructure:"threads" validate:"min=1"`
	QueueSize    int    `mapstructure:"queue_size" validate:"min=1"`
	BundleSize   int    `mapstructure:"bundle_size" validate:"min=1"`
	MaxLineBytes int    `mapstructure:"max_line_bytes" validate:"min=1"`
	Order        string `mapstructure:"order" validate:"oneof=fifo lifo"`
	OnReadError  string `mapstructure:"on_read_error" validate:"oneof=fail skip"`

	Verbose     bool   `mapstructure:"verbose"`
	Summary     bool   `mapstructure:"summary"`
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
	Output      string `mapstructure:"output"`
}

// flagKeys maps command line flag names to configuration keys. Keys are
// snake_case so that the environment variable of --bundle-size is
// BATCHDIGEST_BUNDLE_SIZE.
var flagKeys = map[string]string{
	"threads":        "threads",
	"queue-size":     "queue_size",
	"bundle-size":    "bundle_size",
	"max-line-bytes": "max_line_bytes",
	"order":          "order",
	"on-read-error":  "on_read_error",
	"verbose":        "verbose",
	"summary":        "summary",
	"metrics-addr":   "metrics_addr",
	"output":         "output",
}

// AddFlags declares the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	def := batchdigest.DefaultConfig()
	fs.Int("threads", def.Threads, "Number of worker goroutines")
	fs.Int("queue-size", def.MaxQueueSize, "Bundles allowed in the work queue before the reader is held back")
	fs.Int("bundle-size", def.BundleSize, "Lines per bundle")
	fs.Int("max-line-bytes", def.MaxLineBytes, "Longest accepted line in bytes")
	fs.String("order", def.QueueOrder.String(), "Work queue removal order: fifo or lifo")
	fs.String("on-read-error", def.ReadErrorPolicy.String(), "What to do when a source fails mid-read: fail or skip")
	fs.BoolP("verbose", "v", false, "Log per-source progress")
	fs.Bool("summary", false, "Print a run summary to stderr")
	fs.String("metrics-addr", "", "If set, serve Prometheus /metrics on this address (e.g. :9090)")
	fs.StringP("output", "o", "", "Append digest snapshots as JSON lines to this file")
}

// Load reads configuration into a Config. dir is searched for
// batchdigest.yaml (or any extension viper understands); an empty dir or a
// missing file is not an error.
func Load(v *viper.Viper, fs *pflag.FlagSet, dir string) (Config, error) {
	def := batchdigest.DefaultConfig()
	v.SetDefault("threads", def.Threads)
	v.SetDefault("queue_size", def.MaxQueueSize)
	v.SetDefault("bundle_size", def.BundleSize)
	v.SetDefault("max_line_bytes", def.MaxLineBytes)
	v.SetDefault("order", def.QueueOrder.String())
	v.SetDefault("on_read_error", def.ReadErrorPolicy.String())

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, errors.Wrapf(err, "binding flag %s", name)
				}
			}
		}
	}

	if dir != "" {
		v.SetConfigName(FileName)
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errors.Wrapf(err, "reading config from %s", dir)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	c.Order = strings.ToLower(c.Order)
	c.OnReadError = strings.ToLower(c.OnReadError)
	return c, nil
}

// Validate checks the struct tags of c.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Engine converts c into engine tunables.
func (c Config) Engine() (batchdigest.Config, error) {
	order, err := batchdigest.ParseQueueOrder(c.Order)
	if err != nil {
		return batchdigest.Config{}, err
	}
	policy, err := batchdigest.ParseReadErrorPolicy(c.OnReadError)
	if err != nil {
		return batchdigest.Config{}, err
	}
	return batchdigest.Config{
		Threads:         c.Threads,
		MaxQueueSize:    c.QueueSize,
		BundleSize:      c.BundleSize,
		MaxLineBytes:    c.MaxLineBytes,
		QueueOrder:      order,
		ReadErrorPolicy: policy,
	}, nil
}

// LogValidationErrors logs one line per invalid field.
func LogValidationErrors(log logrus.FieldLogger, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		if err != nil {
			log.Error(err)
		}
		return
	}
	for _, fe := range verrs {
		field := stripPrefix(fe.Namespace())
		switch fe.Tag() {
		case "required":
			log.Errorf("ConfigError: field %s is required but was not found", field)
		default:
			log.Errorf("ConfigError: field %s has invalid value %v: %s %s", field, fe.Value(), fe.Tag(), fe.Param())
		}
	}
}

func stripPrefix(s string) string {
	if idx := strings.Index(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}
