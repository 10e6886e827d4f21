package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/goclafer/pkg/compiler"
	"github.com/gitrdm/goclafer/pkg/fd"
)

// solveConfig holds the search settings of a solve run. A config file
// provides the base values and explicitly set flags override them.
type solveConfig struct {
	Limit            int           `mapstructure:"limit" validate:"gte=0"`
	NodeLimit        int           `mapstructure:"node_limit" validate:"gte=0"`
	PropagationLimit int           `mapstructure:"propagation_limit" validate:"gte=0"`
	TimeLimit        time.Duration `mapstructure:"time_limit" validate:"gte=0"`
	Restarts         bool          `mapstructure:"restarts"`
	Policy           string        `mapstructure:"policy" validate:"oneof=input min-domain"`
	Optimize         bool          `mapstructure:"optimize"`
	LogLevel         string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	MetricsFile      string        `mapstructure:"metrics_file"`
}

func defaultConfig() solveConfig {
	return solveConfig{Policy: "input", LogLevel: "warn"}
}

var validate = validator.New()

// readConfig decodes a YAML config file over the defaults. Durations are
// written as Go duration strings, e.g. "1m30s".
func readConfig(path string) (solveConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(raw); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// loadConfig merges the --config file and the flags of cmd.
func loadConfig(cmd *cobra.Command) (solveConfig, error) {
	cfg := defaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		var err error
		if cfg, err = readConfig(path); err != nil {
			return cfg, err
		}
	}
	f := cmd.Flags()
	if f.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel, _ = f.GetString("log-level")
	}
	if f.Lookup("limit") != nil {
		if f.Changed("limit") {
			cfg.Limit, _ = f.GetInt("limit")
		}
		if f.Changed("node-limit") {
			cfg.NodeLimit, _ = f.GetInt("node-limit")
		}
		if f.Changed("propagation-limit") {
			cfg.PropagationLimit, _ = f.GetInt("propagation-limit")
		}
		if f.Changed("time-limit") {
			cfg.TimeLimit, _ = f.GetDuration("time-limit")
		}
		if f.Changed("restarts") {
			cfg.Restarts, _ = f.GetBool("restarts")
		}
		if f.Changed("policy") {
			cfg.Policy, _ = f.GetString("policy")
		}
		if f.Changed("optimize") {
			cfg.Optimize, _ = f.GetBool("optimize")
		}
		if f.Changed("metrics-file") {
			cfg.MetricsFile, _ = f.GetString("metrics-file")
		}
	}
	if err := validate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			v := verrs[0]
			return cfg, fmt.Errorf("config: %s: invalid value %q (%s)", v.Field(), fmt.Sprint(v.Value()), v.Tag())
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// searchOptions translates cfg into options for the search driver.
func (c solveConfig) searchOptions(sm *compiler.SolutionMap) []fd.Option {
	var opts []fd.Option
	if c.NodeLimit > 0 {
		opts = append(opts, fd.WithNodeLimit(c.NodeLimit))
	}
	if c.PropagationLimit > 0 {
		opts = append(opts, fd.WithPropagationLimit(c.PropagationLimit))
	}
	if c.TimeLimit > 0 {
		opts = append(opts, fd.WithTimeLimit(c.TimeLimit))
	}
	if c.Restarts {
		opts = append(opts, fd.WithRestarts(true))
	}
	if c.Policy == "min-domain" {
		opts = append(opts, fd.WithPolicy(fd.MinDomainPolicy{Vars: sm.Model().DecisionVars()}))
	}
	return opts
}
