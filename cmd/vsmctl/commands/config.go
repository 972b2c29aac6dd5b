package commands

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"github.com/vkngwrapper/mediamem/backend/simulated"
	"github.com/vkngwrapper/mediamem/hw"
	"github.com/vkngwrapper/mediamem/memutils"
)

// Config is the vsmctl configuration, read from vsmctl.yaml, VSMCTL_* environment variables and
// command line flags, in increasing order of precedence
type Config struct {
	Features    []string       `mapstructure:"features"`
	Workarounds []string       `mapstructure:"workarounds"`
	Server      bool           `mapstructure:"server"`
	Verbose     bool           `mapstructure:"verbose"`
	Budgets     BudgetConfig   `mapstructure:"budgets"`
	Simulate    SimulateConfig `mapstructure:"simulate"`
}

// BudgetConfig caps the live bytes of each simulated pool. Zero is unlimited.
type BudgetConfig struct {
	Generic int `mapstructure:"generic"`
	Device  int `mapstructure:"device"`
	System  int `mapstructure:"system"`
}

type SimulateConfig struct {
	Frames     int    `mapstructure:"frames"`
	Width      int    `mapstructure:"width"`
	Height     int    `mapstructure:"height"`
	Format     string `mapstructure:"format"`
	References int    `mapstructure:"references"`
	Detailed   bool   `mapstructure:"detailed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("features", []string{"FeatureLocalMemory", "FeatureLosslessCompression", "FeatureCopyEngineSwizzle"})
	v.SetDefault("workarounds", []string{})
	v.SetDefault("server", false)
	v.SetDefault("verbose", false)

	v.SetDefault("budgets.generic", 0)
	v.SetDefault("budgets.device", 0)
	v.SetDefault("budgets.system", 0)

	v.SetDefault("simulate.frames", 30)
	v.SetDefault("simulate.width", 1920)
	v.SetDefault("simulate.height", 1080)
	v.SetDefault("simulate.format", "NV12")
	v.SetDefault("simulate.references", 4)
	v.SetDefault("simulate.detailed", false)
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read the configuration")
	}
	return &cfg, nil
}

// Platform builds the hardware description from the configured feature and workaround names
func (c *Config) Platform() (hw.Platform, error) {
	var platform hw.Platform

	for _, name := range splitNames(c.Features) {
		feature, ok := hw.FeatureByName(name)
		if !ok {
			return platform, errors.Mark(errors.Newf("unknown feature %q", name), memutils.ErrInvalidArgument)
		}
		platform.Features |= feature
	}

	for _, name := range splitNames(c.Workarounds) {
		workaround, ok := hw.WorkaroundByName(name)
		if !ok {
			return platform, errors.Mark(errors.Newf("unknown workaround %q", name), memutils.ErrInvalidArgument)
		}
		platform.Workarounds |= workaround
	}

	return platform, nil
}

// BackendOptions returns the simulated backend options for the configured budgets
func (c *Config) BackendOptions() simulated.Options {
	var options simulated.Options
	options.PoolBudgets[hw.PoolGeneric] = c.Budgets.Generic
	options.PoolBudgets[hw.PoolDevice] = c.Budgets.Device
	options.PoolBudgets[hw.PoolSystem] = c.Budgets.System
	return options
}

// splitNames accepts both lists and comma separated entries, which is what environment variables
// produce
func splitNames(values []string) []string {
	var names []string
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
