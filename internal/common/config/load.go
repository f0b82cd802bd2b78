// Package config loads YAML configuration files into typed structs and validates them.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Load merges the given files, in order, on top of the values already held by config. Keys that none of
// the files set keep their current value, so callers fill config with defaults first.
func Load(config interface{}, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	for _, path := range paths {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return errors.WithMessagef(err, "failed to read in config %s", path)
		}
	}
	if err := v.Unmarshal(config, CustomHooks...); err != nil {
		return errors.WithMessage(err, "failed to unmarshal config")
	}
	return nil
}
