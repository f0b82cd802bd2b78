package config

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// CustomHooks are passed to viper.Unmarshal. Viper replaces its default decode hook when one is given, so
// the duration and slice hooks it normally applies are composed in here as well.
var CustomHooks = []viper.DecoderConfigOption{
	viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		EnumDecodeHook(),
	)),
}

// EnumDecodeHook normalises strings decoded into named string types, e.g. period.Distribution, so that
// "LogUniform " and "loguniform" are the same value.
func EnumDecodeHook() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.String || t == reflect.TypeOf("") {
			return data, nil
		}
		return strings.ToLower(strings.TrimSpace(data.(string))), nil
	}
}
