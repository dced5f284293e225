// Copyright 2020 Insolar Network Ltd.
// All rights reserved.
// This material is licensed under the Insolar License version 1.0,
// available at https://github.com/insolar/crowdfund/blob/master/LICENSE.md.

package insconfig

import (
	goflag "flag"
	"reflect"
	"regexp"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

// ConfigStruct returns a pointer to the config to load into.
type ConfigStruct interface {
	GetConfig() interface{}
}

type Params struct {
	ConfigStruct ConfigStruct
	EnvPrefix    string
	// For go flags compatibility
	GoFlags *goflag.FlagSet
	// For spf13/pflags compatibility
	PFlags     *flag.FlagSet
	ViperHooks []mapstructure.DecodeHookFunc
}

// Load parses command line flags and reads the file given with --config.
// Every key can be overridden from env: PREFIX_SECTION_KEY.
func Load(params Params) (interface{}, error) {
	if params.EnvPrefix == "" {
		return nil, errors.New("EnvPrefix should be defined")
	}
	if params.ConfigStruct == nil {
		return nil, errors.New("ConfigStruct should be defined")
	}
	if params.GoFlags != nil {
		flag.CommandLine.AddGoFlagSet(params.GoFlags)
	}
	if params.PFlags != nil {
		flag.CommandLine.AddFlagSet(params.PFlags)
	}
	var configPath = flag.String("config", "", "path to config")
	flag.Parse()

	return LoadFile(params, *configPath)
}

func LoadFile(params Params, path string) (interface{}, error) {
	if path == "" {
		return nil, errors.New("config path should be provided with --config")
	}
	v := viper.New()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(params.EnvPrefix)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to load config")
	}
	actual := params.ConfigStruct.GetConfig()
	hooks := append(params.ViperHooks, mapstructure.StringToTimeDurationHookFunc(), mapstructure.StringToSliceHookFunc(","))
	err := v.UnmarshalExact(actual, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(hooks...)))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal config file into configuration structure")
	}
	if err := checkAllValuesIsSet(v, actual); err != nil {
		return nil, err
	}

	return actual, nil
}

func checkAllValuesIsSet(v *viper.Viper, c interface{}) error {
	for _, name := range deepFieldNames(c, "") {
		if !v.IsSet(name) {
			return errors.Errorf("Value not found in config: %s", name)
		}
	}
	return nil
}

func deepFieldNames(iface interface{}, prefix string) []string {
	names := make([]string, 0)
	ifv := reflect.Indirect(reflect.ValueOf(iface))
	if ifv.Kind() != reflect.Struct {
		return names
	}

	for i := 0; i < ifv.NumField(); i++ {
		field := ifv.Type().Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		if v := ifv.Field(i); v.Kind() == reflect.Struct {
			names = append(names, deepFieldNames(v.Interface(), name)...)
			continue
		}
		names = append(names, name)
	}

	return names
}

// PrintConfig logs c as yaml with database passwords masked.
func PrintConfig(log *logrus.Logger, c interface{}) {
	out, err := yaml.Marshal(c)
	if err != nil {
		log.Error(errors.Wrapf(err, "failed to marshal config structure"))
		return
	}
	log.Infof("Loaded configuration: \n %s \n", maskSecrets(string(out)))
}

func maskSecrets(dump string) string {
	lines := strings.Split(dump, "\n")
	for i, line := range lines {
		if strings.Contains(line, "://") {
			lines[i] = replaceDBPassword(line)
		}
	}
	return strings.Join(lines, "\n")
}

var passwordRe = regexp.MustCompile(`^(?P<start>.*)(:(?P<pass>[^@\/:?]+)@)(?P<end>.*)$`)

func replaceDBPassword(url string) string {
	var result []byte
	if passwordRe.MatchString(url) {
		for _, submatches := range passwordRe.FindAllStringSubmatchIndex(url, -1) {
			result = passwordRe.ExpandString(result, `$start:<masked>@$end`, url, submatches)
		}
		return string(result)
	}
	return url
}
