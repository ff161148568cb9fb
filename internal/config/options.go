package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Options is the full configuration surface consumed by the pipeline.
// It is loaded once at startup and passed down by value; no component
// reads process-wide configuration state.
type Options struct {
	Source string `mapstructure:"source" validate:"required"`
	Update string `mapstructure:"update"`
	Output string `mapstructure:"output" validate:"required"`

	VCFVersion         string `mapstructure:"vcf_version" validate:"oneof=2.1 3.0"`
	MinDigits          int    `mapstructure:"min_digits" validate:"min=1"`
	AllowInternational bool   `mapstructure:"allow_international"`
	DefaultRegion      string `mapstructure:"default_region" validate:"omitempty,len=2"`

	PreferUpdateFor []string `mapstructure:"prefer_update_for"`
	PreferSourceFor []string `mapstructure:"prefer_source_for"`

	Dedupe           bool   `mapstructure:"dedupe"`
	Backup           bool   `mapstructure:"backup"`
	SplitOutput      bool   `mapstructure:"split_output"`
	SplitOutputDir   string `mapstructure:"split_output_dir"`
	BirthdayCalendar string `mapstructure:"birthday_calendar"`

	WebUser string `mapstructure:"web_user"`
	WebPass string `mapstructure:"web_pass"`
}

// Load reads the configuration file (YAML or JSON) and returns validated
// Options. An empty path falls back to ./vcfmerge.{yaml,json}.
func Load(path string) (Options, error) {
	v := viper.New()

	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyVCFVersion, DefaultVCFVersion)
	v.SetDefault(KeyMinDigits, DefaultMinDigits)
	v.SetDefault(KeyAllowIntl, true)
	v.SetDefault(KeyPreferUpdateFor, DefaultPreferUpdateFor)
	v.SetDefault(KeyPreferSourceFor, DefaultPreferSourceFor)
	v.SetDefault(KeyDedupe, true)
	v.SetDefault(KeyBackup, true)
	v.SetDefault(KeySplitOutput, false)
	v.SetDefault(KeySplitOutputDir, DefaultSplitDir)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; explicit paths must exist.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return Options{}, fmt.Errorf("%s: %w", ErrConfigLoad, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("%s: %w", ErrConfigLoad, err)
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks structural constraints and the precedence lists.
// It must reject the configuration before any contact is processed:
// running with undefined precedence semantics is not recoverable.
func (o Options) Validate() error {
	if err := validator.New().Struct(o); err != nil {
		return fmt.Errorf("%s: %w", ErrConfigInvalid, err)
	}

	valid := make(map[string]bool, len(MergeableFields))
	for _, f := range MergeableFields {
		valid[f] = true
	}

	seenUpdate := make(map[string]bool, len(o.PreferUpdateFor))
	for _, f := range o.PreferUpdateFor {
		name := strings.ToUpper(strings.TrimSpace(f))
		if !valid[name] {
			return fmt.Errorf("%s: %q", ErrPrecedenceField, f)
		}
		seenUpdate[name] = true
	}
	for _, f := range o.PreferSourceFor {
		name := strings.ToUpper(strings.TrimSpace(f))
		if !valid[name] {
			return fmt.Errorf("%s: %q", ErrPrecedenceField, f)
		}
		if seenUpdate[name] {
			return fmt.Errorf("%s: %q", ErrPrecedenceClash, name)
		}
	}
	return nil
}

// NormalizedPreferences returns the two precedence lists upper-cased,
// ready for the merger.
func (o Options) NormalizedPreferences() (preferUpdate, preferSource []string) {
	for _, f := range o.PreferUpdateFor {
		preferUpdate = append(preferUpdate, strings.ToUpper(strings.TrimSpace(f)))
	}
	for _, f := range o.PreferSourceFor {
		preferSource = append(preferSource, strings.ToUpper(strings.TrimSpace(f)))
	}
	return preferUpdate, preferSource
}
