// Package pipelinedef loads pipeline definitions from YAML files and builds
// engine pipelines from them.
package pipelinedef

import (
	"strings"

	"github.com/fraugster/rowstream/internal/logger"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override values of
// a definition file, e.g. ROWSTREAM_CAPTURE_DIR.
const EnvPrefix = "ROWSTREAM"

// Definition describes a pipeline and how to capture one of its steps.
type Definition struct {
	Name    string        `mapstructure:"name" validate:"required"`
	Steps   []StepDef     `mapstructure:"steps" validate:"required,min=1,dive"`
	Capture CaptureDef    `mapstructure:"capture"`
	Logging logger.Config `mapstructure:"logging"`
}

// StepDef describes one step. Which of the settings apply depends on Type.
type StepDef struct {
	Name   string `mapstructure:"name" validate:"required"`
	Type   string `mapstructure:"type" validate:"required,oneof=csv sql dummy intern"`
	Copies int    `mapstructure:"copies" validate:"gte=0"`

	Path      string     `mapstructure:"path" validate:"required_if=Type csv"`
	Delimiter string     `mapstructure:"delimiter"`
	Header    bool       `mapstructure:"header"`
	Lazy      bool       `mapstructure:"lazy"`
	Fields    []FieldDef `mapstructure:"fields" validate:"dive"`

	Driver string `mapstructure:"driver" validate:"required_if=Type sql"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Type sql"`
	Query  string `mapstructure:"query" validate:"required_if=Type sql"`

	Dictionaries []DictionaryDef `mapstructure:"dictionaries" validate:"required_if=Type intern,dive"`
}

// FieldDef declares a field of a CSV input.
type FieldDef struct {
	Name   string `mapstructure:"name" validate:"required"`
	Type   string `mapstructure:"type" validate:"required"`
	Format string `mapstructure:"format"`
}

// DictionaryDef is the dictionary of one interned field.
type DictionaryDef struct {
	Field  string   `mapstructure:"field" validate:"required"`
	Values []string `mapstructure:"values" validate:"required,min=1"`
}

// CaptureDef selects the captured step and where the stream goes.
type CaptureDef struct {
	Step        string `mapstructure:"step"`
	Dir         string `mapstructure:"dir"`
	Compression string `mapstructure:"compression" validate:"omitempty,oneof=none snappy gzip"`
}

// Load reads, defaults and validates the definition file at path. Values
// can be overridden by ROWSTREAM_* environment variables.
func Load(path string) (*Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("capture.compression", "none")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading pipeline definition %s failed", path)
	}

	def := &Definition{}
	if err := v.Unmarshal(def); err != nil {
		return nil, errors.Wrapf(err, "decoding pipeline definition %s failed", path)
	}

	def.applyDefaults()
	if err := def.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid pipeline definition %s", path)
	}
	return def, nil
}

func (d *Definition) applyDefaults() {
	for i := range d.Steps {
		if d.Steps[i].Copies == 0 {
			d.Steps[i].Copies = 1
		}
	}
	if d.Capture.Step == "" && len(d.Steps) > 0 {
		d.Capture.Step = d.Steps[len(d.Steps)-1].Name
	}
	d.Logging.ApplyDefaults()
}

// Validate checks the definition for missing or inconsistent settings.
func (d *Definition) Validate() error {
	if err := validator.New().Struct(d); err != nil {
		return err
	}
	if err := d.Logging.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Steps))
	for _, s := range d.Steps {
		if seen[s.Name] {
			return errors.Errorf("duplicate step name %q", s.Name)
		}
		seen[s.Name] = true
	}
	if d.Capture.Step != "" && !seen[d.Capture.Step] {
		return errors.Errorf("capture step %q is not defined", d.Capture.Step)
	}
	return nil
}
