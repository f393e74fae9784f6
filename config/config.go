// Package config loads and validates experiment files.
//
// An experiment file is YAML:
//
//	train_features: data/x_train.csv
//	train_labels: data/y_train.csv
//	test_features: data/x_test.csv
//	header: true
//	folds: 5
//	seed: 3
//	models:
//	  - name: glmnet
//	    kind: elasticnet
//	    grid:
//	      - {name: alpha, values: [0, 0.5, 1]}
//	      - {name: lambda, values: [1, 0.1, 0.01]}
package config

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/gridcv/core/model"
	"github.com/YuminosukeSato/gridcv/dataset"
	"github.com/YuminosukeSato/gridcv/pkg/errors"
	"github.com/YuminosukeSato/gridcv/sklearn/fitters"
	"github.com/YuminosukeSato/gridcv/sklearn/model_selection"
)

// Defaults applied to fields the file leaves unset.
const (
	DefaultFolds     = 5
	DefaultOutputDir = "results"
	DefaultDelimiter = ","
)

// Config is one experiment.
type Config struct {
	TrainFeatures string `yaml:"train_features" validate:"required"`
	TrainLabels   string `yaml:"train_labels" validate:"required"`
	TestFeatures  string `yaml:"test_features"`

	// Delimiter is a single character; "\t" selects tab-separated input.
	Delimiter string `yaml:"delimiter" validate:"required,len=1"`
	Header    bool   `yaml:"header"`

	OutputDir      string  `yaml:"output_dir" validate:"required"`
	Folds          int     `yaml:"folds" validate:"gte=2"`
	Seed           uint64  `yaml:"seed"`
	Workers        int     `yaml:"workers" validate:"gte=0"`
	AbortOnFailure bool    `yaml:"abort_on_failure"`
	Models         []Model `yaml:"models" validate:"required,min=1,unique=Name,dive"`
}

// Model is one model family with its hyper-parameter grid.
type Model struct {
	Name string      `yaml:"name" validate:"required,excludesall=/\\"`
	Kind string      `yaml:"kind" validate:"required,modelkind"`
	Grid []GridParam `yaml:"grid" validate:"required,min=1,dive"`
}

// GridParam lists the candidate values of one hyper-parameter.
type GridParam struct {
	Name   string        `yaml:"name" validate:"required"`
	Values []interface{} `yaml:"values" validate:"required,min=1"`
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("modelkind", func(fl validator.FieldLevel) bool {
		_, err := fitters.New(fl.Field().String())
		return err == nil
	})
}

// Default returns a Config holding only defaults.
func Default() *Config {
	return &Config{
		Delimiter: DefaultDelimiter,
		OutputDir: DefaultOutputDir,
		Folds:     DefaultFolds,
	}
}

// Load reads the experiment file at path. Relative data paths are resolved
// against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	base := filepath.Dir(path)
	cfg.TrainFeatures = resolve(base, cfg.TrainFeatures)
	cfg.TrainLabels = resolve(base, cfg.TrainLabels)
	cfg.TestFeatures = resolve(base, cfg.TestFeatures)
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.NewInvalidConfigurationErrorf("config.Parse", "decode: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and that every model's grid is
// well-formed and names only parameters its kind understands.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewInvalidConfigurationErrorf("config.Validate", "field %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return errors.NewInvalidConfigurationErrorf("config.Validate", "%v", err)
	}
	for _, m := range c.Models {
		if _, _, err := m.Build(); err != nil {
			return errors.Wrapf(err, "model %s", m.Name)
		}
	}
	return nil
}

// Build returns the model's fitter and its validated grid.
func (m Model) Build() (model.ModelFitter, *model_selection.Grid, error) {
	fitter, err := fitters.New(m.Kind)
	if err != nil {
		return nil, nil, err
	}
	params := make([]model_selection.GridParam, len(m.Grid))
	for i, p := range m.Grid {
		params[i] = model_selection.GridParam{Name: p.Name, Values: p.Values}
	}
	grid, err := model_selection.NewGrid(params...)
	if err != nil {
		return nil, nil, err
	}
	if err := grid.ValidateFor(fitter); err != nil {
		return nil, nil, err
	}
	return fitter, grid, nil
}

// DatasetOptions returns the table layout of the input files.
func (c *Config) DatasetOptions() dataset.Options {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return dataset.Options{Delimiter: r, Header: c.Header}
}
