// Package estimator loads the fitted price model and runs it.
//
// The artifact is produced by an external training job. It describes a
// one-hot encoder over the categorical features followed by a linear
// regressor, serialized as YAML or JSON:
//
//	kind: linear
//	intercept: -1.2e7
//	categorical:
//	  - feature: company
//	    categories: [Hyundai, Maruti]
//	    coefficients: [15000, -8000]
//	    handle_unknown: error
//	numeric:
//	  - feature: year_num
//	    coefficient: 6200
//	  - feature: kms_num
//	    coefficient: -0.9
package estimator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/stwalsh4118/carprice/internal/models"
	"gopkg.in/yaml.v3"
)

// Model is anything that can price a batch of feature rows, one price per row.
type Model interface {
	Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error)
}

// KindLinear is the only artifact kind understood today.
const KindLinear = "linear"

// Unknown category policies, named after the encoder option they mirror.
const (
	HandleUnknownError  = "error"
	HandleUnknownIgnore = "ignore"
)

var (
	// ErrArtifact marks an artifact that cannot be read or is inconsistent.
	ErrArtifact = errors.New("invalid model artifact")
	// ErrUnknownCategory is returned when a row carries a category the
	// encoder was not fitted on and the policy is "error".
	ErrUnknownCategory = errors.New("found unknown category")
	// ErrMissingValue is returned when a numeric feature is missing.
	ErrMissingValue = errors.New("input contains NaN")
)

// CategoricalFeature is a one-hot encoded column with one weight per category.
type CategoricalFeature struct {
	Feature       string    `yaml:"feature"`
	Categories    []string  `yaml:"categories"`
	Coefficients  []float64 `yaml:"coefficients"`
	HandleUnknown string    `yaml:"handle_unknown"`

	index map[string]int
}

// NumericFeature is a passthrough column with a single weight.
type NumericFeature struct {
	Feature     string  `yaml:"feature"`
	Coefficient float64 `yaml:"coefficient"`
}

// Pipeline is a fitted encoder plus linear regressor.
type Pipeline struct {
	Kind        string               `yaml:"kind"`
	Version     string               `yaml:"version"`
	Intercept   float64              `yaml:"intercept"`
	Categorical []CategoricalFeature `yaml:"categorical"`
	Numeric     []NumericFeature     `yaml:"numeric"`
}

// LoadArtifact reads and validates the artifact at path. YAML is a superset
// of JSON, so both encodings decode the same way.
func LoadArtifact(path string) (*Pipeline, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	return ParseArtifact(body)
}

// ParseArtifact decodes and validates an artifact document.
func ParseArtifact(body []byte) (*Pipeline, error) {
	var p Pipeline
	if err := yaml.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	if err := p.init(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifact, err)
	}
	return &p, nil
}

func (p *Pipeline) init() error {
	if p.Kind == "" {
		p.Kind = KindLinear
	}
	if p.Kind != KindLinear {
		return fmt.Errorf("unsupported kind %q", p.Kind)
	}

	seen := make(map[string]bool)
	for i := range p.Categorical {
		c := &p.Categorical[i]
		if !isCategoricalFeature(c.Feature) {
			return fmt.Errorf("feature %q cannot be categorical", c.Feature)
		}
		if seen[c.Feature] {
			return fmt.Errorf("feature %q declared twice", c.Feature)
		}
		seen[c.Feature] = true

		if len(c.Categories) != len(c.Coefficients) {
			return fmt.Errorf("feature %q has %d categories but %d coefficients",
				c.Feature, len(c.Categories), len(c.Coefficients))
		}
		switch c.HandleUnknown {
		case "":
			c.HandleUnknown = HandleUnknownError
		case HandleUnknownError, HandleUnknownIgnore:
		default:
			return fmt.Errorf("feature %q: unknown handle_unknown %q", c.Feature, c.HandleUnknown)
		}

		c.index = make(map[string]int, len(c.Categories))
		for j, cat := range c.Categories {
			if _, dup := c.index[cat]; dup {
				return fmt.Errorf("feature %q lists category %q twice", c.Feature, cat)
			}
			c.index[cat] = j
		}
	}

	for _, n := range p.Numeric {
		if !isNumericFeature(n.Feature) {
			return fmt.Errorf("feature %q cannot be numeric", n.Feature)
		}
		if seen[n.Feature] {
			return fmt.Errorf("feature %q declared twice", n.Feature)
		}
		seen[n.Feature] = true
	}

	for _, name := range models.PredictionColumns {
		if !seen[name] {
			return fmt.Errorf("feature %q is not declared", name)
		}
	}
	return nil
}

func isCategoricalFeature(name string) bool {
	return name == models.ColCompany || name == models.ColFuelType
}

func isNumericFeature(name string) bool {
	return name == models.ColYearNum || name == models.ColKmsNum
}

// Features lists the feature names in declaration order.
func (p *Pipeline) Features() []string {
	out := make([]string, 0, len(p.Categorical)+len(p.Numeric))
	for _, c := range p.Categorical {
		out = append(out, c.Feature)
	}
	for _, n := range p.Numeric {
		out = append(out, n.Feature)
	}
	return out
}

// Categories returns the categories the encoder was fitted on for feature.
func (p *Pipeline) Categories(feature string) []string {
	for _, c := range p.Categorical {
		if c.Feature == feature {
			return append([]string(nil), c.Categories...)
		}
	}
	return nil
}

// Predict prices every row. Any bad row fails the whole call.
func (p *Pipeline) Predict(ctx context.Context, rows []models.FeatureRow) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		y, err := p.predictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = y
	}
	return out, nil
}

func (p *Pipeline) predictRow(row models.FeatureRow) (float64, error) {
	y := p.Intercept

	for _, c := range p.Categorical {
		value := categoricalValue(row, c.Feature)
		j, ok := c.index[value]
		if !ok {
			if c.HandleUnknown == HandleUnknownIgnore {
				continue
			}
			return 0, fmt.Errorf("%w %q in feature %q during transform", ErrUnknownCategory, value, c.Feature)
		}
		y += c.Coefficients[j]
	}

	for _, n := range p.Numeric {
		x, ok := numericValue(row, n.Feature)
		if !ok {
			return 0, fmt.Errorf("%w: feature %q is missing", ErrMissingValue, n.Feature)
		}
		y += n.Coefficient * x
	}

	return y, nil
}

func categoricalValue(row models.FeatureRow, feature string) string {
	if feature == models.ColCompany {
		return row.Company
	}
	return row.FuelType
}

func numericValue(row models.FeatureRow, feature string) (float64, bool) {
	if feature == models.ColYearNum {
		return float64(row.YearNum.Int64), row.YearNum.Valid
	}
	return row.KmsNum.Float64, row.KmsNum.Valid
}
