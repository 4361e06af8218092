package score

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Weights holds the component weights and penalty/bonus tiers of the
// confidence model. Hoisted into config so they are tunable and testable
// without touching the scoring code.
type Weights struct {
	Name        float64 `yaml:"name" mapstructure:"name"`
	Institution float64 `yaml:"institution" mapstructure:"institution"`

	// Initials downgrades, applied when the candidate name abbreviates
	// the first name.
	InitialsWithFirst float64 `yaml:"initials_with_first" mapstructure:"initials_with_first"`
	InitialsLastOnly  float64 `yaml:"initials_last_only" mapstructure:"initials_last_only"`
	InitialsNoMatch   float64 `yaml:"initials_no_match" mapstructure:"initials_no_match"`

	// Field signals.
	WrongFieldHeavy    float64 `yaml:"wrong_field_heavy" mapstructure:"wrong_field_heavy"`
	WrongFieldModerate float64 `yaml:"wrong_field_moderate" mapstructure:"wrong_field_moderate"`
	FieldStrong        float64 `yaml:"field_strong" mapstructure:"field_strong"`
	FieldGood          float64 `yaml:"field_good" mapstructure:"field_good"`
	FieldWeak          float64 `yaml:"field_weak" mapstructure:"field_weak"`
	FieldAbsent        float64 `yaml:"field_absent" mapstructure:"field_absent"`
}

// KeywordCategory is a named set of keywords signalling a wrong field.
// Categories are checked in declaration order: the first one reaching two
// hits sets the heavy penalty and stops further checking.
type KeywordCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Keywords holds the field-of-study keyword sets.
type Keywords struct {
	// Field matches the keywords of the target field family.
	Field []string `yaml:"field"`
	// WrongField lists negative-signal categories in check order.
	WrongField []KeywordCategory `yaml:"wrong_field"`
	// FieldFamilies are the substrings a target field description must
	// contain for the field bonus to apply at all.
	FieldFamilies []string `yaml:"field_families"`
}

// Config is the full scorer configuration.
type Config struct {
	Weights  Weights  `yaml:"weights"`
	Keywords Keywords `yaml:"keywords"`
}

// DefaultConfig returns the scoring model tuned for computing-related
// subjects.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Name:               0.4,
			Institution:        0.2,
			InitialsWithFirst:  0.6,
			InitialsLastOnly:   0.4,
			InitialsNoMatch:    0.2,
			WrongFieldHeavy:    0.6,
			WrongFieldModerate: 0.3,
			FieldStrong:        0.4,
			FieldGood:          0.3,
			FieldWeak:          0.2,
			FieldAbsent:        0.2,
		},
		Keywords: Keywords{
			FieldFamilies: []string{"computer", "software", "modeling"},
			Field: []string{
				"computer", "software", "algorithm", "programming", "code",
				"computation", "computational", "simulation", "modeling", "model",
				"machine learning", "artificial intelligence", "ai", "neural",
				"database", "network", "internet", "web", "digital",
				"embedded", "microcontroller", "iot", "automation",
				"graphics", "rendering", "3d", "visualization", "image processing",
				"docker", "container", "cloud", "distributed", "parallel",
				"data structure", "optimization", "heuristic", "cellular automata",
				"finite element", "numerical", "mesh", "solver",
			},
			WrongField: []KeywordCategory{
				{Name: "civil_engineering", Keywords: []string{
					"gabion", "tunel", "most", "wykop", "zabudowa", "bridge", "tunnel",
					"construction", "concrete", "steel structure", "foundation",
				}},
				{Name: "medicine", Keywords: []string{
					"patient", "clinical", "disease", "therapy", "diagnosis",
					"hospital", "medical", "health", "drug", "pharmaceutical",
				}},
				{Name: "pure_biology", Keywords: []string{
					"gene", "protein", "dna", "molecular biology", "cell culture",
					"organism", "species", "evolution", "ecological",
				}},
				{Name: "chemistry", Keywords: []string{
					"synthesis", "molecule", "chemical reaction", "compound",
					"titration", "spectroscopy", "organic chemistry",
				}},
			},
		},
	}
}

// LoadKeywords replaces the keyword sets from a YAML file. Missing sections
// keep their defaults.
func (c *Config) LoadKeywords(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "score: read keywords file %s", path)
	}
	var kw Keywords
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return eris.Wrap(err, "score: unmarshal keywords")
	}
	if len(kw.Field) > 0 {
		c.Keywords.Field = kw.Field
	}
	if len(kw.WrongField) > 0 {
		c.Keywords.WrongField = kw.WrongField
	}
	if len(kw.FieldFamilies) > 0 {
		c.Keywords.FieldFamilies = kw.FieldFamilies
	}
	return nil
}
