package survival

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// Params shape the synthetic event-time draw of one stratum
type Params struct {
	Scale            float64 `yaml:"scale" json:"scale"`
	EventProbability float64 `yaml:"event_probability" json:"event_probability"`
}

// KeyParams holds per-value parameters for one stratification key
type KeyParams struct {
	Default Params            `yaml:"default"`
	Values  map[string]Params `yaml:"values"`
}

// Table is the externalized parameter table. Protocol values are looked up by phase.
type Table struct {
	Seed         uint64    `yaml:"seed"`
	MaxStrata    int       `yaml:"max_strata"`
	Intervention KeyParams `yaml:"intervention"`
	Protocol     KeyParams `yaml:"protocol"`
	Gene         KeyParams `yaml:"gene"`
	Sex          KeyParams `yaml:"sex"`
}

// Defaults of the synthetic model
const (
	DefaultSeed      = 42
	DefaultMaxStrata = 4
)

// DefaultTable returns the built-in qualitative risk assumptions
func DefaultTable() *Table {
	return &Table{
		Seed:      DefaultSeed,
		MaxStrata: DefaultMaxStrata,
		Intervention: KeyParams{
			Default: Params{Scale: 350, EventProbability: 0.75},
			Values: map[string]Params{
				"Immunotherapy":    {Scale: 500, EventProbability: 0.6},
				"Chemotherapy":     {Scale: 400, EventProbability: 0.7},
				"Targeted Therapy": {Scale: 450, EventProbability: 0.65},
			},
		},
		Protocol: KeyParams{
			Default: Params{Scale: 300, EventProbability: 0.8},
			Values: map[string]Params{
				"Phase III": {Scale: 500, EventProbability: 0.6},
				"Phase II":  {Scale: 400, EventProbability: 0.7},
			},
		},
		Gene: KeyParams{
			Default: Params{Scale: 450, EventProbability: 0.65},
			Values: map[string]Params{
				"TP53":  {Scale: 350, EventProbability: 0.75},
				"KRAS":  {Scale: 350, EventProbability: 0.75},
				"BRCA1": {Scale: 500, EventProbability: 0.6},
				"BRCA2": {Scale: 500, EventProbability: 0.6},
			},
		},
		Sex: KeyParams{
			Default: Params{Scale: 420, EventProbability: 0.7},
			Values: map[string]Params{
				string(domain.SexFemale): {Scale: 480, EventProbability: 0.65},
				string(domain.SexMale):   {Scale: 420, EventProbability: 0.7},
			},
		},
	}
}

// LoadTable reads a YAML table from path. Keys absent from the file keep
// their built-in values; values listed in the file extend or replace them.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading survival parameters: %w", err)
	}

	var overlay Table
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, domain.NewConfigurationError("survival", fmt.Sprintf("parsing %s: %v", path, err))
	}

	table := DefaultTable()
	if overlay.Seed != 0 {
		table.Seed = overlay.Seed
	}
	if overlay.MaxStrata != 0 {
		table.MaxStrata = overlay.MaxStrata
	}
	merge(&table.Intervention, overlay.Intervention)
	merge(&table.Protocol, overlay.Protocol)
	merge(&table.Gene, overlay.Gene)
	merge(&table.Sex, overlay.Sex)

	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func merge(dst *KeyParams, src KeyParams) {
	if src.Default != (Params{}) {
		dst.Default = src.Default
	}
	for value, p := range src.Values {
		if dst.Values == nil {
			dst.Values = make(map[string]Params)
		}
		dst.Values[value] = p
	}
}

// Validate rejects non-positive scales and probabilities outside [0,1]
func (t *Table) Validate() error {
	if t.MaxStrata <= 0 {
		return domain.NewConfigurationError("survival", "max_strata must be positive")
	}
	for key, kp := range map[Key]KeyParams{
		KeyIntervention: t.Intervention, KeyProtocol: t.Protocol, KeyGene: t.Gene, KeySex: t.Sex,
	} {
		if err := validateParams(key, "default", kp.Default); err != nil {
			return err
		}
		for value, p := range kp.Values {
			if err := validateParams(key, value, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateParams(key Key, value string, p Params) error {
	if p.Scale <= 0 {
		return domain.NewConfigurationError("survival", fmt.Sprintf("%s/%s: scale must be positive", key, value))
	}
	if p.EventProbability < 0 || p.EventProbability > 1 {
		return domain.NewConfigurationError("survival", fmt.Sprintf("%s/%s: event_probability must be within [0,1]", key, value))
	}
	return nil
}

// Lookup returns the parameters for a stratum value, falling back to the key default
func (t *Table) Lookup(key Key, value string) Params {
	var kp KeyParams
	switch key {
	case KeyIntervention:
		kp = t.Intervention
	case KeyProtocol:
		kp = t.Protocol
	case KeyGene:
		kp = t.Gene
	case KeySex:
		kp = t.Sex
	}
	if p, ok := kp.Values[value]; ok {
		return p
	}
	return kp.Default
}
