// Package survival produces seeded synthetic survival curves for a cohort.
//
// The model is a deliberate approximation for exploration: event times are
// drawn from an exponential distribution whose scale, together with the event
// probability, comes from a per-stratum parameter table. It is not a clinical
// time-to-event analysis.
package survival

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/metrics"
)

// Key is a stratification dimension
type Key string

const (
	KeyIntervention Key = "intervention"
	KeyProtocol     Key = "protocol"
	KeyGene         Key = "gene"
	KeySex          Key = "sex"
)

// Keys lists the supported stratification keys
var Keys = []Key{KeyIntervention, KeyProtocol, KeyGene, KeySex}

// ParseKey validates a stratification key
func ParseKey(value string) (Key, error) {
	for _, k := range Keys {
		if string(k) == value {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownStratification, value)
}

// Curve is the fitted step function of one stratum
type Curve struct {
	Stratum  string   `json:"stratum"`
	Label    string   `json:"label"`
	Patients int      `json:"patients"`
	Events   int      `json:"events"`
	Params   Params   `json:"params"`
	Points   []Point  `json:"points"`
	Median   *float64 `json:"median_survival,omitempty"`
}

// Estimate is the set of curves for one cohort and key
type Estimate struct {
	Key    Key     `json:"key"`
	Seed   uint64  `json:"seed"`
	Curves []Curve `json:"curves"`
}

// Estimator stratifies cohorts and fits curves
type Estimator struct {
	table *Table
	index *clinical.Index
}

// NewEstimator creates an estimator; index answers intervention and protocol lookups
func NewEstimator(table *Table, index *clinical.Index) *Estimator {
	if table == nil {
		table = DefaultTable()
	}
	return &Estimator{table: table, index: index}
}

// Table returns the parameter table in use
func (e *Estimator) Table() *Table { return e.table }

// stratum is one value of the key with its member patients ordered by MRN
type stratum struct {
	value   string
	lookup  string
	members []int64
	weight  int
}

// Estimate fits one curve per stratum. A single generator seeded once per
// call is shared across strata in order, so identical inputs give identical curves.
func (e *Estimator) Estimate(patients []domain.Patient, rows []domain.Row, key Key) (*Estimate, error) {
	strata, err := e.stratify(patients, rows, key)
	if err != nil {
		return nil, err
	}
	metrics.SurvivalFits.WithLabelValues(string(key)).Inc()

	rng := rand.New(rand.NewPCG(e.table.Seed, e.table.Seed))
	est := &Estimate{Key: key, Seed: e.table.Seed, Curves: make([]Curve, 0, len(strata))}

	for _, s := range strata {
		params := e.table.Lookup(key, s.lookup)
		times := make([]float64, len(s.members))
		events := make([]bool, len(s.members))
		for i := range s.members {
			times[i] = rng.ExpFloat64() * params.Scale
		}
		nEvents := 0
		for i := range s.members {
			events[i] = rng.Float64() < params.EventProbability
			if events[i] {
				nEvents++
			}
		}

		points, median := KaplanMeier(times, events)
		est.Curves = append(est.Curves, Curve{
			Stratum:  s.value,
			Label:    fmt.Sprintf("%s (n=%d)", s.value, len(s.members)),
			Patients: len(s.members),
			Events:   nEvents,
			Params:   params,
			Points:   points,
			Median:   median,
		})
	}
	return est, nil
}

func (e *Estimator) stratify(patients []domain.Patient, rows []domain.Row, key Key) ([]stratum, error) {
	groups := make(map[string]*stratum)
	add := func(value, lookup string, mrn int64, weight int) {
		s, ok := groups[value]
		if !ok {
			s = &stratum{value: value, lookup: lookup}
			groups[value] = s
		}
		if n := len(s.members); n == 0 || s.members[n-1] != mrn {
			s.members = append(s.members, mrn)
		}
		s.weight += weight
	}

	sorted := append([]domain.Patient(nil), patients...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MRN < sorted[j].MRN })

	switch key {
	case KeySex:
		for _, p := range sorted {
			add(string(p.Sex), string(p.Sex), p.MRN, 1)
		}
	case KeyIntervention:
		for _, p := range sorted {
			for _, category := range e.index.PatientCategories(p.MRN) {
				add(category, category, p.MRN, 1)
			}
		}
	case KeyProtocol:
		for _, p := range sorted {
			for _, id := range e.index.PatientProtocols(p.MRN) {
				phase := ""
				if proto, ok := e.index.Protocol(id); ok {
					phase = proto.Phase
				}
				add(id, phase, p.MRN, 1)
			}
		}
	case KeyGene:
		inCohort := make(map[int64]bool, len(sorted))
		for _, p := range sorted {
			inCohort[p.MRN] = true
		}
		byGene := make(map[string]map[int64]bool)
		variants := make(map[string]int)
		for _, r := range rows {
			if !inCohort[r.MRN] {
				continue
			}
			if byGene[r.Gene] == nil {
				byGene[r.Gene] = make(map[int64]bool)
			}
			byGene[r.Gene][r.MRN] = true
			variants[r.Gene]++
		}
		for _, p := range sorted {
			for gene, members := range byGene {
				if members[p.MRN] {
					add(gene, gene, p.MRN, 0)
				}
			}
		}
		for gene, n := range variants {
			groups[gene].weight = n
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownStratification, key)
	}

	out := make([]stratum, 0, len(groups))
	for _, s := range groups {
		if len(s.members) > 0 {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if key == KeySex {
			return sexOrder(out[i].value) < sexOrder(out[j].value)
		}
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return out[i].value < out[j].value
	})
	if len(out) > e.table.MaxStrata {
		out = out[:e.table.MaxStrata]
	}
	return out, nil
}

// sexOrder places sex strata in display order, male first
func sexOrder(value string) int {
	for i, sex := range domain.AllSexes {
		if string(sex) == value {
			return i
		}
	}
	return len(domain.AllSexes)
}
