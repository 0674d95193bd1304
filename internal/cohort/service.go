package cohort

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/aggregate"
	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
	"github.com/tso500-cohort-explorer/pkg/genes"
)

// View bounds applied when the configuration leaves them unset
const (
	DefaultOncoprintGenes   = 8
	DefaultOncoprintSamples = 10
	DefaultTopGenes         = 10
	DefaultHistogramBins    = 20
)

// Views are the chart-ready aggregates of one cohort
type Views struct {
	Summary      aggregate.Summary      `json:"summary"`
	Assessments  []aggregate.Count      `json:"assessments"`
	TopGenes     []aggregate.Count      `json:"top_genes"`
	Histogram    []aggregate.Bin        `json:"allele_fraction_histogram"`
	Oncoprint    aggregate.Oncoprint    `json:"oncoprint"`
	Demographics aggregate.Demographics `json:"demographics"`
	Clinical     aggregate.Clinical     `json:"clinical"`
}

// Dashboard is every view of a snapshot plus its survival curves
type Dashboard struct {
	Cohort   *Result            `json:"cohort"`
	Views    Views              `json:"views"`
	Survival *survival.Estimate `json:"survival"`
}

// Options lists the values the filter controls can take
type Options struct {
	Genes         []string            `json:"genes"`
	Protocols     []domain.Protocol   `json:"protocols"`
	Interventions []string            `json:"interventions"`
	Grades        []int               `json:"ae_grades"`
	Sexes         []domain.Sex        `json:"sexes"`
	Assessments   []domain.Assessment `json:"assessments"`
	AgeMin        int                 `json:"age_min"`
	AgeMax        int                 `json:"age_max"`
	Strata        []survival.Key      `json:"stratification_keys"`
	Defaults      predicate.Set       `json:"defaults"`
}

// Service answers cohort, view and survival requests over one loaded dataset
type Service struct {
	resolver  *Resolver
	index     *clinical.Index
	estimator *survival.Estimator
	config    domain.CohortConfig
	logger    *logrus.Logger
}

// NewService creates a cohort service
func NewService(resolver *Resolver, index *clinical.Index, estimator *survival.Estimator, config domain.CohortConfig, logger *logrus.Logger) *Service {
	if config.OncoprintGenes <= 0 {
		config.OncoprintGenes = DefaultOncoprintGenes
	}
	if config.OncoprintSamples <= 0 {
		config.OncoprintSamples = DefaultOncoprintSamples
	}
	if config.TopGenes <= 0 {
		config.TopGenes = DefaultTopGenes
	}
	if config.HistogramBins <= 0 {
		config.HistogramBins = DefaultHistogramBins
	}
	if config.BodySystems <= 0 {
		config.BodySystems = aggregate.DefaultBodySystems
	}
	return &Service{
		resolver:  resolver,
		index:     index,
		estimator: estimator,
		config:    config,
		logger:    logger,
	}
}

// Resolve returns the cohort of a snapshot
func (s *Service) Resolve(ctx context.Context, set predicate.Set) (*Result, error) {
	return s.resolver.Resolve(ctx, set)
}

// Views resolves a snapshot and builds its aggregate views
func (s *Service) Views(ctx context.Context, set predicate.Set) (*Result, *Views, error) {
	res, err := s.resolver.Resolve(ctx, set)
	if err != nil {
		return nil, nil, err
	}
	views := s.buildViews(res)
	return res, &views, nil
}

// Survival resolves a snapshot and fits survival curves stratified by key
func (s *Service) Survival(ctx context.Context, set predicate.Set, key survival.Key) (*survival.Estimate, error) {
	if _, err := survival.ParseKey(string(key)); err != nil {
		return nil, err
	}
	res, err := s.resolver.Resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	return s.estimator.Estimate(s.patients(res), res.Rows, key)
}

// Dashboard resolves once and derives every view and the survival curves
func (s *Service) Dashboard(ctx context.Context, set predicate.Set, key survival.Key) (*Dashboard, error) {
	if _, err := survival.ParseKey(string(key)); err != nil {
		return nil, err
	}
	res, err := s.resolver.Resolve(ctx, set)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	est, err := s.estimator.Estimate(s.patients(res), res.Rows, key)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Cohort: res, Views: s.buildViews(res), Survival: est}, nil
}

// Options reports the selectable values of every control
func (s *Service) Options() Options {
	table := s.resolver.Table()
	lo, hi := table.AgeBounds()
	return Options{
		Genes:         selectableGenes(table.Genes()),
		Protocols:     s.index.Protocols(),
		Interventions: s.index.InterventionCategories(),
		Grades:        append([]int(nil), predicate.AllGrades...),
		Sexes:         domain.AllSexes,
		Assessments:   domain.AllAssessments,
		AgeMin:        lo,
		AgeMax:        hi,
		Strata:        survival.Keys,
		Defaults:      predicate.Default(),
	}
}

func (s *Service) buildViews(res *Result) Views {
	return Views{
		Summary:      aggregate.Summarize(res.Rows),
		Assessments:  aggregate.CountAssessments(res.Rows),
		TopGenes:     aggregate.TopGenes(res.Rows, s.config.TopGenes),
		Histogram:    aggregate.AlleleFractionHistogram(res.Rows, s.config.HistogramBins),
		Oncoprint:    aggregate.BuildOncoprint(res.Rows, s.config.OncoprintGenes, s.config.OncoprintSamples),
		Demographics: aggregate.BuildDemographics(s.patients(res)),
		Clinical:     aggregate.BuildClinical(s.index, res.Patients, s.config.BodySystems),
	}
}

func (s *Service) patients(res *Result) []domain.Patient {
	table := s.resolver.Table()
	out := make([]domain.Patient, 0, len(res.Patients))
	for _, mrn := range res.Patients {
		if p, ok := table.Patient(mrn); ok {
			out = append(out, p)
		}
	}
	return out
}

// selectableGenes keeps the loaded genes the gene control accepts
func selectableGenes(loaded []string) []string {
	out := make([]string, 0, len(loaded))
	for _, g := range loaded {
		if genes.ValidateSymbol(g) == nil {
			out = append(out, g)
		}
	}
	return out
}
