package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
)

// Tool names
const (
	ToolResolveCohort  = "resolve_cohort"
	ToolCohortViews    = "cohort_views"
	ToolSurvivalCurves = "survival_curves"
	ToolFilterOptions  = "filter_options"
)

// ToolNames lists every registered tool
var ToolNames = []string{ToolResolveCohort, ToolCohortViews, ToolSurvivalCurves, ToolFilterOptions}

// FilterParams are the cohort filters accepted by the tools. An omitted
// filter keeps its default; an empty list selects nothing.
type FilterParams struct {
	Sex          []string `json:"sex,omitempty" jsonschema:"sexes to include: male, female"`
	AgeMin       *int     `json:"age_min,omitempty" jsonschema:"lowest age included (default 18)"`
	AgeMax       *int     `json:"age_max,omitempty" jsonschema:"highest age included (default 85)"`
	Gene         string   `json:"gene,omitempty" jsonschema:"HGNC gene symbol, or All"`
	Assessment   []string `json:"assessment,omitempty" jsonschema:"variant assessments to include, e.g. Pathogenic, VUS"`
	Protocol     string   `json:"protocol,omitempty" jsonschema:"protocol ID the patient is enrolled in, or All"`
	Intervention string   `json:"intervention,omitempty" jsonschema:"intervention category received under the enrollment, or All"`
	AEGrade      []int    `json:"ae_grade,omitempty" jsonschema:"adverse event grades (1-5) experienced under the enrollment"`
}

// CohortParams is the input of resolve_cohort and cohort_views
type CohortParams struct {
	Filters FilterParams `json:"filters,omitempty" jsonschema:"cohort filters"`
}

// SurvivalParams is the input of survival_curves
type SurvivalParams struct {
	Filters FilterParams `json:"filters,omitempty" jsonschema:"cohort filters"`
	Key     string       `json:"key,omitempty" jsonschema:"stratification key: intervention, protocol, gene or sex (default intervention)"`
}

// OptionsParams is the empty input of filter_options
type OptionsParams struct{}

// Set converts the parameters into a predicate snapshot
func (p FilterParams) Set() predicate.Set {
	set := predicate.Default()
	if p.Sex != nil {
		sexes := make([]domain.Sex, len(p.Sex))
		for i, v := range p.Sex {
			sexes[i] = domain.Sex(v)
		}
		set = set.WithSex(sexes...)
	}
	if p.AgeMin != nil || p.AgeMax != nil {
		lo, hi := predicate.DefaultAgeMin, predicate.DefaultAgeMax
		if p.AgeMin != nil {
			lo = *p.AgeMin
		}
		if p.AgeMax != nil {
			hi = *p.AgeMax
		}
		set = set.WithAge(lo, hi)
	}
	if p.Gene != "" {
		set = set.WithGene(p.Gene)
	}
	if p.Assessment != nil {
		assessments := make([]domain.Assessment, len(p.Assessment))
		for i, v := range p.Assessment {
			assessments[i] = domain.Assessment(v)
		}
		set = set.WithAssessments(assessments...)
	}
	if p.Protocol != "" {
		set = set.WithProtocol(p.Protocol)
	}
	if p.Intervention != "" {
		set = set.WithIntervention(p.Intervention)
	}
	if p.AEGrade != nil {
		set = set.WithGrades(p.AEGrade...)
	}
	return set
}

func (s *Server) handleResolveCohort(ctx context.Context, req *mcp.CallToolRequest, params CohortParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolResolveCohort).Info("Tool invoked")

	res, err := s.service.Resolve(ctx, params.Filters.Set())
	if err != nil {
		return s.createErrorResult("Cohort resolution failed", err), nil, nil
	}

	headline := fmt.Sprintf("Cohort resolved: %d patients", len(res.Patients))
	if res.Degraded {
		headline += fmt.Sprintf(" (%s: %v)", res.Warning, res.Unapplied)
	}
	return s.createResult(headline, res), nil, nil
}

func (s *Server) handleCohortViews(ctx context.Context, req *mcp.CallToolRequest, params CohortParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolCohortViews).Info("Tool invoked")

	res, views, err := s.service.Views(ctx, params.Filters.Set())
	if err != nil {
		return s.createErrorResult("Cohort views failed", err), nil, nil
	}

	headline := fmt.Sprintf("%d records across %d patients and %d genes",
		views.Summary.TotalRecords, views.Summary.UniquePatients, views.Summary.UniqueGenes)
	if res.Degraded {
		headline += " (" + res.Warning + ")"
	}
	return s.createResult(headline, map[string]any{"cohort": res, "views": views}), nil, nil
}

func (s *Server) handleSurvivalCurves(ctx context.Context, req *mcp.CallToolRequest, params SurvivalParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolSurvivalCurves).Info("Tool invoked")

	key := survival.KeyIntervention
	if params.Key != "" {
		parsed, err := survival.ParseKey(params.Key)
		if err != nil {
			return s.createErrorResult("Invalid stratification key", err), nil, nil
		}
		key = parsed
	}

	est, err := s.service.Survival(ctx, params.Filters.Set(), key)
	if err != nil {
		return s.createErrorResult("Survival estimation failed", err), nil, nil
	}
	return s.createResult(fmt.Sprintf("%d survival curves stratified by %s", len(est.Curves), est.Key), est), nil, nil
}

func (s *Server) handleFilterOptions(ctx context.Context, req *mcp.CallToolRequest, params OptionsParams) (*mcp.CallToolResult, any, error) {
	s.logger.WithField("tool", ToolFilterOptions).Info("Tool invoked")

	opts := s.service.Options()
	return s.createResult(fmt.Sprintf("%d genes, %d protocols, %d intervention categories",
		len(opts.Genes), len(opts.Protocols), len(opts.Interventions)), opts), nil, nil
}

// createResult renders a headline followed by the JSON payload
func (s *Server) createResult(headline string, payload any) *mcp.CallToolResult {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return s.createErrorResult("Failed to encode result", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: headline},
			&mcp.TextContent{Text: string(body)},
		},
	}
}

// createErrorResult creates a standardized error result for tool calls
func (s *Server) createErrorResult(message string, err error) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s", message)
	if err != nil {
		errorText += fmt.Sprintf(" - %v", err)
	}
	if err != nil && !domain.IsValidationError(err) && !errors.Is(err, domain.ErrUnknownStratification) {
		s.logger.WithError(err).Error(message)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: errorText},
		},
		IsError: true,
	}
}
