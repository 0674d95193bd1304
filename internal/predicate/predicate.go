// Package predicate models the filter controls of the cohort explorer.
//
// Every control has a declared default. A control holding its default is
// inactive and contributes no constraint to either store. A multi-select
// that has been emptied (non-nil, zero choices) is active and matches nothing.
package predicate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/pkg/genes"
)

// Field names one filter control
type Field string

const (
	FieldSex          Field = "sex"
	FieldAge          Field = "age"
	FieldGene         Field = "gene"
	FieldAssessment   Field = "assessment"
	FieldProtocol     Field = "protocol"
	FieldIntervention Field = "intervention"
	FieldAEGrade      Field = "ae_grade"
)

// Fields lists every control in canonical order
var Fields = []Field{
	FieldSex, FieldAge, FieldGene, FieldAssessment,
	FieldProtocol, FieldIntervention, FieldAEGrade,
}

// Relationship reports whether the field is only answerable by graph traversal.
func (f Field) Relationship() bool {
	return f == FieldProtocol || f == FieldIntervention || f == FieldAEGrade
}

// Column returns the joined-table column a tabular field reads, or "" for relationship fields.
func (f Field) Column() string {
	switch f {
	case FieldSex:
		return "sex"
	case FieldAge:
		return "age"
	case FieldGene:
		return "gene"
	case FieldAssessment:
		return "assessment"
	}
	return ""
}

// All is the single-select value meaning "no restriction"
const All = "All"

// Default age bounds of the age slider
const (
	DefaultAgeMin = 18
	DefaultAgeMax = 85
)

// Choice is a single-select control defaulting to All
type Choice string

// IsActive reports whether a specific value is selected
func (c Choice) IsActive() bool {
	return c != "" && c != All
}

// Matches reports whether value satisfies the control
func (c Choice) Matches(value string) bool {
	return !c.IsActive() || string(c) == value
}

// AgeRange is the inclusive age slider
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultAge is the slider's initial range
var DefaultAge = AgeRange{Min: DefaultAgeMin, Max: DefaultAgeMax}

// Contains reports whether age lies within the range
func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// Sexes is the sex multi-select; nil means unset
type Sexes []domain.Sex

// IsActive reports whether the selection differs from both sexes
func (s Sexes) IsActive() bool {
	if s == nil {
		return false
	}
	return !sameMembers(toStrings(s), toStrings(Sexes(domain.AllSexes)))
}

// Matches reports whether sex satisfies the control
func (s Sexes) Matches(sex domain.Sex) bool {
	if !s.IsActive() {
		return true
	}
	for _, v := range s {
		if v == sex {
			return true
		}
	}
	return false
}

// Assessments is the assessment multi-select; nil means unset
type Assessments []domain.Assessment

// IsActive reports whether fewer than all five assessments are selected
func (a Assessments) IsActive() bool {
	if a == nil {
		return false
	}
	return !sameMembers(toStrings(a), toStrings(Assessments(domain.AllAssessments)))
}

// Matches reports whether assessment satisfies the control
func (a Assessments) Matches(assessment domain.Assessment) bool {
	if !a.IsActive() {
		return true
	}
	for _, v := range a {
		if v == assessment {
			return true
		}
	}
	return false
}

// Grades is the adverse-event grade multi-select; nil means unset
type Grades []int

// AllGrades lists every adverse-event grade
var AllGrades = Grades{1, 2, 3, 4, 5}

// IsActive reports whether fewer than all grades are selected
func (g Grades) IsActive() bool {
	if g == nil {
		return false
	}
	return !sameMembers(toStrings(g), toStrings(AllGrades))
}

// Matches reports whether grade satisfies the control
func (g Grades) Matches(grade int) bool {
	if !g.IsActive() {
		return true
	}
	for _, v := range g {
		if v == grade {
			return true
		}
	}
	return false
}

// Set is one snapshot of every filter control
type Set struct {
	Sex          Sexes       `json:"sex"`
	Age          *AgeRange   `json:"age,omitempty"`
	Gene         Choice      `json:"gene,omitempty"`
	Assessment   Assessments `json:"assessment"`
	Protocol     Choice      `json:"protocol,omitempty"`
	Intervention Choice      `json:"intervention,omitempty"`
	AEGrade      Grades      `json:"ae_grade"`
}

// Default returns the snapshot the explorer starts with: every control at its default.
func Default() Set {
	age := DefaultAge
	return Set{
		Sex:          append(Sexes{}, domain.AllSexes...),
		Age:          &age,
		Gene:         All,
		Assessment:   append(Assessments{}, domain.AllAssessments...),
		Protocol:     All,
		Intervention: All,
		AEGrade:      append(Grades{}, AllGrades...),
	}
}

// WithSex returns a copy selecting the given sexes
func (s Set) WithSex(values ...domain.Sex) Set {
	s.Sex = append(Sexes{}, values...)
	return s
}

// WithAge returns a copy with the given inclusive age range
func (s Set) WithAge(lo, hi int) Set {
	s.Age = &AgeRange{Min: lo, Max: hi}
	return s
}

// WithGene returns a copy selecting one gene
func (s Set) WithGene(gene string) Set {
	s.Gene = Choice(gene)
	return s
}

// WithAssessments returns a copy selecting the given assessments
func (s Set) WithAssessments(values ...domain.Assessment) Set {
	s.Assessment = append(Assessments{}, values...)
	return s
}

// WithProtocol returns a copy selecting one protocol
func (s Set) WithProtocol(protocolID string) Set {
	s.Protocol = Choice(protocolID)
	return s
}

// WithIntervention returns a copy selecting one intervention category
func (s Set) WithIntervention(category string) Set {
	s.Intervention = Choice(category)
	return s
}

// WithGrades returns a copy selecting the given adverse-event grades
func (s Set) WithGrades(values ...int) Set {
	s.AEGrade = append(Grades{}, values...)
	return s
}

// WithMinGrade returns a copy selecting grade >= lowest
func (s Set) WithMinGrade(lowest int) Set {
	grades := Grades{}
	for g := lowest; g <= domain.MaxGrade; g++ {
		if g >= domain.MinGrade {
			grades = append(grades, g)
		}
	}
	s.AEGrade = grades
	return s
}

// AgeActive reports whether the age range differs from the default
func (s Set) AgeActive() bool {
	return s.Age != nil && *s.Age != DefaultAge
}

// IsActive reports whether a single control differs from its default
func (s Set) IsActive(f Field) bool {
	switch f {
	case FieldSex:
		return s.Sex.IsActive()
	case FieldAge:
		return s.AgeActive()
	case FieldGene:
		return s.Gene.IsActive()
	case FieldAssessment:
		return s.Assessment.IsActive()
	case FieldProtocol:
		return s.Protocol.IsActive()
	case FieldIntervention:
		return s.Intervention.IsActive()
	case FieldAEGrade:
		return s.AEGrade.IsActive()
	}
	return false
}

// Active lists active controls in canonical order
func (s Set) Active() []Field {
	var out []Field
	for _, f := range Fields {
		if s.IsActive(f) {
			out = append(out, f)
		}
	}
	return out
}

// ActiveRelationships lists the active controls that need graph traversal
func (s Set) ActiveRelationships() []Field {
	var out []Field
	for _, f := range s.Active() {
		if f.Relationship() {
			out = append(out, f)
		}
	}
	return out
}

// Validate rejects malformed control values
func (s Set) Validate() error {
	for _, v := range s.Sex {
		if v != domain.SexMale && v != domain.SexFemale {
			return domain.NewValidationError(string(FieldSex), "unknown sex value", v)
		}
	}
	if s.Age != nil {
		if s.Age.Min < 0 || s.Age.Max < 0 {
			return domain.NewValidationError(string(FieldAge), "age bounds must not be negative", *s.Age)
		}
		if s.Age.Min > s.Age.Max {
			return domain.NewValidationError(string(FieldAge), "min must not exceed max", *s.Age)
		}
	}
	if s.Gene.IsActive() {
		if err := genes.ValidateSymbol(string(s.Gene)); err != nil {
			return err
		}
	}
	for _, v := range s.Assessment {
		if v.Severity() == 0 {
			return domain.NewValidationError(string(FieldAssessment), "unknown assessment value", v)
		}
	}
	for _, g := range s.AEGrade {
		if g < domain.MinGrade || g > domain.MaxGrade {
			return domain.NewValidationError(string(FieldAEGrade),
				fmt.Sprintf("grade must be between %d and %d", domain.MinGrade, domain.MaxGrade), g)
		}
	}
	return nil
}

// Key canonically identifies the snapshot; inactive controls are omitted.
func (s Set) Key() string {
	return s.key(Fields)
}

// TabularKey identifies the tabular sub-snapshot
func (s Set) TabularKey() string {
	var fields []Field
	for _, f := range Fields {
		if !f.Relationship() {
			fields = append(fields, f)
		}
	}
	return s.key(fields)
}

// GraphKey identifies the relationship sub-snapshot
func (s Set) GraphKey() string {
	var fields []Field
	for _, f := range Fields {
		if f.Relationship() {
			fields = append(fields, f)
		}
	}
	return s.key(fields)
}

func (s Set) key(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if !s.IsActive(f) {
			continue
		}
		parts = append(parts, string(f)+"="+s.valueString(f))
	}
	return strings.Join(parts, ";")
}

func (s Set) valueString(f Field) string {
	switch f {
	case FieldSex:
		return joinSorted(toStrings(s.Sex))
	case FieldAge:
		return fmt.Sprintf("%d-%d", s.Age.Min, s.Age.Max)
	case FieldGene:
		return string(s.Gene)
	case FieldAssessment:
		return joinSorted(toStrings(s.Assessment))
	case FieldProtocol:
		return string(s.Protocol)
	case FieldIntervention:
		return string(s.Intervention)
	case FieldAEGrade:
		return joinSorted(toStrings(s.AEGrade))
	}
	return ""
}

func toStrings[T ~string | ~int](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func sameMembers(a, b []string) bool {
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	if len(seen) != len(b) {
		return false
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

func joinSorted(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return "[" + strings.Join(out, ",") + "]"
}
