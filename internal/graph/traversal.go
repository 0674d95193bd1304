// Package graph evaluates relationship predicates against the property
// graph of patients, trial enrollments, interventions and adverse events.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

// Node labels and relationship types of the clinical graph
const (
	LabelPatient      = "Patient"
	LabelSubject      = "Clinical_Trial_Subject"
	LabelProtocol     = "Protocol"
	LabelIntervention = "Intervention"
	LabelAdverseEvent = "Adverse_Event"

	RelEnrolledIn     = "ENROLLED_IN"
	RelParticipatesIn = "PARTICIPATES_IN"
	RelReceives       = "RECEIVES"
	RelExperiences    = "EXPERIENCES"
)

// RequiredRelationships must exist in the store for traversals to be meaningful
var RequiredRelationships = []string{RelEnrolledIn, RelParticipatesIn, RelReceives, RelExperiences}

// Traversal is the conjunction of every active relationship predicate,
// evaluated as one multi-hop pattern anchored on a single enrollment.
// A nil slice leaves that dimension unconstrained; an empty non-nil slice matches nothing.
type Traversal struct {
	Sexes                []domain.Sex        `json:"sexes,omitempty"`
	Age                  *predicate.AgeRange `json:"age,omitempty"`
	ProtocolID           string              `json:"protocol_id,omitempty"`
	InterventionCategory string              `json:"intervention_category,omitempty"`
	Grades               []int               `json:"grades,omitempty"`
}

// NewTraversal composes the traversal for a snapshot. Sex and age join the
// pattern only when demographics is set and a relationship predicate is active.
func NewTraversal(set predicate.Set, demographics bool) Traversal {
	var t Traversal
	if set.Protocol.IsActive() {
		t.ProtocolID = string(set.Protocol)
	}
	if set.Intervention.IsActive() {
		t.InterventionCategory = string(set.Intervention)
	}
	if set.AEGrade.IsActive() {
		t.Grades = uniqueInts(set.AEGrade)
	}
	if demographics && t.HasRelationships() {
		if set.Sex.IsActive() {
			t.Sexes = uniqueSexes(set.Sex)
		}
		if set.AgeActive() {
			age := *set.Age
			t.Age = &age
		}
	}
	return t
}

// HasRelationships reports whether any relationship hop is constrained
func (t Traversal) HasRelationships() bool {
	return t.ProtocolID != "" || t.InterventionCategory != "" || t.Grades != nil
}

// Unsatisfiable reports whether an emptied selection rules out every patient
func (t Traversal) Unsatisfiable() bool {
	return (t.Grades != nil && len(t.Grades) == 0) || (t.Sexes != nil && len(t.Sexes) == 0)
}

// Key canonically identifies the traversal for caching
func (t Traversal) Key() string {
	var parts []string
	if t.Sexes != nil {
		parts = append(parts, fmt.Sprintf("sex=%v", t.Sexes))
	}
	if t.Age != nil {
		parts = append(parts, fmt.Sprintf("age=%d-%d", t.Age.Min, t.Age.Max))
	}
	if t.ProtocolID != "" {
		parts = append(parts, "protocol="+t.ProtocolID)
	}
	if t.InterventionCategory != "" {
		parts = append(parts, "intervention="+t.InterventionCategory)
	}
	if t.Grades != nil {
		parts = append(parts, fmt.Sprintf("grade=%v", t.Grades))
	}
	return strings.Join(parts, ";")
}

// Cypher renders the traversal as a single parameterised query returning distinct MRNs.
func (t Traversal) Cypher() (string, map[string]any) {
	params := map[string]any{}
	var b strings.Builder

	fmt.Fprintf(&b, "MATCH (p:%s)-[:%s]->(cts:%s)\n", LabelPatient, RelEnrolledIn, LabelSubject)

	var where []string
	if t.Sexes != nil {
		sexes := make([]string, len(t.Sexes))
		for i, s := range t.Sexes {
			sexes[i] = string(s)
		}
		params["sexes"] = sexes
		where = append(where, "p.sex IN $sexes")
	}
	if t.Age != nil {
		params["age_min"] = int64(t.Age.Min)
		params["age_max"] = int64(t.Age.Max)
		where = append(where, "p.age >= $age_min", "p.age <= $age_max")
	}
	if len(where) > 0 {
		b.WriteString("WHERE " + strings.Join(where, " AND ") + "\n")
	}

	if t.ProtocolID != "" {
		params["protocol_id"] = t.ProtocolID
		fmt.Fprintf(&b, "MATCH (cts)-[:%s]->(pr:%s {protocol_id: $protocol_id})\n", RelParticipatesIn, LabelProtocol)
	}
	if t.InterventionCategory != "" {
		params["intervention_category"] = t.InterventionCategory
		fmt.Fprintf(&b, "MATCH (cts)-[:%s]->(i:%s {intervention_category: $intervention_category})\n", RelReceives, LabelIntervention)
	}
	if t.Grades != nil {
		grades := make([]int64, len(t.Grades))
		for i, g := range t.Grades {
			grades[i] = int64(g)
		}
		params["grades"] = grades
		fmt.Fprintf(&b, "MATCH (cts)-[:%s]->(ae:%s)\nWHERE ae.grade IN $grades\n", RelExperiences, LabelAdverseEvent)
	}

	b.WriteString("RETURN DISTINCT p.mrn AS mrn\nORDER BY mrn")
	return b.String(), params
}

func uniqueInts(values []int) []int {
	out := make([]int, 0, len(values))
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func uniqueSexes(values []domain.Sex) []domain.Sex {
	out := make([]domain.Sex, 0, len(values))
	seen := make(map[domain.Sex]bool, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
