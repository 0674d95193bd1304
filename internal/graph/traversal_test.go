package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

func TestNewTraversalWithoutRelationshipsIsEmpty(t *testing.T) {
	set := predicate.Default().WithSex(domain.SexFemale).WithAge(20, 40).WithGene("TP53")

	traversal := NewTraversal(set, true)

	assert.False(t, traversal.HasRelationships())
	assert.Nil(t, traversal.Sexes, "demographics alone never reach the graph")
	assert.Empty(t, traversal.Key())
}

func TestNewTraversalCarriesDemographicsWithRelationships(t *testing.T) {
	set := predicate.Default().WithSex(domain.SexFemale).WithProtocol("PROT_003").WithMinGrade(3)

	withDemographics := NewTraversal(set, true)
	withoutDemographics := NewTraversal(set, false)

	assert.Equal(t, []domain.Sex{domain.SexFemale}, withDemographics.Sexes)
	assert.Equal(t, []int{3, 4, 5}, withDemographics.Grades)
	assert.Equal(t, "PROT_003", withDemographics.ProtocolID)
	assert.Nil(t, withoutDemographics.Sexes)
	assert.NotEqual(t, withDemographics.Key(), withoutDemographics.Key())
}

func TestTraversalUnsatisfiable(t *testing.T) {
	emptied := NewTraversal(predicate.Default().WithGrades(), true)
	assert.True(t, emptied.HasRelationships())
	assert.True(t, emptied.Unsatisfiable())

	noSex := NewTraversal(predicate.Default().WithSex().WithProtocol("PROT_001"), true)
	assert.True(t, noSex.Unsatisfiable())

	normal := NewTraversal(predicate.Default().WithProtocol("PROT_001"), true)
	assert.False(t, normal.Unsatisfiable())
}

func TestCypherComposesOneQuery(t *testing.T) {
	set := predicate.Default().
		WithSex(domain.SexFemale).
		WithAge(30, 70).
		WithProtocol("PROT_001").
		WithIntervention("Immunotherapy").
		WithMinGrade(3)

	query, params := NewTraversal(set, true).Cypher()

	assert.Equal(t, 1, strings.Count(query, "RETURN"))
	assert.Equal(t, 1, strings.Count(query, "(p:Patient)"))
	assert.Contains(t, query, "(cts)-[:PARTICIPATES_IN]->(pr:Protocol {protocol_id: $protocol_id})")
	assert.Contains(t, query, "(cts)-[:RECEIVES]->(i:Intervention {intervention_category: $intervention_category})")
	assert.Contains(t, query, "(cts)-[:EXPERIENCES]->(ae:Adverse_Event)")
	assert.Contains(t, query, "p.sex IN $sexes AND p.age >= $age_min AND p.age <= $age_max")
	assert.Equal(t, []string{"female"}, params["sexes"])
	assert.Equal(t, int64(30), params["age_min"])
	assert.Equal(t, int64(70), params["age_max"])
	assert.Equal(t, "PROT_001", params["protocol_id"])
	assert.Equal(t, "Immunotherapy", params["intervention_category"])
	assert.Equal(t, []int64{3, 4, 5}, params["grades"])
}

func TestCypherOmitsInactiveHops(t *testing.T) {
	query, params := NewTraversal(predicate.Default().WithIntervention("Surgery"), true).Cypher()

	assert.NotContains(t, query, "PARTICIPATES_IN")
	assert.NotContains(t, query, "EXPERIENCES")
	assert.NotContains(t, query, "WHERE")
	assert.Len(t, params, 1)
}
