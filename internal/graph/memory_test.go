package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

// createTestStore builds a graph where patient 1 has protocol A with a
// grade 2 event and protocol B with a grade 4 event, so hops only combine
// correctly when bound to the same enrollment.
func createTestStore() *MemoryStore {
	patients := []domain.Patient{
		{MRN: 1, Age: 50, Sex: domain.SexFemale},
		{MRN: 2, Age: 35, Sex: domain.SexMale},
		{MRN: 3, Age: 70, Sex: domain.SexFemale},
	}
	data := &domain.ClinicalData{
		Protocols: []domain.Protocol{{ID: "A", Phase: "Phase I"}, {ID: "B", Phase: "Phase III"}},
		Enrollments: []domain.Enrollment{
			{RaveID: "R1", MRN: 1, ProtocolID: "A"},
			{RaveID: "R2", MRN: 1, ProtocolID: "B"},
			{RaveID: "R3", MRN: 2, ProtocolID: "A"},
			{RaveID: "R4", MRN: 3, ProtocolID: "B"},
			{RaveID: "R5", MRN: 42, ProtocolID: "A"},
		},
		Interventions: []domain.Intervention{
			{RaveID: "R1", Category: "Immunotherapy"},
			{RaveID: "R2", Category: "Chemotherapy"},
			{RaveID: "R3", Category: "Immunotherapy"},
			{RaveID: "R4", Category: "Immunotherapy"},
		},
		AdverseEvents: []domain.AdverseEvent{
			{RaveID: "R1", Grade: 2},
			{RaveID: "R2", Grade: 4},
			{RaveID: "R3", Grade: 3},
			{RaveID: "R4", Grade: 5},
		},
	}
	return NewMemoryStore(patients, clinical.NewIndex(patients, data))
}

func TestMemoryStoreMatchPatients(t *testing.T) {
	store := createTestStore()

	tests := []struct {
		name     string
		set      predicate.Set
		expected []int64
	}{
		{"protocol A", predicate.Default().WithProtocol("A"), []int64{1, 2}},
		{"protocol A and grade >= 3 on same enrollment", predicate.Default().WithProtocol("A").WithMinGrade(3), []int64{2}},
		{"protocol B and immunotherapy", predicate.Default().WithProtocol("B").WithIntervention("Immunotherapy"), []int64{3}},
		{"female and grade >= 3", predicate.Default().WithSex(domain.SexFemale).WithMinGrade(3), []int64{1, 3}},
		{"age bound with intervention", predicate.Default().WithAge(40, 60).WithIntervention("Immunotherapy"), []int64{1}},
		{"no match", predicate.Default().WithIntervention("Surgery"), []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mrns, err := store.MatchPatients(context.Background(), NewTraversal(tt.set, true))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, mrns)
		})
	}
}

func TestMemoryStoreHonoursCancellation(t *testing.T) {
	store := createTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.MatchPatients(ctx, NewTraversal(predicate.Default().WithProtocol("A"), true))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStoreSchema(t *testing.T) {
	require.NoError(t, VerifySchema(context.Background(), createTestStore()))
}
