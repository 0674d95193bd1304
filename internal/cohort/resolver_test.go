package cohort

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/graph"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

func TestResolveNoPredicates(t *testing.T) {
	env := createTestEnv(t, 200)

	res, err := env.resolver.Resolve(context.Background(), predicate.Default())

	require.NoError(t, err)
	assert.Len(t, res.Patients, 200)
	assert.Equal(t, env.table.Len(), len(res.Rows))
	assert.False(t, res.Degraded)
	assert.Zero(t, env.store.callCount(), "no relationship predicate means no graph round trip")
}

func TestResolveFemaleOnly(t *testing.T) {
	env := createTestEnv(t, 200)
	females := 0
	for _, p := range env.data.Patients {
		if p.Sex == domain.SexFemale {
			females++
		}
	}

	res, err := env.resolver.Resolve(context.Background(), predicate.Default().WithSex(domain.SexFemale))

	require.NoError(t, err)
	assert.Len(t, res.Patients, females)
	for _, row := range res.Rows {
		assert.Equal(t, domain.SexFemale, row.Sex)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	env := createTestEnv(t, 120)
	set := predicate.Default().WithGene("TP53").WithMinGrade(3)

	first, err := env.resolver.Resolve(context.Background(), set)
	require.NoError(t, err)
	second, err := env.resolver.Resolve(context.Background(), set)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveDefaultSuppression(t *testing.T) {
	env := createTestEnv(t, 80)
	ctx := context.Background()

	none, err := env.resolver.Resolve(ctx, predicate.Set{})
	require.NoError(t, err)
	defaults, err := env.resolver.Resolve(ctx, predicate.Default().WithAge(18, 85).WithMinGrade(1))
	require.NoError(t, err)

	assert.Equal(t, none.Patients, defaults.Patients)
	assert.Equal(t, none.Key, defaults.Key)
}

func TestResolveConjunction(t *testing.T) {
	env := createTestEnv(t, 150)
	ctx := context.Background()
	protocol := env.index.Protocols()[0].ID

	a, err := env.resolver.Resolve(ctx, predicate.Default().WithSex(domain.SexMale))
	require.NoError(t, err)
	b, err := env.resolver.Resolve(ctx, predicate.Default().WithProtocol(protocol))
	require.NoError(t, err)
	both, err := env.resolver.Resolve(ctx, predicate.Default().WithSex(domain.SexMale).WithProtocol(protocol))
	require.NoError(t, err)

	expected := domain.NewPatientSet(a.Patients...).Intersect(domain.NewPatientSet(b.Patients...))
	assert.Equal(t, expected.Sorted(), both.Patients, "independent dimensions intersect exactly")
}

func TestResolveCrossStoreConsistency(t *testing.T) {
	env := createTestEnv(t, 150)
	ctx := context.Background()
	set := predicate.Default().
		WithAssessments(domain.AssessmentPathogenic, domain.AssessmentLikelyPathogenic).
		WithIntervention("Immunotherapy").
		WithMinGrade(2)

	tab := env.resolver.tabular.Apply(set)
	constraint, err := graph.NewFilter(env.store.inner, false, 0, testLogger()).Apply(ctx, set)
	require.NoError(t, err)

	res, err := env.resolver.Resolve(ctx, set)

	require.NoError(t, err)
	assert.Equal(t, tab.Patients.Intersect(constraint.Patients).Sorted(), res.Patients)
	for _, row := range res.Rows {
		assert.True(t, constraint.Patients.Contains(row.MRN))
	}
}

func TestResolveGeneAndPathogenic(t *testing.T) {
	env := createTestEnv(t, 200)

	res, err := env.resolver.Resolve(context.Background(), predicate.Default().
		WithGene("TP53").
		WithAssessments(domain.AssessmentPathogenic, domain.AssessmentLikelyPathogenic))

	require.NoError(t, err)
	require.NotEmpty(t, res.Rows)
	for _, row := range res.Rows {
		assert.Equal(t, "TP53", row.Gene)
		assert.True(t, row.Assessment.IsPathogenic())
	}
}

func TestResolveDegradesWhenGraphUnavailable(t *testing.T) {
	// Arrange
	env := createTestEnv(t, 100)
	env.store.fail(errors.New("connection refused"))
	set := predicate.Default().WithSex(domain.SexFemale).WithProtocol("PROT_001")

	// Act
	res, err := env.resolver.Resolve(context.Background(), set)

	// Assert
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []predicate.Field{predicate.FieldProtocol}, res.Unapplied)
	assert.Equal(t, DegradedWarning, res.Warning)

	tabularOnly, err := env.resolver.Resolve(context.Background(), predicate.Default().WithSex(domain.SexFemale))
	require.NoError(t, err)
	assert.Equal(t, tabularOnly.Patients, res.Patients)
}

func TestResolveDoesNotMemoizeGraphFailures(t *testing.T) {
	env := createTestEnv(t, 60)
	set := predicate.Default().WithProtocol("PROT_002")
	env.store.fail(errors.New("timeout"))

	degraded, err := env.resolver.Resolve(context.Background(), set)
	require.NoError(t, err)
	require.True(t, degraded.Degraded)

	env.store.fail(nil)
	recovered, err := env.resolver.Resolve(context.Background(), set)

	require.NoError(t, err)
	assert.False(t, recovered.Degraded)
	assert.Equal(t, 2, env.store.callCount())
}

func TestResolveReusesUnchangedSide(t *testing.T) {
	env := createTestEnv(t, 60)
	ctx := context.Background()
	base := predicate.Default().WithProtocol("PROT_001")

	for _, age := range []int{20, 30, 40} {
		_, err := env.resolver.Resolve(ctx, base.WithAge(age, 80))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, env.store.callCount(), "tabular-only changes must reuse the graph result")

	_, err := env.resolver.Resolve(ctx, base.WithProtocol("PROT_003"))
	require.NoError(t, err)
	assert.Equal(t, 2, env.store.callCount())
}

func TestResolveEmptiedSelection(t *testing.T) {
	env := createTestEnv(t, 40)

	res, err := env.resolver.Resolve(context.Background(), predicate.Default().WithGrades())

	require.NoError(t, err)
	assert.Empty(t, res.Patients)
	assert.Empty(t, res.Rows)
	assert.False(t, res.Degraded)
}

func TestResolveRejectsInvalidSnapshot(t *testing.T) {
	env := createTestEnv(t, 10)

	_, err := env.resolver.Resolve(context.Background(), predicate.Default().WithAge(60, 30))

	assert.True(t, domain.IsValidationError(err))
}

func TestResolveReturnsCallerCancellation(t *testing.T) {
	env := createTestEnv(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.resolver.Resolve(ctx, predicate.Default().WithProtocol("PROT_001"))

	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveProtocolMatchesIndex(t *testing.T) {
	env := createTestEnv(t, 100)

	for _, proto := range env.index.Protocols() {
		t.Run(fmt.Sprint(proto.ID), func(t *testing.T) {
			res, err := env.resolver.Resolve(context.Background(), predicate.Default().WithProtocol(proto.ID))
			require.NoError(t, err)

			expected := domain.NewPatientSet()
			for _, e := range env.index.Enrollments() {
				if e.ProtocolID == proto.ID {
					expected[e.MRN] = struct{}{}
				}
			}
			assert.Equal(t, expected.Sorted(), res.Patients)
		})
	}
}
