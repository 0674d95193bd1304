package cohort

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
)

func TestDashboardBuildsEveryView(t *testing.T) {
	env := createTestEnv(t, 120)

	dash, err := env.service.Dashboard(context.Background(), predicate.Default().WithGene("KRAS"), survival.KeyIntervention)

	require.NoError(t, err)
	views := dash.Views
	assert.Equal(t, len(dash.Cohort.Rows), views.Summary.TotalRecords)
	assert.Equal(t, len(dash.Cohort.Patients), views.Summary.UniquePatients)
	assert.Equal(t, 1, views.Summary.UniqueGenes)
	assert.Equal(t, len(dash.Cohort.Patients), views.Demographics.Patients)
	assert.Len(t, views.Histogram, DefaultHistogramBins)
	assert.Equal(t, []string{"KRAS"}, views.Oncoprint.Genes)
	assert.NotEmpty(t, views.Clinical.Protocols)
	assert.NotEmpty(t, dash.Survival.Curves)
	assert.Equal(t, survival.KeyIntervention, dash.Survival.Key)
}

func TestDashboardActionableMatchesRows(t *testing.T) {
	env := createTestEnv(t, 200)

	_, views, err := env.service.Views(context.Background(), predicate.Default().
		WithGene("TP53").
		WithAssessments(domain.AssessmentPathogenic, domain.AssessmentLikelyPathogenic))

	require.NoError(t, err)
	assert.Equal(t, views.Summary.TotalRecords, views.Summary.Actionable)
}

func TestDashboardEmptyCohort(t *testing.T) {
	env := createTestEnv(t, 50)

	dash, err := env.service.Dashboard(context.Background(), predicate.Default().WithSex(), survival.KeySex)

	require.NoError(t, err)
	assert.Empty(t, dash.Cohort.Patients)
	assert.Equal(t, 0, dash.Views.Summary.TotalRecords)
	assert.Empty(t, dash.Views.Oncoprint.Genes)
	assert.Len(t, dash.Views.Clinical.Grades, domain.MaxGrade)
	assert.Empty(t, dash.Survival.Curves)
}

func TestDashboardRejectsUnknownKey(t *testing.T) {
	env := createTestEnv(t, 10)

	_, err := env.service.Dashboard(context.Background(), predicate.Default(), survival.Key("age"))

	assert.ErrorIs(t, err, domain.ErrUnknownStratification)
}

func TestSurvivalIsReproducible(t *testing.T) {
	env := createTestEnv(t, 90)
	set := predicate.Default().WithSex(domain.SexFemale)

	a, err := env.service.Survival(context.Background(), set, survival.KeyGene)
	require.NoError(t, err)
	b, err := env.service.Survival(context.Background(), set, survival.KeyGene)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.LessOrEqual(t, len(a.Curves), survival.DefaultMaxStrata)
}

func TestSelectableGenesMatchGeneValidation(t *testing.T) {
	loaded := []string{"BRAF", "tp53", "KRAS_FUSION", "C1orf112", "HLA-A"}

	selectable := selectableGenes(loaded)

	assert.Equal(t, []string{"BRAF", "C1orf112", "HLA-A"}, selectable)
	for _, g := range selectable {
		assert.NoError(t, predicate.Default().WithGene(g).Validate(), g)
	}
}

func TestOptions(t *testing.T) {
	env := createTestEnv(t, 60)

	opts := env.service.Options()

	assert.Equal(t, env.table.Genes(), opts.Genes)
	assert.Len(t, opts.Protocols, 5)
	assert.Equal(t, env.index.InterventionCategories(), opts.Interventions)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, opts.Grades)
	assert.GreaterOrEqual(t, opts.AgeMin, 18)
	assert.LessOrEqual(t, opts.AgeMax, 85)
	assert.Equal(t, survival.Keys, opts.Strata)
	assert.Empty(t, opts.Defaults.Active())
}
