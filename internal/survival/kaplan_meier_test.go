package survival

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKaplanMeierEmpty(t *testing.T) {
	points, median := KaplanMeier(nil, nil)

	assert.Equal(t, []Point{{Time: 0, Survival: 1, AtRisk: 0}}, points)
	assert.Nil(t, median)
}

func TestKaplanMeierProductLimit(t *testing.T) {
	// Arrange: events at 1 and 3, censored at 2 and 4
	times := []float64{3, 1, 4, 2}
	events := []bool{true, true, false, false}

	// Act
	points, median := KaplanMeier(times, events)

	// Assert
	require.Len(t, points, 4)
	assert.Equal(t, Point{Time: 0, Survival: 1, AtRisk: 4}, points[0])
	assert.Equal(t, 1.0, points[1].Time)
	assert.InDelta(t, 0.75, points[1].Survival, 1e-12)
	assert.Equal(t, 4, points[1].AtRisk)
	assert.Equal(t, 3.0, points[2].Time)
	assert.InDelta(t, 0.375, points[2].Survival, 1e-12, "censoring at 2 leaves two at risk")
	assert.Equal(t, 2, points[2].AtRisk)
	assert.Equal(t, Point{Time: 4, Survival: points[2].Survival, AtRisk: 0}, points[3], "censored tail extends the curve")

	require.NotNil(t, median)
	assert.Equal(t, 3.0, *median)
}

func TestKaplanMeierTiedEvents(t *testing.T) {
	points, median := KaplanMeier([]float64{5, 5, 5, 5}, []bool{true, true, false, false})

	require.Len(t, points, 2)
	assert.InDelta(t, 0.5, points[1].Survival, 1e-12)
	require.NotNil(t, median)
	assert.Equal(t, 5.0, *median)
}

func TestKaplanMeierAllCensored(t *testing.T) {
	points, median := KaplanMeier([]float64{2, 7}, []bool{false, false})

	assert.Equal(t, []Point{{Time: 0, Survival: 1, AtRisk: 2}, {Time: 7, Survival: 1, AtRisk: 0}}, points)
	assert.Nil(t, median)
}

func TestKaplanMeierIsMonotone(t *testing.T) {
	times := []float64{9, 2, 4, 4, 1, 8, 3, 6}
	events := []bool{true, false, true, true, true, false, true, true}

	points, _ := KaplanMeier(times, events)
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Time, points[i-1].Time)
		assert.LessOrEqual(t, points[i].Survival, points[i-1].Survival)
	}
}
