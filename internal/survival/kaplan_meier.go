package survival

import (
	"sort"
)

// Point is one step of a survival curve
type Point struct {
	Time     float64 `json:"time"`
	Survival float64 `json:"survival"`
	AtRisk   int     `json:"at_risk"`
}

// KaplanMeier fits the product-limit estimator. The returned steps start at
// (0, 1); each distinct event time multiplies survival by (1 - d/n), where
// n counts subjects still at risk. Censored subjects leave the risk set
// without a drop. When the longest observation is censored a final flat
// step extends the curve to it. The median is nil until survival reaches 0.5.
func KaplanMeier(times []float64, events []bool) ([]Point, *float64) {
	n := len(times)
	points := []Point{{Time: 0, Survival: 1, AtRisk: n}}
	if n == 0 {
		return points, nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })

	survival := 1.0
	atRisk := n
	var median *float64
	lastEvent := 0.0

	for i := 0; i < n; {
		t := times[order[i]]
		deaths, censored := 0, 0
		j := i
		for ; j < n && times[order[j]] == t; j++ {
			if events[order[j]] {
				deaths++
			} else {
				censored++
			}
		}
		if deaths > 0 {
			survival *= 1 - float64(deaths)/float64(atRisk)
			points = append(points, Point{Time: t, Survival: survival, AtRisk: atRisk})
			lastEvent = t
			if median == nil && survival <= 0.5 {
				m := t
				median = &m
			}
		}
		atRisk -= deaths + censored
		i = j
	}

	if longest := times[order[n-1]]; longest > lastEvent {
		points = append(points, Point{Time: longest, Survival: survival, AtRisk: 0})
	}
	return points, median
}
