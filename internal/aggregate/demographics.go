package aggregate

import (
	"fmt"
	"sort"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// AgeBandWidth is the width in years of the demographics age histogram
const AgeBandWidth = 10

// Demographics describes unique cohort patients
type Demographics struct {
	Patients int     `json:"patients"`
	AgeBands []Count `json:"age_bands"`
	Sex      []Count `json:"sex"`
	MeanAge  float64 `json:"mean_age"`
}

// BuildDemographics counts each patient once. Age bands are labelled "40-49"
// and ordered by age; both sexes are always present.
func BuildDemographics(patients []domain.Patient) Demographics {
	d := Demographics{AgeBands: []Count{}, Sex: make([]Count, len(domain.AllSexes))}
	for i, s := range domain.AllSexes {
		d.Sex[i] = Count{Label: string(s)}
	}

	seen := make(map[int64]bool, len(patients))
	bands := make(map[int]int)
	ageSum := 0
	for _, p := range patients {
		if seen[p.MRN] {
			continue
		}
		seen[p.MRN] = true
		d.Patients++
		ageSum += p.Age
		bands[p.Age/AgeBandWidth]++
		for i, s := range domain.AllSexes {
			if p.Sex == s {
				d.Sex[i].Count++
			}
		}
	}
	if d.Patients == 0 {
		return d
	}
	d.MeanAge = float64(ageSum) / float64(d.Patients)

	keys := make([]int, 0, len(bands))
	for k := range bands {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		lo := k * AgeBandWidth
		d.AgeBands = append(d.AgeBands, Count{
			Label: fmt.Sprintf("%d-%d", lo, lo+AgeBandWidth-1),
			Count: bands[k],
		})
	}
	return d
}
