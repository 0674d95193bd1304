// Package aggregate derives chart-ready views from resolved cohort rows.
// Every function is pure: it reads its inputs and returns fresh values.
package aggregate

import (
	"math"
	"sort"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// Summary holds the headline metrics of a cohort
type Summary struct {
	TotalRecords       int     `json:"total_records"`
	UniquePatients     int     `json:"unique_patients"`
	UniqueGenes        int     `json:"unique_genes"`
	Actionable         int     `json:"actionable"`
	MeanAlleleFraction float64 `json:"mean_allele_fraction"`
}

// Summarize computes headline metrics; actionable counts pathogenic and likely pathogenic rows.
// The mean allele fraction ignores fractions outside [0,1].
func Summarize(rows []domain.Row) Summary {
	s := Summary{TotalRecords: len(rows)}
	if len(rows) == 0 {
		return s
	}
	patients := make(map[int64]struct{})
	genes := make(map[string]struct{})
	var (
		afSum float64
		afN   int
	)
	for _, r := range rows {
		patients[r.MRN] = struct{}{}
		genes[r.Gene] = struct{}{}
		if r.Assessment.IsPathogenic() {
			s.Actionable++
		}
		if domain.ValidAlleleFraction(r.AlleleFraction) {
			afSum += r.AlleleFraction
			afN++
		}
	}
	s.UniquePatients = len(patients)
	s.UniqueGenes = len(genes)
	if afN > 0 {
		s.MeanAlleleFraction = afSum / float64(afN)
	}
	return s
}

// Count is one category of a category-to-count view
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// sortCounts orders by count descending then label ascending
func sortCounts(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for label, n := range counts {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func top(counts []Count, n int) []Count {
	if n > 0 && len(counts) > n {
		return counts[:n]
	}
	return counts
}

// CountAssessments tallies rows per assessment
func CountAssessments(rows []domain.Row) []Count {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[string(r.Assessment)]++
	}
	return sortCounts(counts)
}

// TopGenes returns the n most frequent genes; n <= 0 returns every gene.
func TopGenes(rows []domain.Row, n int) []Count {
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Gene]++
	}
	return top(sortCounts(counts), n)
}

// Bin is one histogram bucket covering [Lower, Upper)
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// AlleleFractionHistogram buckets allele fractions over [0,1] into equal-width bins.
// A fraction of exactly 1 falls in the last bin; NaN is not counted.
func AlleleFractionHistogram(rows []domain.Row, bins int) []Bin {
	if bins <= 0 {
		bins = 1
	}
	width := 1.0 / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: float64(i) * width, Upper: float64(i+1) * width}
	}
	for _, r := range rows {
		if math.IsNaN(r.AlleleFraction) {
			continue
		}
		af := math.Max(0, math.Min(1, r.AlleleFraction))
		i := int(af / width)
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
