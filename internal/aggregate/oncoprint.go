package aggregate

import (
	"sort"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// Oncoprint is a gene-by-sample matrix of the most severe assessment.
// Cells are "" where the sample carries no variant in the gene.
type Oncoprint struct {
	Genes   []string              `json:"genes"`
	Samples []string              `json:"samples"`
	Cells   [][]domain.Assessment `json:"cells"`
	// Load is the pathogenic fraction of each gene row, aligned with Genes.
	Load []float64 `json:"load"`
}

// BuildOncoprint selects the maxGenes most frequent genes and the maxSamples
// samples carrying the most variants (ties by MRN), then orders gene rows by
// pathogenic load descending. Equal loads keep gene-frequency order.
func BuildOncoprint(rows []domain.Row, maxGenes, maxSamples int) Oncoprint {
	empty := Oncoprint{Genes: []string{}, Samples: []string{}, Cells: [][]domain.Assessment{}, Load: []float64{}}
	if len(rows) == 0 || maxGenes <= 0 || maxSamples <= 0 {
		return empty
	}

	geneCounts := TopGenes(rows, maxGenes)

	perSample := make(map[int64]int)
	for _, r := range rows {
		perSample[r.MRN]++
	}
	samples := make([]int64, 0, len(perSample))
	for mrn := range perSample {
		samples = append(samples, mrn)
	}
	sort.Slice(samples, func(i, j int) bool {
		if perSample[samples[i]] != perSample[samples[j]] {
			return perSample[samples[i]] > perSample[samples[j]]
		}
		return samples[i] < samples[j]
	})
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}

	geneIdx := make(map[string]int, len(geneCounts))
	for i, c := range geneCounts {
		geneIdx[c.Label] = i
	}
	sampleIdx := make(map[int64]int, len(samples))
	for i, mrn := range samples {
		sampleIdx[mrn] = i
	}

	cells := make([][]domain.Assessment, len(geneCounts))
	for i := range cells {
		cells[i] = make([]domain.Assessment, len(samples))
	}
	for _, r := range rows {
		g, ok := geneIdx[r.Gene]
		if !ok {
			continue
		}
		s, ok := sampleIdx[r.MRN]
		if !ok {
			continue
		}
		if r.Assessment.Severity() > cells[g][s].Severity() {
			cells[g][s] = r.Assessment
		}
	}

	type geneRow struct {
		gene  string
		cells []domain.Assessment
		load  float64
	}
	ordered := make([]geneRow, len(geneCounts))
	for i, c := range geneCounts {
		pathogenic := 0
		for _, a := range cells[i] {
			if a.IsPathogenic() {
				pathogenic++
			}
		}
		ordered[i] = geneRow{gene: c.Label, cells: cells[i], load: float64(pathogenic) / float64(len(samples))}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].load > ordered[j].load })

	out := Oncoprint{
		Genes:   make([]string, len(ordered)),
		Samples: make([]string, len(samples)),
		Cells:   make([][]domain.Assessment, len(ordered)),
		Load:    make([]float64, len(ordered)),
	}
	for i, r := range ordered {
		out.Genes[i] = r.gene
		out.Cells[i] = r.cells
		out.Load[i] = r.load
	}
	for i, mrn := range samples {
		out.Samples[i] = domain.MRNLabel(mrn)
	}
	return out
}
