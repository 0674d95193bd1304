// Package loader reads the tabular store once at startup and builds the
// immutable snapshots the engine resolves against.
package loader

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/tabular"
)

// Dataset is everything loaded at startup. It is never mutated afterwards.
type Dataset struct {
	Table    *tabular.Table
	Clinical *clinical.Index
	// Version fingerprints the loaded records; cached graph results are keyed by it.
	Version  string
	LoadedAt time.Time
}

// Load validates the source schema, then reads every table concurrently
func Load(ctx context.Context, source domain.TabularSource, logger *logrus.Logger) (*Dataset, error) {
	start := time.Now()
	if err := source.Validate(ctx); err != nil {
		return nil, err
	}

	var (
		columns  []string
		patients []domain.Patient
		variants []domain.Variant
		data     *domain.ClinicalData
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		columns, err = source.Columns(gctx)
		return err
	})
	g.Go(func() (err error) {
		patients, err = source.LoadPatients(gctx)
		return err
	})
	g.Go(func() (err error) {
		variants, err = source.LoadVariants(gctx)
		return err
	})
	g.Go(func() (err error) {
		data, err = source.LoadClinical(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loading tabular store: %w", err)
	}

	ds := Build(columns, patients, variants, data)

	entry := logger.WithFields(logrus.Fields{
		"patients":    len(ds.Table.Patients()),
		"rows":        ds.Table.Len(),
		"enrollments": len(ds.Clinical.Enrollments()),
		"version":     ds.Version,
		"elapsed":     time.Since(start).String(),
	})
	entry.Info("Dataset loaded")

	dropped := ds.Clinical.Dropped()
	if ds.Table.Dropped() > 0 || dropped.Total() > 0 {
		logger.WithFields(logrus.Fields{
			"variants":       ds.Table.Dropped(),
			"enrollments":    dropped.Enrollments,
			"interventions":  dropped.Interventions,
			"adverse_events": dropped.AdverseEvents,
		}).Warn("Dropped records referencing unknown patients or protocols")
	}
	return ds, nil
}

// Build assembles a dataset from records already in memory
func Build(columns []string, patients []domain.Patient, variants []domain.Variant, data *domain.ClinicalData) *Dataset {
	table := tabular.NewTable(columns, patients, variants)
	index := clinical.NewIndex(table.Patients(), data)
	return &Dataset{
		Table:    table,
		Clinical: index,
		Version:  fingerprint(table, index),
		LoadedAt: time.Now().UTC(),
	}
}

func fingerprint(table *tabular.Table, index *clinical.Index) string {
	h := fnv.New64a()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	for _, p := range table.Patients() {
		write(domain.MRNLabel(p.MRN), strconv.Itoa(p.Age), string(p.Sex))
	}
	write(strconv.Itoa(table.Len()))
	for _, e := range index.Enrollments() {
		write(e.RaveID, domain.MRNLabel(e.MRN), e.ProtocolID)
		for _, iv := range index.InterventionsOf(e.RaveID) {
			write(iv.Category)
		}
		for _, ae := range index.AdverseEventsOf(e.RaveID) {
			write(strconv.Itoa(ae.Grade))
		}
	}
	return strconv.FormatUint(h.Sum64(), 16)
}
