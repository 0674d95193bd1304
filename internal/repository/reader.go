package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// resultRows is the cursor shape shared by database/sql and pgx
type resultRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() ([]string, error)
}

type queryFunc func(ctx context.Context, query string) (resultRows, error)

// reader implements the read path of every TabularSource over a queryFunc
type reader struct {
	query  queryFunc
	schema schema
	log    *logrus.Logger
}

// Validate checks every table and column the engine reads
func (r *reader) Validate(ctx context.Context) error {
	var missing []string
	for _, def := range r.schema.tables() {
		columns, err := r.columnsOf(ctx, def)
		if err != nil {
			r.log.WithFields(logrus.Fields{"table": def.name}).WithError(err).Warn("Table probe failed")
			missing = append(missing, def.name)
			continue
		}
		present := make(map[string]bool, len(columns))
		for _, c := range columns {
			present[strings.ToLower(c)] = true
		}
		for _, c := range def.columns {
			if !present[c] {
				missing = append(missing, def.name+"."+c)
			}
		}
	}
	if len(missing) > 0 {
		return domain.NewConfigurationError("tabular", "tables or columns missing from the store", missing...)
	}
	return nil
}

// Columns lists the columns of the joined demographics and variants tables
func (r *reader) Columns(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, def := range []tableDef{r.schema.demographics, r.schema.variants} {
		columns, err := r.columnsOf(ctx, def)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", def.name, err)
		}
		for _, c := range columns {
			c = strings.ToLower(c)
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (r *reader) columnsOf(ctx context.Context, def tableDef) ([]string, error) {
	rows, err := r.query(ctx, def.probe())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

// scanAll runs the select of def and hands every row to scan
func (r *reader) scanAll(ctx context.Context, def tableDef, scan func(resultRows) error) error {
	rows, err := r.query(ctx, def.selectAll())
	if err != nil {
		return fmt.Errorf("querying %s: %w", def.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("scanning %s: %w", def.name, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading %s: %w", def.name, err)
	}
	return nil
}

// LoadPatients reads demographics. Rows with an unrecognised sex are skipped.
func (r *reader) LoadPatients(ctx context.Context) ([]domain.Patient, error) {
	var patients []domain.Patient
	skipped := 0
	err := r.scanAll(ctx, r.schema.demographics, func(rows resultRows) error {
		var (
			p   domain.Patient
			sex string
		)
		if err := rows.Scan(&p.MRN, &p.Age, &sex); err != nil {
			return err
		}
		parsed, err := domain.ParseSex(sex)
		if err != nil || p.Age < 0 {
			skipped++
			return nil
		}
		p.Sex = parsed
		patients = append(patients, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logSkipped(r.schema.demographics.name, skipped)
	return patients, nil
}

// LoadVariants reads variants. Rows with an unrecognised assessment, no gene or
// an allele fraction outside [0,1] are skipped. A null fraction reads as 0.
func (r *reader) LoadVariants(ctx context.Context) ([]domain.Variant, error) {
	var variants []domain.Variant
	skipped := 0
	err := r.scanAll(ctx, r.schema.variants, func(rows resultRows) error {
		var (
			v             domain.Variant
			gene          sql.NullString
			assessment    string
			af            sql.NullFloat64
			actionability sql.NullString
		)
		if err := rows.Scan(&v.MRN, &gene, &assessment, &af, &actionability); err != nil {
			return err
		}
		parsed, err := domain.ParseAssessment(assessment)
		if err != nil || !gene.Valid || gene.String == "" || (af.Valid && !domain.ValidAlleleFraction(af.Float64)) {
			skipped++
			return nil
		}
		v.Gene = gene.String
		v.Assessment = parsed
		v.AlleleFraction = af.Float64
		v.Actionability = actionability.String
		variants = append(variants, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logSkipped(r.schema.variants.name, skipped)
	return variants, nil
}

// LoadClinical reads protocols, enrollments, interventions and adverse events
func (r *reader) LoadClinical(ctx context.Context) (*domain.ClinicalData, error) {
	data := &domain.ClinicalData{}

	err := r.scanAll(ctx, r.schema.protocols, func(rows resultRows) error {
		var p domain.Protocol
		var name sql.NullString
		if err := rows.Scan(&p.ID, &name, &p.Phase, &p.Status); err != nil {
			return err
		}
		p.Name = name.String
		data.Protocols = append(data.Protocols, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.scanAll(ctx, r.schema.enrollments, func(rows resultRows) error {
		var e domain.Enrollment
		if err := rows.Scan(&e.RaveID, &e.MRN, &e.ProtocolID, &e.Status); err != nil {
			return err
		}
		data.Enrollments = append(data.Enrollments, e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.scanAll(ctx, r.schema.interventions, func(rows resultRows) error {
		var iv domain.Intervention
		var dose sql.NullString
		if err := rows.Scan(&iv.RaveID, &iv.Category, &dose); err != nil {
			return err
		}
		iv.DoseLevel = dose.String
		data.Interventions = append(data.Interventions, iv)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.scanAll(ctx, r.schema.adverseEvents, func(rows resultRows) error {
		var ae domain.AdverseEvent
		if err := rows.Scan(&ae.RaveID, &ae.BodySystem, &ae.Grade, &ae.Serious); err != nil {
			return err
		}
		data.AdverseEvents = append(data.AdverseEvents, ae)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"protocols":      len(data.Protocols),
		"enrollments":    len(data.Enrollments),
		"interventions":  len(data.Interventions),
		"adverse_events": len(data.AdverseEvents),
	}).Info("Clinical tables loaded")
	return data, nil
}

func (r *reader) logSkipped(table string, skipped int) {
	if skipped == 0 {
		return
	}
	r.log.WithFields(logrus.Fields{
		"table":   table,
		"skipped": skipped,
	}).Warn("Skipped rows with unrecognised values")
}
