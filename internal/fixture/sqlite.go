package fixture

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Schema creates the default-named tables a tabular source reads
var Schema = []string{
	`CREATE TABLE demographics (mrn INTEGER PRIMARY KEY, age INTEGER, sex TEXT)`,
	`CREATE TABLE variants (mrn INTEGER, gene TEXT, assessment TEXT, allelefraction REAL, actionability TEXT)`,
	`CREATE TABLE protocols (protocol_id TEXT PRIMARY KEY, protocol_name TEXT, phase TEXT, status TEXT)`,
	`CREATE TABLE clinical_trial_subjects (rave_id TEXT, mrn INTEGER, protocol_id TEXT, enrollment_status TEXT)`,
	`CREATE TABLE interventions (rave_id TEXT, intervention_category TEXT, dose_level TEXT)`,
	`CREATE TABLE adverse_events (rave_id TEXT, ae_body_system TEXT, grade INTEGER, serious BOOLEAN)`,
}

// WriteSQLite writes ds into a new SQLite database at path
func WriteSQLite(ctx context.Context, path string, ds *Dataset) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range Schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	insert := func(query string, args ...any) {
		if err == nil {
			_, err = tx.ExecContext(ctx, query, args...)
		}
	}
	for _, p := range ds.Patients {
		insert(`INSERT INTO demographics VALUES (?, ?, ?)`, p.MRN, p.Age, string(p.Sex))
	}
	for _, v := range ds.Variants {
		var actionability any
		if v.Actionability != "" {
			actionability = v.Actionability
		}
		insert(`INSERT INTO variants VALUES (?, ?, ?, ?, ?)`, v.MRN, v.Gene, string(v.Assessment), v.AlleleFraction, actionability)
	}
	for _, pr := range ds.Clinical.Protocols {
		insert(`INSERT INTO protocols VALUES (?, ?, ?, ?)`, pr.ID, pr.Name, pr.Phase, pr.Status)
	}
	for _, e := range ds.Clinical.Enrollments {
		insert(`INSERT INTO clinical_trial_subjects VALUES (?, ?, ?, ?)`, e.RaveID, e.MRN, e.ProtocolID, e.Status)
	}
	for _, iv := range ds.Clinical.Interventions {
		insert(`INSERT INTO interventions VALUES (?, ?, ?)`, iv.RaveID, iv.Category, iv.DoseLevel)
	}
	for _, ae := range ds.Clinical.AdverseEvents {
		insert(`INSERT INTO adverse_events VALUES (?, ?, ?, ?)`, ae.RaveID, ae.BodySystem, ae.Grade, ae.Serious)
	}
	if err != nil {
		return fmt.Errorf("inserting rows: %w", err)
	}
	return tx.Commit()
}
