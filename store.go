// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// store is the normalized relational store: one SQLite file holding
// the subject, project and sample tables.
type store struct {
	db   *sql.DB
	path string
}

var schema = []string{
	`DROP TABLE IF EXISTS sample`,
	`DROP TABLE IF EXISTS subject`,
	`DROP TABLE IF EXISTS project`,
	`CREATE TABLE subject (
		subject_id TEXT PRIMARY KEY,
		condition TEXT NOT NULL,
		age INTEGER NOT NULL,
		sex TEXT NOT NULL,
		treatment TEXT NOT NULL,
		response TEXT NOT NULL
	)`,
	`CREATE TABLE project (
		project_id TEXT PRIMARY KEY,
		sample_type TEXT NOT NULL
	)`,
	`CREATE TABLE sample (
		sample_id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL REFERENCES subject(subject_id),
		project_id TEXT NOT NULL REFERENCES project(project_id),
		time_from_treatment_start INTEGER,
		` + countColumns() + `
	)`,
}

func countColumns() string {
	var cols []string
	for _, pop := range Populations {
		cols = append(cols, pop+" INTEGER NOT NULL CHECK ("+pop+" >= 0)")
	}
	return strings.Join(cols, ",\n\t\t")
}

// openStore opens (creating if needed) the sqlite database at path.
// The caller must Close it.
func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// foreign_keys is a per-connection pragma.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: enable foreign keys: %w", path, err)
	}
	return &store{db: db, path: path}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// Replace discards all existing tables and stores rel in their place,
// in a single transaction.
func (s *store) Replace(ctx context.Context, rel *Relations) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.path, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: create schema: %w", s.path, err)
		}
	}
	for _, subj := range rel.Subjects {
		_, err := tx.ExecContext(ctx, `INSERT INTO subject (subject_id, condition, age, sex, treatment, response) VALUES (?, ?, ?, ?, ?, ?)`,
			subj.ID, subj.Condition, subj.Age, subj.Sex, subj.Treatment, subj.Response)
		if err != nil {
			return fmt.Errorf("%s: insert subject %q: %w", s.path, subj.ID, err)
		}
	}
	for _, proj := range rel.Projects {
		_, err := tx.ExecContext(ctx, `INSERT INTO project (project_id, sample_type) VALUES (?, ?)`, proj.ID, proj.SampleType)
		if err != nil {
			return fmt.Errorf("%s: insert project %q: %w", s.path, proj.ID, err)
		}
	}
	insertSample := `INSERT INTO sample (sample_id, subject_id, project_id, time_from_treatment_start, ` +
		strings.Join(Populations[:], ", ") + `) VALUES (?, ?, ?, ?` + strings.Repeat(", ?", nPopulations) + `)`
	for _, smp := range rel.Samples {
		args := []interface{}{smp.ID, smp.SubjectID, smp.ProjectID, smp.TimeFromTreatmentStart}
		for _, n := range smp.Counts {
			args = append(args, n)
		}
		if _, err := tx.ExecContext(ctx, insertSample, args...); err != nil {
			return fmt.Errorf("%s: insert sample %q: %w", s.path, smp.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.path, err)
	}
	return nil
}

// Relations reads back all three relations, each sorted by key.
func (s *store) Relations(ctx context.Context) (*Relations, error) {
	rel := &Relations{}

	rows, err := s.db.QueryContext(ctx, `SELECT subject_id, condition, age, sex, treatment, response FROM subject ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("%s: select subjects: %w", s.path, err)
	}
	for rows.Next() {
		var subj Subject
		if err := rows.Scan(&subj.ID, &subj.Condition, &subj.Age, &subj.Sex, &subj.Treatment, &subj.Response); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: scan subject: %w", s.path, err)
		}
		rel.Subjects = append(rel.Subjects, subj)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%s: select subjects: %w", s.path, err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT project_id, sample_type FROM project ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("%s: select projects: %w", s.path, err)
	}
	for rows.Next() {
		var proj Project
		if err := rows.Scan(&proj.ID, &proj.SampleType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: scan project: %w", s.path, err)
		}
		rel.Projects = append(rel.Projects, proj)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%s: select projects: %w", s.path, err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT sample_id, subject_id, project_id, time_from_treatment_start, `+
		strings.Join(Populations[:], ", ")+` FROM sample ORDER BY sample_id`)
	if err != nil {
		return nil, fmt.Errorf("%s: select samples: %w", s.path, err)
	}
	for rows.Next() {
		var smp Sample
		dest := []interface{}{&smp.ID, &smp.SubjectID, &smp.ProjectID, &smp.TimeFromTreatmentStart}
		for i := range smp.Counts {
			dest = append(dest, &smp.Counts[i])
		}
		if err := rows.Scan(dest...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%s: scan sample: %w", s.path, err)
		}
		rel.Samples = append(rel.Samples, smp)
	}
	if err := closeRows(rows); err != nil {
		return nil, fmt.Errorf("%s: select samples: %w", s.path, err)
	}
	return rel, nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}
