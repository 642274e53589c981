// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"flag"

	"github.com/samber/lo"
)

// CohortFilter selects the analysis cohort. An empty field matches
// anything.
type CohortFilter struct {
	Treatment  string
	Condition  string
	SampleType string
}

func (f *CohortFilter) Flags(flags *flag.FlagSet, cfg config) {
	flags.StringVar(&f.Treatment, "treatment", cfg.Treatment, "only include subjects with treatment `T` (empty for any)")
	flags.StringVar(&f.Condition, "condition", cfg.Condition, "only include subjects with condition `C` (empty for any)")
	flags.StringVar(&f.SampleType, "sample-type", cfg.SampleType, "only include samples of type `S` (empty for any)")
}

func (f *CohortFilter) Args() []string {
	return []string{
		"-treatment=" + f.Treatment,
		"-condition=" + f.Condition,
		"-sample-type=" + f.SampleType,
	}
}

func (f *CohortFilter) Match(row CohortRow) bool {
	return (f.Treatment == "" || row.Subject.Treatment == f.Treatment) &&
		(f.Condition == "" || row.Subject.Condition == f.Condition) &&
		(f.SampleType == "" || row.SampleType == f.SampleType)
}

// Apply returns the rows that match f, in their original order.
func (f *CohortFilter) Apply(rows []CohortRow) []CohortRow {
	return lo.Filter(rows, func(row CohortRow, _ int) bool { return f.Match(row) })
}

// CohortRow is a Frequency row joined with its subject and project.
type CohortRow struct {
	Frequency
	Subject    Subject
	SampleType string
}

// Join attaches subject and project metadata to each frequency row.
// This is an inner join: rows whose subject or project is missing are
// dropped, and the number of dropped rows is returned.
func Join(freqs []Frequency, subjects []Subject, projects []Project) (joined []CohortRow, dropped int) {
	subjectByID := lo.KeyBy(subjects, func(s Subject) string { return s.ID })
	sampleTypeByID := make(map[string]string, len(projects))
	for _, p := range projects {
		sampleTypeByID[p.ID] = p.SampleType
	}
	joined = make([]CohortRow, 0, len(freqs))
	for _, f := range freqs {
		subj, ok := subjectByID[f.SubjectID]
		if !ok {
			continue
		}
		sampleType, ok := sampleTypeByID[f.ProjectID]
		if !ok {
			continue
		}
		joined = append(joined, CohortRow{Frequency: f, Subject: subj, SampleType: sampleType})
	}
	return joined, len(freqs) - len(joined)
}
