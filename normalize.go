// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"

	log "github.com/sirupsen/logrus"
)

// normalize splits the flat input rows into the Subject, Project and
// Sample relations, validating keys and references along the way.
//
// Samples whose subject or project reference cannot be resolved are
// left out of the result and returned as rejected; every other
// problem aborts normalization.
func normalize(rows []rawRow) (*Relations, []*ReferentialIntegrityError, error) {
	subjects := map[string]Subject{}
	sampleTypes := map[string]map[string]bool{}
	samples := make([]Sample, 0, len(rows))
	seen := map[string]int{}
	for _, row := range rows {
		id, err := canonicalSubjectID(row.subject)
		if err != nil {
			var e *MalformedIdentifierError
			if errors.As(err, &e) {
				e.Line = row.line
			}
			return nil, nil, err
		}
		subj := Subject{
			ID:        id,
			Condition: row.condition,
			Age:       row.age,
			Sex:       row.sex,
			Treatment: row.treatment,
			Response:  row.response,
		}
		if prev, ok := subjects[id]; ok && prev != subj {
			return nil, nil, &SchemaViolationError{
				Relation: "subject",
				Key:      id,
				Values:   []string{fmt.Sprintf("%+v", prev), fmt.Sprintf("%+v", subj)},
			}
		}
		subjects[id] = subj

		if row.project == "" {
			return nil, nil, &MalformedIdentifierError{Kind: "project", Raw: row.project, Line: row.line}
		}
		if sampleTypes[row.project] == nil {
			sampleTypes[row.project] = map[string]bool{}
		}
		sampleTypes[row.project][row.sampleType] = true

		if row.sample == "" {
			return nil, nil, &MalformedIdentifierError{Kind: "sample", Raw: row.sample, Line: row.line}
		}
		if line, dup := seen[row.sample]; dup {
			return nil, nil, fmt.Errorf("line %d: %w (first seen on line %d)", row.line, &SchemaViolationError{Relation: "sample", Key: row.sample}, line)
		}
		seen[row.sample] = row.line
		samples = append(samples, Sample{
			ID:                     row.sample,
			SubjectID:              id,
			ProjectID:              row.project,
			TimeFromTreatmentStart: row.time,
			Counts:                 row.counts,
		})
	}

	rel := &Relations{}
	for _, subj := range subjects {
		rel.Subjects = append(rel.Subjects, subj)
	}
	sort.Slice(rel.Subjects, func(i, j int) bool { return rel.Subjects[i].ID < rel.Subjects[j].ID })

	for project, types := range sampleTypes {
		var names []string
		for name := range types {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 1 {
			return nil, nil, &SchemaViolationError{Relation: "project", Key: project, Values: names}
		}
		rel.Projects = append(rel.Projects, Project{ID: project, SampleType: names[0]})
	}
	sort.Slice(rel.Projects, func(i, j int) bool { return rel.Projects[i].ID < rel.Projects[j].ID })

	sort.Slice(samples, func(i, j int) bool { return samples[i].ID < samples[j].ID })
	var rejected []*ReferentialIntegrityError
	rel.Samples, rejected = linkSamples(samples, rel.Subjects, rel.Projects)
	return rel, rejected, nil
}

// linkSamples returns the samples whose subject and project exist,
// and an error for each sample that was left out.
func linkSamples(samples []Sample, subjects []Subject, projects []Project) (linked []Sample, rejected []*ReferentialIntegrityError) {
	haveSubject := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		haveSubject[s.ID] = true
	}
	haveProject := make(map[string]bool, len(projects))
	for _, p := range projects {
		haveProject[p.ID] = true
	}
	linked = make([]Sample, 0, len(samples))
	for _, s := range samples {
		if !haveSubject[s.SubjectID] {
			rejected = append(rejected, &ReferentialIntegrityError{SampleID: s.ID, Relation: "subject", Key: s.SubjectID})
			continue
		}
		if !haveProject[s.ProjectID] {
			rejected = append(rejected, &ReferentialIntegrityError{SampleID: s.ID, Relation: "project", Key: s.ProjectID})
			continue
		}
		linked = append(linked, s)
	}
	return
}

// loadInput reads and normalizes the named input file and replaces
// the contents of st with the result.
func loadInput(ctx context.Context, st *store, inputFilename string, stdin io.Reader) (*Relations, error) {
	f, err := openInput(inputFilename, stdin)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := readRawRows(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputFilename, err)
	}
	err = f.Close()
	if err != nil {
		return nil, err
	}
	log.Infof("read %d rows from %s", len(rows), inputFilename)

	rel, rejected, err := normalize(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", inputFilename, err)
	}
	for _, err := range rejected {
		log.Warnf("rejecting sample: %s", err)
	}
	log.Infof("normalized: %d subjects, %d projects, %d samples (%d rejected)", len(rel.Subjects), len(rel.Projects), len(rel.Samples), len(rejected))

	err = st.Replace(ctx, rel)
	if err != nil {
		return nil, err
	}
	return rel, nil
}

type loadCmd struct{}

func (cmd *loadCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	cfg, err := loadConfig()
	if err != nil {
		return 1
	}
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input cell count csv `file` (optionally .gz)")
	dbFilename := flags.String("db", cfg.DB, "normalized store sqlite `file` (replaced)")
	err = flags.Parse(args)
	if err == flag.ErrHelp {
		err = nil
		return 0
	} else if err != nil {
		return 2
	} else if flags.NArg() > 0 {
		err = fmt.Errorf("errant command line arguments after parsed flags: %v", flags.Args())
		return 2
	}

	st, err := openStore(*dbFilename)
	if err != nil {
		return 1
	}
	defer st.Close()
	rel, err := loadInput(context.Background(), st, *inputFilename, stdin)
	if err != nil {
		return 1
	}
	err = st.Close()
	if err != nil {
		return 1
	}
	fmt.Fprintf(stdout, "%x\n", rel.Digest())
	return 0
}
