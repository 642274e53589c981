// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"bytes"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/guregu/null.v3"
)

// Populations lists the counted immune-cell populations. Count
// arrays, output rows and matrix columns all use this order.
var Populations = [nPopulations]string{"b_cell", "cd8_t_cell", "cd4_t_cell", "nk_cell", "monocyte"}

const nPopulations = 5

type Subject struct {
	ID        string
	Condition string
	Age       int64
	Sex       string
	Treatment string
	Response  string
}

type Project struct {
	ID         string
	SampleType string
}

type Sample struct {
	ID                     string
	SubjectID              string
	ProjectID              string
	TimeFromTreatmentStart null.Int
	Counts                 [nPopulations]int64
}

// Relations is the normalized form of one input file. Each slice is
// sorted by ID.
type Relations struct {
	Subjects []Subject
	Projects []Project
	Samples  []Sample
}

// Digest returns a blake2b-256 hash of a canonical dump of rel. Two
// normalizations of the same input have the same digest.
func (rel *Relations) Digest() [blake2b.Size256]byte {
	var buf bytes.Buffer
	for _, s := range rel.Subjects {
		fmt.Fprintf(&buf, "subject\t%s\t%s\t%d\t%s\t%s\t%s\n", s.ID, s.Condition, s.Age, s.Sex, s.Treatment, s.Response)
	}
	for _, p := range rel.Projects {
		fmt.Fprintf(&buf, "project\t%s\t%s\n", p.ID, p.SampleType)
	}
	for _, s := range rel.Samples {
		t, _ := s.TimeFromTreatmentStart.MarshalText()
		fmt.Fprintf(&buf, "sample\t%s\t%s\t%s\t%s", s.ID, s.SubjectID, s.ProjectID, t)
		for _, n := range s.Counts {
			fmt.Fprintf(&buf, "\t%d", n)
		}
		buf.WriteByte('\n')
	}
	return blake2b.Sum256(buf.Bytes())
}
