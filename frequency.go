// Copyright (C) The Cellcount Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package cellcount

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
)

// Frequency is one population's share of one sample's total count.
type Frequency struct {
	SampleID   string
	SubjectID  string
	ProjectID  string
	TotalCount int64
	Population string
	Count      int64
	Percentage float64
}

// Frequencies reshapes per-sample counts into one row per (sample,
// population), sorted by sample ID and then population order.
//
// A sample with a total count of zero results in an
// *EmptySampleError.
func Frequencies(samples []Sample) ([]Frequency, error) {
	sorted := make([]*Sample, len(samples))
	for i := range samples {
		sorted[i] = &samples[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	freqs := make([]Frequency, 0, len(samples)*nPopulations)
	for _, s := range sorted {
		var total int64
		for _, n := range s.Counts {
			total += n
		}
		if total == 0 {
			return nil, &EmptySampleError{SampleID: s.ID}
		}
		for i, pop := range Populations {
			freqs = append(freqs, Frequency{
				SampleID:   s.ID,
				SubjectID:  s.SubjectID,
				ProjectID:  s.ProjectID,
				TotalCount: total,
				Population: pop,
				Count:      s.Counts[i],
				Percentage: float64(s.Counts[i]) / float64(total),
			})
		}
	}
	return freqs, nil
}

type summaryCmd struct{}

func (cmd *summaryCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	dbFilename := flags.String("db", cfg.DB, "normalized store sqlite `file` (output of load)")
	outputFilename := flags.String("o", "-", "output csv `file` (.gz to compress)")
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
	rel, err := st.Relations(context.Background())
	if err != nil {
		return 1
	}
	err = st.Close()
	if err != nil {
		return 1
	}
	freqs, err := Frequencies(rel.Samples)
	if err != nil {
		return 1
	}

	output, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	err = writeSummary(output, freqs)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}
