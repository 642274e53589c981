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
	"math"
	"text/tabwriter"

	"github.com/loblawbio/cellcount/ttest"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/guregu/null.v3"
)

const significanceLevel = 0.05

const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"

	VerdictSignificant    = "significant"
	VerdictNotSignificant = "not significant"
)

// Comparison is the responder vs non-responder test result for one
// population. Statistics that could not be computed are null.
type Comparison struct {
	Population        string
	Status            string
	Responders        int
	NonResponders     int
	MeanResponders    null.Float
	MeanNonResponders null.Float
	T                 null.Float
	DF                null.Float
	PValue            null.Float
	Verdict           string
	GLMPValue         null.Float
}

// Compare runs a Welch t-test on the percentages of responders
// (response "yes") vs non-responders (response "no") for each
// population present in rows. Populations with fewer than 2
// observations on either side get StatusInsufficientData.
func Compare(rows []CohortRow) []Comparison {
	byPopulation := lo.GroupBy(rows, func(row CohortRow) string { return row.Population })
	var cmps []Comparison
	for _, pop := range Populations {
		group, ok := byPopulation[pop]
		if !ok {
			continue
		}
		var yes, no []float64
		other := 0
		for _, row := range group {
			switch row.Subject.Response {
			case "yes":
				yes = append(yes, row.Percentage)
			case "no":
				no = append(no, row.Percentage)
			default:
				other++
			}
		}
		if other > 0 {
			log.Warnf("%s: excluding %d samples whose response is neither \"yes\" nor \"no\"", pop, other)
		}
		cmps = append(cmps, compareGroups(pop, yes, no))
	}
	return cmps
}

func compareGroups(pop string, yes, no []float64) Comparison {
	cmp := Comparison{
		Population:    pop,
		Responders:    len(yes),
		NonResponders: len(no),
	}
	if len(yes) > 0 {
		cmp.MeanResponders = null.FloatFrom(stat.Mean(yes, nil))
	}
	if len(no) > 0 {
		cmp.MeanNonResponders = null.FloatFrom(stat.Mean(no, nil))
	}
	res, err := ttest.Welch(yes, no)
	if errors.Is(err, ttest.ErrInsufficientSample) {
		log.Warnf("%s: insufficient data for comparison (%d responders, %d non-responders)", pop, len(yes), len(no))
		cmp.Status = StatusInsufficientData
		return cmp
	}
	cmp.Status = StatusOK
	cmp.T = null.NewFloat(res.T, !math.IsInf(res.T, 0))
	cmp.DF = null.FloatFrom(res.DF)
	cmp.PValue = null.FloatFrom(res.P)
	if res.P < significanceLevel {
		cmp.Verdict = VerdictSignificant
	} else {
		cmp.Verdict = VerdictNotSignificant
	}
	if p, ok := glmPvalue(yes, no); ok {
		cmp.GLMPValue = null.FloatFrom(p)
	}
	return cmp
}

type compareCmd struct {
	filter CohortFilter
}

func (cmd *compareCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	outputFilename := flags.String("o", "-", "output csv `file` (default: print a table on stdout)")
	cmd.filter.Flags(flags, cfg)
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
	a, err := analyze(rel, cmd.filter)
	if err != nil {
		return 1
	}

	if *outputFilename == "-" {
		tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		printComparisons(tw, a.Comparisons)
		err = tw.Flush()
		if err != nil {
			return 1
		}
		return 0
	}
	output, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer output.Close()
	err = writeComparisons(output, a.Comparisons)
	if err != nil {
		return 1
	}
	err = output.Close()
	if err != nil {
		return 1
	}
	return 0
}

func printComparisons(w io.Writer, cmps []Comparison) {
	fmt.Fprintln(w, "population\tresponders\tnon-responders\tp-value\tverdict")
	for _, cmp := range cmps {
		if cmp.Status != StatusOK {
			fmt.Fprintf(w, "%s\t%d\t%d\t-\t%s\n", cmp.Population, cmp.Responders, cmp.NonResponders, cmp.Status)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.4g\t%s\n", cmp.Population, cmp.Responders, cmp.NonResponders, cmp.PValue.Float64, cmp.Verdict)
	}
}
